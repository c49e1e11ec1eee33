package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/manalBatta/MyHealthPalestine/internal/app"
	"github.com/manalBatta/MyHealthPalestine/internal/clock"
	"github.com/manalBatta/MyHealthPalestine/internal/domain"
	"github.com/manalBatta/MyHealthPalestine/internal/testutil"
)

func TestBookingRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewBookingRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("CreateSlots batch inserts and reports duplicates", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		doctorID := testutil.InsertUser(t, ctx, pool, "Dr. A", domain.RoleDoctor)

		slots := []domain.Slot{
			{ID: uuid.NewString(), DoctorID: doctorID, StartAt: now.Add(time.Hour), EndAt: now.Add(2 * time.Hour), CreatedAt: now},
			{ID: uuid.NewString(), DoctorID: doctorID, StartAt: now.Add(24 * time.Hour), EndAt: now.Add(25 * time.Hour), CreatedAt: now},
		}
		if err := repo.CreateSlots(ctx, slots); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		dup := []domain.Slot{
			{ID: uuid.NewString(), DoctorID: doctorID, StartAt: now.Add(time.Hour), EndAt: now.Add(2 * time.Hour), CreatedAt: now},
		}
		if err := repo.CreateSlots(ctx, dup); err != domain.ErrSlotAlreadyExists {
			t.Fatalf("expected ErrSlotAlreadyExists, got %v", err)
		}
	})

	t.Run("CreateSlots with unknown doctor", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		err := repo.CreateSlots(ctx, []domain.Slot{
			{ID: uuid.NewString(), DoctorID: uuid.NewString(), StartAt: now, EndAt: now.Add(time.Hour), CreatedAt: now},
		})
		if err != domain.ErrDoctorNotFound {
			t.Fatalf("expected ErrDoctorNotFound, got %v", err)
		}
	})

	t.Run("GetSlotForUpdate inside tx", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		doctorID := testutil.InsertUser(t, ctx, pool, "Dr. A", domain.RoleDoctor)
		slotID := testutil.InsertSlot(t, ctx, pool, doctorID, now.Add(time.Hour), now.Add(2*time.Hour))

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			slot, err := repo.GetSlotForUpdate(txCtx, slotID)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if slot.ID != slotID || slot.DoctorID != doctorID || slot.IsBooked {
				t.Fatalf("unexpected slot: %+v", slot)
			}

			if _, err := repo.GetSlotForUpdate(txCtx, uuid.NewString()); err != domain.ErrSlotNotFound {
				t.Fatalf("expected ErrSlotNotFound, got %v", err)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("tx failed: %v", err)
		}

		if _, err := repo.GetSlotForUpdate(ctx, "not-a-uuid"); err != domain.ErrInvalidID {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
	})

	t.Run("SetSlotBooking flips both fields together", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		doctorID := testutil.InsertUser(t, ctx, pool, "Dr. A", domain.RoleDoctor)
		patientID := testutil.InsertUser(t, ctx, pool, "Pat", domain.RolePatient)
		slotID := testutil.InsertSlot(t, ctx, pool, doctorID, now.Add(time.Hour), now.Add(2*time.Hour))

		c := domain.Consultation{
			ID: uuid.NewString(), PatientID: patientID, DoctorID: doctorID, SlotID: slotID,
			Mode: "in_person", Status: domain.ConsultationPending, CreatedAt: now,
		}
		if err := repo.CreateConsultation(ctx, c); err != nil {
			t.Fatalf("create consultation: %v", err)
		}
		if err := repo.SetSlotBooking(ctx, slotID, &c.ID); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		slot, err := repo.GetSlotForUpdate(ctx, slotID)
		if err != nil {
			t.Fatalf("get slot: %v", err)
		}
		if !slot.IsBooked || slot.ConsultationID == nil || *slot.ConsultationID != c.ID {
			t.Fatalf("expected booked slot, got %+v", slot)
		}

		if err := repo.SetSlotBooking(ctx, slotID, nil); err != nil {
			t.Fatalf("free slot: %v", err)
		}
		slot, _ = repo.GetSlotForUpdate(ctx, slotID)
		if slot.IsBooked || slot.ConsultationID != nil {
			t.Fatalf("expected freed slot, got %+v", slot)
		}
	})

	t.Run("ListOpenSlots filters booked and past", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		doctorID := testutil.InsertUser(t, ctx, pool, "Dr. A", domain.RoleDoctor)
		patientID := testutil.InsertUser(t, ctx, pool, "Pat", domain.RolePatient)

		testutil.InsertSlot(t, ctx, pool, doctorID, now.Add(-2*time.Hour), now.Add(-time.Hour))
		openID := testutil.InsertSlot(t, ctx, pool, doctorID, now.Add(time.Hour), now.Add(2*time.Hour))
		bookedID := testutil.InsertSlot(t, ctx, pool, doctorID, now.Add(3*time.Hour), now.Add(4*time.Hour))

		c := domain.Consultation{
			ID: uuid.NewString(), PatientID: patientID, DoctorID: doctorID, SlotID: bookedID,
			Mode: "in_person", Status: domain.ConsultationPending, CreatedAt: now,
		}
		if err := repo.CreateConsultation(ctx, c); err != nil {
			t.Fatalf("create consultation: %v", err)
		}
		if err := repo.SetSlotBooking(ctx, bookedID, &c.ID); err != nil {
			t.Fatalf("book slot: %v", err)
		}

		slots, err := repo.ListOpenSlots(ctx, doctorID, now)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(slots) != 1 || slots[0].ID != openID {
			t.Fatalf("expected single open slot %s, got %+v", openID, slots)
		}
	})

	t.Run("UpdateConsultationStatus and missing rows", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		doctorID := testutil.InsertUser(t, ctx, pool, "Dr. A", domain.RoleDoctor)
		patientID := testutil.InsertUser(t, ctx, pool, "Pat", domain.RolePatient)
		slotID := testutil.InsertSlot(t, ctx, pool, doctorID, now.Add(time.Hour), now.Add(2*time.Hour))

		c := domain.Consultation{
			ID: uuid.NewString(), PatientID: patientID, DoctorID: doctorID, SlotID: slotID,
			Mode: "video", Status: domain.ConsultationPending, CreatedAt: now,
		}
		if err := repo.CreateConsultation(ctx, c); err != nil {
			t.Fatalf("create consultation: %v", err)
		}

		if err := repo.UpdateConsultationStatus(ctx, c.ID, domain.ConsultationConfirmed); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		got, err := repo.GetConsultation(ctx, c.ID)
		if err != nil {
			t.Fatalf("get consultation: %v", err)
		}
		if got.Status != domain.ConsultationConfirmed || got.Mode != "video" {
			t.Fatalf("unexpected consultation: %+v", got)
		}

		if err := repo.UpdateConsultationStatus(ctx, uuid.NewString(), domain.ConsultationCancelled); err != domain.ErrConsultationNotFound {
			t.Fatalf("expected ErrConsultationNotFound, got %v", err)
		}
		if _, err := repo.GetConsultation(ctx, uuid.NewString()); err != domain.ErrConsultationNotFound {
			t.Fatalf("expected ErrConsultationNotFound, got %v", err)
		}
	})

	t.Run("concurrent bookings of one slot admit exactly one", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		doctorID := testutil.InsertUser(t, ctx, pool, "Dr. A", domain.RoleDoctor)
		patient1 := testutil.InsertUser(t, ctx, pool, "Pat 1", domain.RolePatient)
		patient2 := testutil.InsertUser(t, ctx, pool, "Pat 2", domain.RolePatient)
		slotID := testutil.InsertSlot(t, ctx, pool, doctorID, now.Add(time.Hour), now.Add(2*time.Hour))

		svc := app.NewBookingService(repo, clock.NewSystem())

		errCh := make(chan error, 2)
		for _, patientID := range []string{patient1, patient2} {
			patientID := patientID
			go func() {
				_, err := svc.Book(ctx, app.BookInput{
					PatientID: patientID, DoctorID: doctorID, SlotID: slotID,
				})
				errCh <- err
			}()
		}

		var successes, conflicts int
		for i := 0; i < 2; i++ {
			switch err := <-errCh; err {
			case nil:
				successes++
			case domain.ErrSlotAlreadyBooked:
				conflicts++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if successes != 1 || conflicts != 1 {
			t.Fatalf("expected exactly one booking and one conflict, got %d/%d", successes, conflicts)
		}

		slot, err := repo.GetSlotForUpdate(ctx, slotID)
		if err != nil {
			t.Fatalf("get slot: %v", err)
		}
		if !slot.IsBooked || slot.ConsultationID == nil {
			t.Fatalf("expected booked slot, got %+v", slot)
		}
	})

	t.Run("GetUser returns nil for missing", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		doctorID := testutil.InsertUser(t, ctx, pool, "Dr. A", domain.RoleDoctor)

		u, err := repo.GetUser(ctx, doctorID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if u == nil || u.Role != domain.RoleDoctor {
			t.Fatalf("unexpected user: %+v", u)
		}

		u, err = repo.GetUser(ctx, uuid.NewString())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if u != nil {
			t.Fatalf("expected nil, got %+v", u)
		}
	})
}
