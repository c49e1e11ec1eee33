package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/manalBatta/MyHealthPalestine/internal/domain"
	"github.com/manalBatta/MyHealthPalestine/internal/testutil"
)

func TestFundingRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewFundingRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	now := time.Now().UTC().Truncate(time.Microsecond)

	seedTreatment := func(ctx context.Context, goal, raised int64, status domain.TreatmentStatus) (trID, patientID, doctorID, donorID string) {
		patientID = testutil.InsertUser(t, ctx, pool, "Pat", domain.RolePatient)
		doctorID = testutil.InsertUser(t, ctx, pool, "Dr. A", domain.RoleDoctor)
		donorID = testutil.InsertUser(t, ctx, pool, "Donor", domain.RoleDonor)
		trID = testutil.InsertTreatment(t, ctx, pool, domain.TreatmentRequest{
			PatientID: patientID, DoctorID: doctorID, Sponsored: true,
			GoalAmount: goal, RaisedAmount: raised, Status: status,
		})
		return
	}

	t.Run("treatment roundtrip and lock read", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		patientID := testutil.InsertUser(t, ctx, pool, "Pat", domain.RolePatient)
		doctorID := testutil.InsertUser(t, ctx, pool, "Dr. A", domain.RoleDoctor)

		tr := domain.TreatmentRequest{
			ID: uuid.NewString(), PatientID: patientID, DoctorID: doctorID,
			Description: "surgery", Sponsored: true, GoalAmount: 50000,
			Status: domain.TreatmentOpen, CreatedAt: now,
		}
		if err := repo.CreateTreatment(ctx, tr); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			got, err := repo.GetTreatmentForUpdate(txCtx, tr.ID)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got.GoalAmount != 50000 || got.Sponsored != true || got.Status != domain.TreatmentOpen {
				t.Fatalf("unexpected treatment: %+v", got)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("tx failed: %v", err)
		}

		if _, err := repo.GetTreatment(ctx, uuid.NewString()); err != domain.ErrTreatmentNotFound {
			t.Fatalf("expected ErrTreatmentNotFound, got %v", err)
		}
	})

	t.Run("funding update enforces the goal bound", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		trID, _, _, _ := seedTreatment(ctx, 500, 400, domain.TreatmentOpen)

		if err := repo.UpdateTreatmentFunding(ctx, trID, 500, domain.TreatmentFunded); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		got, err := repo.GetTreatment(ctx, trID)
		if err != nil {
			t.Fatalf("get treatment: %v", err)
		}
		if got.RaisedAmount != 500 || got.Status != domain.TreatmentFunded {
			t.Fatalf("unexpected treatment: %+v", got)
		}

		err = repo.UpdateTreatmentFunding(ctx, trID, 600, domain.TreatmentFunded)
		var exceeds *domain.ExceedsRemainingError
		if !errors.As(err, &exceeds) {
			t.Fatalf("expected ExceedsRemainingError, got %v", err)
		}
	})

	t.Run("payment event id is unique", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		trID, _, _, donorID := seedTreatment(ctx, 500, 0, domain.TreatmentOpen)

		d := domain.Donation{
			ID: uuid.NewString(), TreatmentRequestID: trID, DonorID: donorID, Amount: 100, DonatedAt: now,
		}
		if err := repo.CreateDonation(ctx, d); err != nil {
			t.Fatalf("create donation: %v", err)
		}

		ev := domain.PaymentEvent{ProviderEventID: "evt_1", DonationID: d.ID, ReceivedAt: now}
		if err := repo.CreatePaymentEvent(ctx, ev); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := repo.CreatePaymentEvent(ctx, ev); err != domain.ErrDuplicatePaymentEvent {
			t.Fatalf("expected ErrDuplicatePaymentEvent, got %v", err)
		}

		if _, err := repo.GetDonation(ctx, uuid.NewString()); err != domain.ErrDonationNotFound {
			t.Fatalf("expected ErrDonationNotFound, got %v", err)
		}

		got, err := repo.GetPaymentEvent(ctx, "evt_1")
		if err != nil {
			t.Fatalf("get payment event: %v", err)
		}
		if got == nil || got.DonationID != d.ID {
			t.Fatalf("unexpected event: %+v", got)
		}

		got, err = repo.GetPaymentEvent(ctx, "evt_missing")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got != nil {
			t.Fatalf("expected nil, got %+v", got)
		}
	})

	t.Run("at most one verification per treatment", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		trID, _, _, _ := seedTreatment(ctx, 500, 500, domain.TreatmentFunded)

		v := domain.SponsorshipVerification{
			ID: uuid.NewString(), TreatmentRequestID: trID, ReceiptURL: "https://r/1.pdf", CreatedAt: now,
		}
		if err := repo.CreateVerification(ctx, v); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		second := domain.SponsorshipVerification{
			ID: uuid.NewString(), TreatmentRequestID: trID, CreatedAt: now,
		}
		if err := repo.CreateVerification(ctx, second); err != domain.ErrVerificationExists {
			t.Fatalf("expected ErrVerificationExists, got %v", err)
		}

		if err := repo.SetVerificationApproved(ctx, v.ID); err != nil {
			t.Fatalf("approve: %v", err)
		}
		got, err := repo.GetVerificationForUpdate(ctx, v.ID)
		if err != nil {
			t.Fatalf("get verification: %v", err)
		}
		if !got.Approved {
			t.Fatalf("expected approved, got %+v", got)
		}

		if err := repo.DeleteVerification(ctx, v.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := repo.GetVerificationForUpdate(ctx, v.ID); err != domain.ErrVerificationNotFound {
			t.Fatalf("expected ErrVerificationNotFound, got %v", err)
		}

		// deleting frees the slot for a new verification
		if err := repo.CreateVerification(ctx, second); err != nil {
			t.Fatalf("expected re-create to succeed, got %v", err)
		}
	})
}
