package app

import (
	"context"
	"time"

	"github.com/manalBatta/MyHealthPalestine/internal/clock"
	"github.com/manalBatta/MyHealthPalestine/internal/domain"
)

type BookingRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	CreateSlots(ctx context.Context, slots []domain.Slot) error
	GetSlotForUpdate(ctx context.Context, slotID string) (domain.Slot, error)
	SetSlotBooking(ctx context.Context, slotID string, consultationID *string) error
	DeleteSlot(ctx context.Context, slotID string) error
	ListOpenSlots(ctx context.Context, doctorID string, from time.Time) ([]domain.Slot, error)
	CreateConsultation(ctx context.Context, c domain.Consultation) error
	GetConsultation(ctx context.Context, id string) (domain.Consultation, error)
	UpdateConsultationStatus(ctx context.Context, id string, status domain.ConsultationStatus) error
}

// BookingService coordinates slot booking and cancellation. Both sides of a
// booking (the consultation row and the slot flags) change inside one
// transaction, serialized on the slot's row lock.
type BookingService struct {
	repo  BookingRepository
	clock clock.Clock
}

func NewBookingService(repo BookingRepository, clk clock.Clock) *BookingService {
	return &BookingService{
		repo:  repo,
		clock: clk,
	}
}

type CreateSlotsInput struct {
	DoctorID        string
	StartAt         time.Time
	EndAt           time.Time
	RecurrenceCount int
	IntervalDays    int
}

// CreateSlots inserts the slot window plus RecurrenceCount repetitions offset
// by IntervalDays each, as a single batch. New rows are unbooked, so no
// locking is involved.
func (s *BookingService) CreateSlots(ctx context.Context, in CreateSlotsInput) ([]domain.Slot, error) {
	if in.DoctorID == "" {
		return nil, domain.ErrInvalidID
	}
	if !in.StartAt.Before(in.EndAt) {
		return nil, domain.ErrInvalidSlotWindow
	}
	if in.RecurrenceCount < 0 {
		return nil, domain.ErrInvalidRecurrence
	}
	if in.RecurrenceCount > 0 && in.IntervalDays <= 0 {
		return nil, domain.ErrInvalidRecurrence
	}

	now := s.clock.Now()
	slots := make([]domain.Slot, 0, in.RecurrenceCount+1)
	for i := 0; i <= in.RecurrenceCount; i++ {
		offset := time.Duration(i*in.IntervalDays) * 24 * time.Hour
		slots = append(slots, domain.Slot{
			ID:        newID(),
			DoctorID:  in.DoctorID,
			StartAt:   in.StartAt.Add(offset),
			EndAt:     in.EndAt.Add(offset),
			CreatedAt: now,
		})
	}

	if err := s.repo.CreateSlots(ctx, slots); err != nil {
		return nil, err
	}
	return slots, nil
}

type BookInput struct {
	PatientID string
	DoctorID  string
	SlotID    string
	Mode      string
}

// Book reserves a slot for a patient. The slot row is locked before anything
// is checked, so two concurrent Book calls on the same slot serialize: the
// second observes is_booked and fails with ErrSlotAlreadyBooked.
func (s *BookingService) Book(ctx context.Context, in BookInput) (domain.Consultation, error) {
	if in.PatientID == "" || in.DoctorID == "" || in.SlotID == "" {
		return domain.Consultation{}, domain.ErrInvalidID
	}
	mode := in.Mode
	if mode == "" {
		mode = "in_person"
	}

	now := s.clock.Now()
	var result domain.Consultation

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		slot, err := s.repo.GetSlotForUpdate(txCtx, in.SlotID)
		if err != nil {
			return err
		}

		doctor, err := s.repo.GetUser(txCtx, in.DoctorID)
		if err != nil {
			return err
		}
		if doctor == nil || doctor.Role != domain.RoleDoctor {
			return domain.ErrDoctorNotFound
		}
		if slot.DoctorID != in.DoctorID {
			return domain.ErrSlotDoctorMismatch
		}
		if slot.IsBooked {
			return domain.ErrSlotAlreadyBooked
		}

		consultation := domain.Consultation{
			ID:        newID(),
			PatientID: in.PatientID,
			DoctorID:  in.DoctorID,
			SlotID:    slot.ID,
			Mode:      mode,
			Status:    domain.ConsultationPending,
			CreatedAt: now,
		}
		if err := s.repo.CreateConsultation(txCtx, consultation); err != nil {
			return err
		}
		if err := s.repo.SetSlotBooking(txCtx, slot.ID, &consultation.ID); err != nil {
			return err
		}

		result = consultation
		return nil
	})
	if err != nil {
		return domain.Consultation{}, err
	}
	return result, nil
}

// UpdateStatus applies a role-gated status transition. Patients may only
// cancel their own consultation; doctors may confirm, complete or cancel
// theirs. A cancellation frees the slot in the same transaction.
func (s *BookingService) UpdateStatus(ctx context.Context, consultationID string, newStatus domain.ConsultationStatus, actor Actor) (domain.Consultation, error) {
	if consultationID == "" {
		return domain.Consultation{}, domain.ErrInvalidID
	}
	if !domain.ValidConsultationStatus(string(newStatus)) || newStatus == domain.ConsultationPending {
		return domain.Consultation{}, domain.ErrInvalidStatus
	}

	var result domain.Consultation

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		c, err := s.repo.GetConsultation(txCtx, consultationID)
		if err != nil {
			return err
		}

		switch actor.Role {
		case domain.RolePatient:
			if c.PatientID != actor.ID {
				return domain.ErrNotAuthorized
			}
			if newStatus != domain.ConsultationCancelled {
				return domain.ErrStatusNotAllowed
			}
		case domain.RoleDoctor:
			if c.DoctorID != actor.ID {
				return domain.ErrNotAuthorized
			}
		case domain.RoleAdmin:
		default:
			return domain.ErrNotAuthorized
		}

		if c.Status.Terminal() {
			return domain.ErrStatusNotAllowed
		}

		if newStatus == domain.ConsultationCancelled {
			slot, err := s.repo.GetSlotForUpdate(txCtx, c.SlotID)
			if err != nil {
				return err
			}
			if slot.ConsultationID != nil && *slot.ConsultationID == c.ID {
				if err := s.repo.SetSlotBooking(txCtx, slot.ID, nil); err != nil {
					return err
				}
			}
		}

		if err := s.repo.UpdateConsultationStatus(txCtx, c.ID, newStatus); err != nil {
			return err
		}

		c.Status = newStatus
		result = c
		return nil
	})
	if err != nil {
		return domain.Consultation{}, err
	}
	return result, nil
}

// Cancel is the symmetric inverse of Book.
func (s *BookingService) Cancel(ctx context.Context, consultationID string, actor Actor) (domain.Consultation, error) {
	return s.UpdateStatus(ctx, consultationID, domain.ConsultationCancelled, actor)
}

// DeleteSlot removes a slot owned by the acting doctor. A booked slot first
// cancels its consultation inside the same transaction.
func (s *BookingService) DeleteSlot(ctx context.Context, slotID string, actor Actor) error {
	if slotID == "" {
		return domain.ErrInvalidID
	}

	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		slot, err := s.repo.GetSlotForUpdate(txCtx, slotID)
		if err != nil {
			return err
		}
		if actor.Role != domain.RoleAdmin && (actor.Role != domain.RoleDoctor || slot.DoctorID != actor.ID) {
			return domain.ErrNotAuthorized
		}

		if slot.IsBooked && slot.ConsultationID != nil {
			if err := s.repo.UpdateConsultationStatus(txCtx, *slot.ConsultationID, domain.ConsultationCancelled); err != nil {
				return err
			}
			if err := s.repo.SetSlotBooking(txCtx, slot.ID, nil); err != nil {
				return err
			}
		}

		return s.repo.DeleteSlot(txCtx, slot.ID)
	})
}

// ListSlots returns a doctor's unbooked future slots.
func (s *BookingService) ListSlots(ctx context.Context, doctorID string) ([]domain.Slot, error) {
	if doctorID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListOpenSlots(ctx, doctorID, s.clock.Now())
}
