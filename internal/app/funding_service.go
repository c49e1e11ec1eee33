package app

import (
	"context"
	"errors"

	"github.com/manalBatta/MyHealthPalestine/internal/clock"
	"github.com/manalBatta/MyHealthPalestine/internal/domain"
)

type FundingRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateTreatment(ctx context.Context, tr domain.TreatmentRequest) error
	GetTreatment(ctx context.Context, id string) (domain.TreatmentRequest, error)
	GetTreatmentForUpdate(ctx context.Context, id string) (domain.TreatmentRequest, error)
	UpdateTreatmentFunding(ctx context.Context, id string, raised int64, status domain.TreatmentStatus) error
	UpdateTreatmentStatus(ctx context.Context, id string, status domain.TreatmentStatus) error
	CreateDonation(ctx context.Context, d domain.Donation) error
	GetDonation(ctx context.Context, id string) (domain.Donation, error)
	CreatePaymentEvent(ctx context.Context, ev domain.PaymentEvent) error
	GetPaymentEvent(ctx context.Context, providerEventID string) (*domain.PaymentEvent, error)
	CreateVerification(ctx context.Context, v domain.SponsorshipVerification) error
	GetVerificationByTreatment(ctx context.Context, treatmentRequestID string) (*domain.SponsorshipVerification, error)
	GetVerificationForUpdate(ctx context.Context, id string) (domain.SponsorshipVerification, error)
	SetVerificationApproved(ctx context.Context, id string) error
	DeleteVerification(ctx context.Context, id string) error
}

// FundingService owns the donation ledger of sponsored treatment requests.
// raised_amount only advances under the request's row lock and never exceeds
// goal_amount; violations are rejected, not clamped.
type FundingService struct {
	repo  FundingRepository
	clock clock.Clock
}

func NewFundingService(repo FundingRepository, clk clock.Clock) *FundingService {
	return &FundingService{
		repo:  repo,
		clock: clk,
	}
}

type CreateTreatmentInput struct {
	PatientID   string
	DoctorID    string
	Description string
	Sponsored   bool
	GoalAmount  int64
}

func (s *FundingService) CreateTreatmentRequest(ctx context.Context, in CreateTreatmentInput) (domain.TreatmentRequest, error) {
	if in.PatientID == "" || in.DoctorID == "" {
		return domain.TreatmentRequest{}, domain.ErrInvalidID
	}
	if in.Sponsored && in.GoalAmount <= 0 {
		return domain.TreatmentRequest{}, domain.ErrInvalidGoalAmount
	}
	if !in.Sponsored && in.GoalAmount != 0 {
		return domain.TreatmentRequest{}, domain.ErrInvalidGoalAmount
	}

	tr := domain.TreatmentRequest{
		ID:          newID(),
		PatientID:   in.PatientID,
		DoctorID:    in.DoctorID,
		Description: in.Description,
		Sponsored:   in.Sponsored,
		GoalAmount:  in.GoalAmount,
		Status:      domain.TreatmentOpen,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.CreateTreatment(ctx, tr); err != nil {
		return domain.TreatmentRequest{}, err
	}
	return tr, nil
}

func (s *FundingService) GetTreatmentRequest(ctx context.Context, id string) (domain.TreatmentRequest, error) {
	if id == "" {
		return domain.TreatmentRequest{}, domain.ErrInvalidID
	}
	return s.repo.GetTreatment(ctx, id)
}

type DonationInput struct {
	TreatmentRequestID string
	DonorID            string
	Amount             int64
}

// RecordDonation appends a donation and advances the ledger. The treatment
// request row is locked first, so concurrent donations serialize and each one
// is validated against the committed raised_amount of the previous.
func (s *FundingService) RecordDonation(ctx context.Context, in DonationInput) (domain.Donation, error) {
	if in.TreatmentRequestID == "" || in.DonorID == "" {
		return domain.Donation{}, domain.ErrInvalidID
	}
	if in.Amount <= 0 {
		return domain.Donation{}, domain.ErrInvalidAmount
	}

	var result domain.Donation
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		d, err := s.applyDonation(txCtx, in)
		if err != nil {
			return err
		}
		result = d
		return nil
	})
	if err != nil {
		return domain.Donation{}, err
	}
	return result, nil
}

// applyDonation runs inside an open transaction.
func (s *FundingService) applyDonation(txCtx context.Context, in DonationInput) (domain.Donation, error) {
	tr, err := s.repo.GetTreatmentForUpdate(txCtx, in.TreatmentRequestID)
	if err != nil {
		return domain.Donation{}, err
	}
	if !tr.Sponsored {
		return domain.Donation{}, domain.ErrNotSponsored
	}
	if tr.GoalAmount <= 0 {
		return domain.Donation{}, domain.ErrInvalidGoalAmount
	}
	if !tr.AcceptsDonations() {
		return domain.Donation{}, domain.ErrDonationsNotOpen
	}
	if remaining := tr.Remaining(); in.Amount > remaining {
		return domain.Donation{}, &domain.ExceedsRemainingError{Remaining: remaining}
	}

	donation := domain.Donation{
		ID:                 newID(),
		TreatmentRequestID: tr.ID,
		DonorID:            in.DonorID,
		Amount:             in.Amount,
		DonatedAt:          s.clock.Now(),
	}
	if err := s.repo.CreateDonation(txCtx, donation); err != nil {
		return domain.Donation{}, err
	}

	raised := tr.RaisedAmount + in.Amount
	status := tr.Status
	if raised >= tr.GoalAmount {
		status = domain.TreatmentFunded
	}
	if err := s.repo.UpdateTreatmentFunding(txCtx, tr.ID, raised, status); err != nil {
		return domain.Donation{}, err
	}
	return donation, nil
}

type PaymentEventInput struct {
	ProviderEventID    string
	TreatmentRequestID string
	DonorID            string
	Amount             int64
}

// RecordPaymentEvent applies an asynchronous payment confirmation exactly
// once. The provider's event id is persisted in the same transaction that
// advances the ledger; a redelivered event finds the recorded id and returns
// the original donation without touching raised_amount.
func (s *FundingService) RecordPaymentEvent(ctx context.Context, in PaymentEventInput) (domain.Donation, bool, error) {
	if in.ProviderEventID == "" {
		return domain.Donation{}, false, domain.ErrInvalidID
	}
	if in.TreatmentRequestID == "" || in.DonorID == "" {
		return domain.Donation{}, false, domain.ErrInvalidID
	}
	if in.Amount <= 0 {
		return domain.Donation{}, false, domain.ErrInvalidAmount
	}

	var (
		result    domain.Donation
		duplicate bool
	)
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.GetPaymentEvent(txCtx, in.ProviderEventID)
		if err != nil {
			return err
		}
		if existing != nil {
			d, err := s.repo.GetDonation(txCtx, existing.DonationID)
			if err != nil {
				return err
			}
			result, duplicate = d, true
			return nil
		}

		d, err := s.applyDonation(txCtx, DonationInput{
			TreatmentRequestID: in.TreatmentRequestID,
			DonorID:            in.DonorID,
			Amount:             in.Amount,
		})
		if err != nil {
			return err
		}
		if err := s.repo.CreatePaymentEvent(txCtx, domain.PaymentEvent{
			ProviderEventID: in.ProviderEventID,
			DonationID:      d.ID,
			ReceivedAt:      s.clock.Now(),
		}); err != nil {
			return err
		}
		result = d
		return nil
	})
	if errors.Is(err, domain.ErrDuplicatePaymentEvent) {
		// A concurrent delivery of the same event won the insert race. The
		// transaction above rolled back; read the winner's donation instead.
		ev, evErr := s.repo.GetPaymentEvent(ctx, in.ProviderEventID)
		if evErr != nil {
			return domain.Donation{}, false, evErr
		}
		if ev == nil {
			return domain.Donation{}, false, err
		}
		d, dErr := s.repo.GetDonation(ctx, ev.DonationID)
		if dErr != nil {
			return domain.Donation{}, false, dErr
		}
		return d, true, nil
	}
	if err != nil {
		return domain.Donation{}, false, err
	}
	return result, duplicate, nil
}

type RequestVerificationInput struct {
	TreatmentRequestID string
	ReceiptURL         string
}

// RequestVerification opens the receipt review for a funded (or already
// closed) sponsored request. The unique constraint on treatment_request_id
// backs the at-most-one rule under concurrency.
func (s *FundingService) RequestVerification(ctx context.Context, in RequestVerificationInput) (domain.SponsorshipVerification, error) {
	if in.TreatmentRequestID == "" {
		return domain.SponsorshipVerification{}, domain.ErrInvalidID
	}

	tr, err := s.repo.GetTreatment(ctx, in.TreatmentRequestID)
	if err != nil {
		return domain.SponsorshipVerification{}, err
	}
	if !tr.Sponsored {
		return domain.SponsorshipVerification{}, domain.ErrNotSponsored
	}
	if tr.Status != domain.TreatmentFunded && tr.Status != domain.TreatmentClosed {
		return domain.SponsorshipVerification{}, domain.ErrVerificationNotDue
	}

	existing, err := s.repo.GetVerificationByTreatment(ctx, tr.ID)
	if err != nil {
		return domain.SponsorshipVerification{}, err
	}
	if existing != nil {
		return domain.SponsorshipVerification{}, domain.ErrVerificationExists
	}

	v := domain.SponsorshipVerification{
		ID:                 newID(),
		TreatmentRequestID: tr.ID,
		ReceiptURL:         in.ReceiptURL,
		CreatedAt:          s.clock.Now(),
	}
	if err := s.repo.CreateVerification(ctx, v); err != nil {
		return domain.SponsorshipVerification{}, err
	}
	return v, nil
}

// DecideVerification approves or rejects a pending verification. Approval
// closes the treatment request for good; rejection deletes the verification
// and, when the request had been closed, reverts it to funded so donations
// and re-verification can resume.
func (s *FundingService) DecideVerification(ctx context.Context, verificationID string, approved bool) (*domain.SponsorshipVerification, error) {
	if verificationID == "" {
		return nil, domain.ErrInvalidID
	}

	var result *domain.SponsorshipVerification
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		v, err := s.repo.GetVerificationForUpdate(txCtx, verificationID)
		if err != nil {
			return err
		}
		tr, err := s.repo.GetTreatmentForUpdate(txCtx, v.TreatmentRequestID)
		if err != nil {
			return err
		}

		if approved {
			if err := s.repo.SetVerificationApproved(txCtx, v.ID); err != nil {
				return err
			}
			if err := s.repo.UpdateTreatmentStatus(txCtx, tr.ID, domain.TreatmentClosed); err != nil {
				return err
			}
			v.Approved = true
			result = &v
			return nil
		}

		if err := s.repo.DeleteVerification(txCtx, v.ID); err != nil {
			return err
		}
		if tr.Status == domain.TreatmentClosed {
			if err := s.repo.UpdateTreatmentStatus(txCtx, tr.ID, domain.TreatmentFunded); err != nil {
				return err
			}
		}
		result = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
