package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/manalBatta/MyHealthPalestine/internal/domain"
)

type FundingRepository struct {
	pool *pgxpool.Pool
}

func NewFundingRepository(pool *pgxpool.Pool) *FundingRepository {
	return &FundingRepository{pool: pool}
}

func (r *FundingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *FundingRepository) CreateTreatment(ctx context.Context, tr domain.TreatmentRequest) error {
	const stmt = `
INSERT INTO treatment_requests (id, patient_id, doctor_id, description, sponsored, goal_amount, raised_amount, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.exec(ctx, stmt,
		tr.ID,
		tr.PatientID,
		tr.DoctorID,
		tr.Description,
		tr.Sponsored,
		tr.GoalAmount,
		tr.RaisedAmount,
		tr.Status,
		tr.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrPatientNotFound
		}
		return fmt.Errorf("create treatment request: %w", err)
	}
	return nil
}

const treatmentColumns = `id, patient_id, doctor_id, description, sponsored, goal_amount, raised_amount, status, created_at`

func (r *FundingRepository) GetTreatment(ctx context.Context, id string) (domain.TreatmentRequest, error) {
	query := `SELECT ` + treatmentColumns + ` FROM treatment_requests WHERE id = $1`
	return r.scanTreatment(r.queryRow(ctx, query, id))
}

func (r *FundingRepository) GetTreatmentForUpdate(ctx context.Context, id string) (domain.TreatmentRequest, error) {
	query := `SELECT ` + treatmentColumns + ` FROM treatment_requests WHERE id = $1 FOR UPDATE`
	return r.scanTreatment(r.queryRow(ctx, query, id))
}

func (r *FundingRepository) scanTreatment(row pgx.Row) (domain.TreatmentRequest, error) {
	var tr domain.TreatmentRequest
	err := row.Scan(
		&tr.ID,
		&tr.PatientID,
		&tr.DoctorID,
		&tr.Description,
		&tr.Sponsored,
		&tr.GoalAmount,
		&tr.RaisedAmount,
		&tr.Status,
		&tr.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.TreatmentRequest{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.TreatmentRequest{}, domain.ErrTreatmentNotFound
		}
		return domain.TreatmentRequest{}, fmt.Errorf("get treatment request: %w", err)
	}
	return tr, nil
}

func (r *FundingRepository) UpdateTreatmentFunding(ctx context.Context, id string, raised int64, status domain.TreatmentStatus) error {
	const stmt = `UPDATE treatment_requests SET raised_amount = $2, status = $3 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, id, raised, status)
	if err != nil {
		// The raised <= goal CHECK is the last line of defense behind the
		// service-level bound; surface it as the same hard validation error.
		if isCheckViolation(err) {
			return &domain.ExceedsRemainingError{Remaining: 0}
		}
		return fmt.Errorf("update treatment funding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTreatmentNotFound
	}
	return nil
}

func (r *FundingRepository) UpdateTreatmentStatus(ctx context.Context, id string, status domain.TreatmentStatus) error {
	const stmt = `UPDATE treatment_requests SET status = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, id, status)
	if err != nil {
		return fmt.Errorf("update treatment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTreatmentNotFound
	}
	return nil
}

func (r *FundingRepository) CreateDonation(ctx context.Context, d domain.Donation) error {
	const stmt = `
INSERT INTO donations (id, treatment_request_id, donor_id, amount, donated_at)
VALUES ($1, $2, $3, $4, $5)`

	_, err := r.exec(ctx, stmt, d.ID, d.TreatmentRequestID, d.DonorID, d.Amount, d.DonatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create donation: %w", err)
	}
	return nil
}

func (r *FundingRepository) GetDonation(ctx context.Context, id string) (domain.Donation, error) {
	const query = `
SELECT id, treatment_request_id, donor_id, amount, donated_at
FROM donations
WHERE id = $1`

	var d domain.Donation
	err := r.queryRow(ctx, query, id).
		Scan(&d.ID, &d.TreatmentRequestID, &d.DonorID, &d.Amount, &d.DonatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Donation{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Donation{}, domain.ErrDonationNotFound
		}
		return domain.Donation{}, fmt.Errorf("get donation: %w", err)
	}
	return d, nil
}

func (r *FundingRepository) CreatePaymentEvent(ctx context.Context, ev domain.PaymentEvent) error {
	const stmt = `
INSERT INTO payment_events (provider_event_id, donation_id, received_at)
VALUES ($1, $2, $3)`

	_, err := r.exec(ctx, stmt, ev.ProviderEventID, ev.DonationID, ev.ReceivedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicatePaymentEvent
		}
		return fmt.Errorf("create payment event: %w", err)
	}
	return nil
}

func (r *FundingRepository) GetPaymentEvent(ctx context.Context, providerEventID string) (*domain.PaymentEvent, error) {
	const query = `
SELECT provider_event_id, donation_id, received_at
FROM payment_events
WHERE provider_event_id = $1`

	var ev domain.PaymentEvent
	err := r.queryRow(ctx, query, providerEventID).
		Scan(&ev.ProviderEventID, &ev.DonationID, &ev.ReceivedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment event: %w", err)
	}
	return &ev, nil
}

func (r *FundingRepository) CreateVerification(ctx context.Context, v domain.SponsorshipVerification) error {
	const stmt = `
INSERT INTO sponsorship_verifications (id, treatment_request_id, approved, receipt_url, created_at)
VALUES ($1, $2, $3, $4, $5)`

	_, err := r.exec(ctx, stmt, v.ID, v.TreatmentRequestID, v.Approved, v.ReceiptURL, v.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrVerificationExists
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrTreatmentNotFound
		}
		return fmt.Errorf("create verification: %w", err)
	}
	return nil
}

func (r *FundingRepository) GetVerificationByTreatment(ctx context.Context, treatmentRequestID string) (*domain.SponsorshipVerification, error) {
	const query = `
SELECT id, treatment_request_id, approved, receipt_url, created_at
FROM sponsorship_verifications
WHERE treatment_request_id = $1`

	var v domain.SponsorshipVerification
	err := r.queryRow(ctx, query, treatmentRequestID).
		Scan(&v.ID, &v.TreatmentRequestID, &v.Approved, &v.ReceiptURL, &v.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get verification by treatment: %w", err)
	}
	return &v, nil
}

func (r *FundingRepository) GetVerificationForUpdate(ctx context.Context, id string) (domain.SponsorshipVerification, error) {
	const query = `
SELECT id, treatment_request_id, approved, receipt_url, created_at
FROM sponsorship_verifications
WHERE id = $1
FOR UPDATE`

	var v domain.SponsorshipVerification
	err := r.queryRow(ctx, query, id).
		Scan(&v.ID, &v.TreatmentRequestID, &v.Approved, &v.ReceiptURL, &v.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.SponsorshipVerification{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.SponsorshipVerification{}, domain.ErrVerificationNotFound
		}
		return domain.SponsorshipVerification{}, fmt.Errorf("get verification: %w", err)
	}
	return v, nil
}

func (r *FundingRepository) SetVerificationApproved(ctx context.Context, id string) error {
	const stmt = `UPDATE sponsorship_verifications SET approved = TRUE WHERE id = $1`

	tag, err := r.exec(ctx, stmt, id)
	if err != nil {
		return fmt.Errorf("approve verification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVerificationNotFound
	}
	return nil
}

func (r *FundingRepository) DeleteVerification(ctx context.Context, id string) error {
	const stmt = `DELETE FROM sponsorship_verifications WHERE id = $1`

	tag, err := r.exec(ctx, stmt, id)
	if err != nil {
		return fmt.Errorf("delete verification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVerificationNotFound
	}
	return nil
}

func (r *FundingRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *FundingRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
