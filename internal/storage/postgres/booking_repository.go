package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/manalBatta/MyHealthPalestine/internal/domain"
)

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *BookingRepository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	const query = `SELECT id, name, role FROM users WHERE id = $1`

	var u domain.User
	err := r.queryRow(ctx, query, userID).Scan(&u.ID, &u.Name, &u.Role)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *BookingRepository) CreateSlots(ctx context.Context, slots []domain.Slot) error {
	const stmt = `
INSERT INTO consultation_slots (id, doctor_id, start_at, end_at, is_booked, created_at)
VALUES ($1, $2, $3, $4, FALSE, $5)`

	batch := &pgx.Batch{}
	for _, slot := range slots {
		batch.Queue(stmt, slot.ID, slot.DoctorID, slot.StartAt, slot.EndAt, slot.CreatedAt)
	}

	var results pgx.BatchResults
	if tx := txFromContext(ctx); tx != nil {
		results = tx.SendBatch(ctx, batch)
	} else {
		results = r.pool.SendBatch(ctx, batch)
	}
	defer results.Close()

	for range slots {
		if _, err := results.Exec(); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrSlotAlreadyExists
			}
			if isInvalidUUID(err) {
				return domain.ErrInvalidID
			}
			if isForeignKeyViolation(err) {
				return domain.ErrDoctorNotFound
			}
			return fmt.Errorf("create slots: %w", err)
		}
	}
	return nil
}

func (r *BookingRepository) GetSlotForUpdate(ctx context.Context, slotID string) (domain.Slot, error) {
	const query = `
SELECT id, doctor_id, start_at, end_at, is_booked, consultation_id, created_at
FROM consultation_slots
WHERE id = $1
FOR UPDATE`

	var s domain.Slot
	err := r.queryRow(ctx, query, slotID).
		Scan(&s.ID, &s.DoctorID, &s.StartAt, &s.EndAt, &s.IsBooked, &s.ConsultationID, &s.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Slot{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Slot{}, domain.ErrSlotNotFound
		}
		return domain.Slot{}, fmt.Errorf("get slot: %w", err)
	}
	return s, nil
}

func (r *BookingRepository) SetSlotBooking(ctx context.Context, slotID string, consultationID *string) error {
	const stmt = `
UPDATE consultation_slots
SET is_booked = $2, consultation_id = $3
WHERE id = $1`

	tag, err := r.exec(ctx, stmt, slotID, consultationID != nil, consultationID)
	if err != nil {
		return fmt.Errorf("set slot booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSlotNotFound
	}
	return nil
}

func (r *BookingRepository) DeleteSlot(ctx context.Context, slotID string) error {
	const stmt = `DELETE FROM consultation_slots WHERE id = $1`

	tag, err := r.exec(ctx, stmt, slotID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSlotNotFound
	}
	return nil
}

func (r *BookingRepository) ListOpenSlots(ctx context.Context, doctorID string, from time.Time) ([]domain.Slot, error) {
	const query = `
SELECT id, doctor_id, start_at, end_at, is_booked, consultation_id, created_at
FROM consultation_slots
WHERE doctor_id = $1 AND is_booked = FALSE AND start_at >= $2
ORDER BY start_at ASC`

	rows, err := r.query(ctx, query, doctorID, from)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list open slots: %w", err)
	}
	defer rows.Close()

	var slots []domain.Slot
	for rows.Next() {
		var s domain.Slot
		if err := rows.Scan(&s.ID, &s.DoctorID, &s.StartAt, &s.EndAt, &s.IsBooked, &s.ConsultationID, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, s)
	}
	if rows.Err() != nil {
		if isInvalidUUID(rows.Err()) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate slots: %w", rows.Err())
	}
	return slots, nil
}

func (r *BookingRepository) CreateConsultation(ctx context.Context, c domain.Consultation) error {
	const stmt = `
INSERT INTO consultations (id, patient_id, doctor_id, slot_id, mode, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.exec(ctx, stmt, c.ID, c.PatientID, c.DoctorID, c.SlotID, c.Mode, c.Status, c.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrPatientNotFound
		}
		return fmt.Errorf("create consultation: %w", err)
	}
	return nil
}

func (r *BookingRepository) GetConsultation(ctx context.Context, id string) (domain.Consultation, error) {
	const query = `
SELECT id, patient_id, doctor_id, slot_id, mode, status, created_at
FROM consultations
WHERE id = $1`

	var c domain.Consultation
	err := r.queryRow(ctx, query, id).
		Scan(&c.ID, &c.PatientID, &c.DoctorID, &c.SlotID, &c.Mode, &c.Status, &c.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Consultation{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Consultation{}, domain.ErrConsultationNotFound
		}
		return domain.Consultation{}, fmt.Errorf("get consultation: %w", err)
	}
	return c, nil
}

func (r *BookingRepository) UpdateConsultationStatus(ctx context.Context, id string, status domain.ConsultationStatus) error {
	const stmt = `UPDATE consultations SET status = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, id, status)
	if err != nil {
		return fmt.Errorf("update consultation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConsultationNotFound
	}
	return nil
}

func (r *BookingRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *BookingRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *BookingRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
