package domain

import "time"

// Slot is a doctor-owned bookable time window. IsBooked is true exactly when
// ConsultationID is set; both are flipped together under the slot's row lock.
type Slot struct {
	ID             string
	DoctorID       string
	StartAt        time.Time
	EndAt          time.Time
	IsBooked       bool
	ConsultationID *string
	CreatedAt      time.Time
}
