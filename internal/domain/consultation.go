package domain

import "time"

type ConsultationStatus string

const (
	ConsultationPending   ConsultationStatus = "pending"
	ConsultationConfirmed ConsultationStatus = "confirmed"
	ConsultationCompleted ConsultationStatus = "completed"
	ConsultationCancelled ConsultationStatus = "cancelled"
)

// Consultation is created atomically with booking its slot; cancelling it
// frees the slot in the same transaction.
type Consultation struct {
	ID        string
	PatientID string
	DoctorID  string
	SlotID    string
	Mode      string
	Status    ConsultationStatus
	CreatedAt time.Time
}

// Terminal reports whether no further status transitions are allowed.
func (s ConsultationStatus) Terminal() bool {
	return s == ConsultationCompleted || s == ConsultationCancelled
}

func ValidConsultationStatus(s string) bool {
	switch ConsultationStatus(s) {
	case ConsultationPending, ConsultationConfirmed, ConsultationCompleted, ConsultationCancelled:
		return true
	}
	return false
}
