package domain

import "time"

type MedicineRequestStatus string

const (
	MedicineRequestPending    MedicineRequestStatus = "pending"
	MedicineRequestAvailable  MedicineRequestStatus = "available"
	MedicineRequestInProgress MedicineRequestStatus = "in_progress"
	MedicineRequestFulfilled  MedicineRequestStatus = "fulfilled"
	MedicineRequestRejected   MedicineRequestStatus = "rejected"
	MedicineRequestCancelled  MedicineRequestStatus = "cancelled"
)

// MedicineRequest asks for a quantity of a named item from any source.
// Lifecycle: pending/available/rejected -> in_progress -> fulfilled (terminal),
// in_progress/available -> rejected, any non-terminal -> cancelled (terminal).
type MedicineRequest struct {
	ID               string
	PatientID        string
	ItemName         string
	QuantityNeeded   int
	DeliveryLocation string
	AssignedSourceID *string
	Status           MedicineRequestStatus
	FulfilledBy      *string
	FulfilledAt      *time.Time
	CreatedAt        time.Time
}

// Terminal reports whether the request can never change state again.
func (s MedicineRequestStatus) Terminal() bool {
	return s == MedicineRequestFulfilled || s == MedicineRequestCancelled
}

// Acceptable reports whether a source may take the request on.
func (s MedicineRequestStatus) Acceptable() bool {
	return s == MedicineRequestPending || s == MedicineRequestAvailable || s == MedicineRequestRejected
}
