package domain

import "time"

type TreatmentStatus string

const (
	TreatmentOpen      TreatmentStatus = "open"
	TreatmentFunded    TreatmentStatus = "funded"
	TreatmentClosed    TreatmentStatus = "closed"
	TreatmentCancelled TreatmentStatus = "cancelled"
)

// TreatmentRequest carries the funding ledger head: RaisedAmount only moves
// forward, never past GoalAmount, and only inside FundingService transactions.
// Amounts are minor currency units.
type TreatmentRequest struct {
	ID           string
	PatientID    string
	DoctorID     string
	Description  string
	Sponsored    bool
	GoalAmount   int64
	RaisedAmount int64
	Status       TreatmentStatus
	CreatedAt    time.Time
}

// AcceptsDonations reports whether the ledger may still advance. A funded
// request stays formally open to donations but its remaining amount is zero,
// so every positive donation is rejected by the bound check.
func (t TreatmentRequest) AcceptsDonations() bool {
	return t.Status == TreatmentOpen || t.Status == TreatmentFunded
}

// Remaining is the amount still needed to reach the goal.
func (t TreatmentRequest) Remaining() int64 {
	return t.GoalAmount - t.RaisedAmount
}
