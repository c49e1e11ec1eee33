package domain

import "time"

// Donation is an immutable ledger entry. The sum of a request's donations
// equals its RaisedAmount.
type Donation struct {
	ID                 string
	TreatmentRequestID string
	DonorID            string
	Amount             int64
	DonatedAt          time.Time
}
