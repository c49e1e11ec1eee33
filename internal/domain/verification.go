package domain

import "time"

// SponsorshipVerification is the receipt review gating a funded request's
// transition to closed. At most one exists per treatment request; rejection
// deletes it so verification can be requested again.
type SponsorshipVerification struct {
	ID                 string
	TreatmentRequestID string
	Approved           bool
	ReceiptURL         string
	CreatedAt          time.Time
}
