package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidID          = errors.New("invalid id")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrDoctorNotFound     = errors.New("doctor not found")
	ErrPatientNotFound    = errors.New("patient not found")
	ErrSlotNotFound       = errors.New("slot not found")
	ErrSlotAlreadyBooked  = errors.New("slot already booked")
	ErrSlotDoctorMismatch = errors.New("slot does not belong to doctor")
	ErrSlotAlreadyExists  = errors.New("slot window already exists")
	ErrInvalidSlotWindow  = errors.New("invalid slot window")
	ErrInvalidRecurrence  = errors.New("invalid recurrence")

	ErrConsultationNotFound = errors.New("consultation not found")
	ErrInvalidStatus        = errors.New("invalid consultation status")
	ErrStatusNotAllowed     = errors.New("status transition not allowed")

	ErrTreatmentNotFound     = errors.New("treatment request not found")
	ErrNotSponsored          = errors.New("treatment request is not sponsored")
	ErrInvalidGoalAmount     = errors.New("invalid goal amount")
	ErrInvalidAmount         = errors.New("invalid donation amount")
	ErrDonationsNotOpen      = errors.New("treatment request does not accept donations")
	ErrDonationNotFound      = errors.New("donation not found")
	ErrDuplicatePaymentEvent = errors.New("payment event already applied")
	ErrVerificationExists    = errors.New("verification already exists")
	ErrVerificationNotFound  = errors.New("verification not found")
	ErrVerificationNotDue    = errors.New("treatment request is not ready for verification")

	ErrItemNotFound          = errors.New("inventory item not found")
	ErrInvalidQuantity       = errors.New("invalid quantity")
	ErrRequestNotFound       = errors.New("medicine request not found")
	ErrRequestNotAcceptable  = errors.New("medicine request cannot be accepted")
	ErrRequestNotRejectable  = errors.New("medicine request cannot be rejected")
	ErrRequestNotFulfillable = errors.New("medicine request cannot be fulfilled")
	ErrRequestTerminal       = errors.New("medicine request is in a terminal state")
	ErrSourceMismatch        = errors.New("source is not assigned to this request")
	ErrInsufficientInventory = errors.New("insufficient inventory at source")
)

// ExceedsRemainingError rejects a donation larger than what the goal still
// needs. Remaining tells the donor the largest amount that would be accepted.
type ExceedsRemainingError struct {
	Remaining int64
}

func (e *ExceedsRemainingError) Error() string {
	return fmt.Sprintf("donation exceeds remaining goal amount (%d left)", e.Remaining)
}
