package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/manalBatta/MyHealthPalestine/internal/app"
	"github.com/manalBatta/MyHealthPalestine/internal/domain"
)

// DonationRecorder is the minimal interface needed for the donation endpoint.
type DonationRecorder interface {
	RecordDonation(ctx context.Context, in app.DonationInput) (domain.Donation, error)
}

// HandleCreateDonation returns an HTTP handler for direct donations.
func HandleCreateDonation(svc DonationRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		if actor.Role != domain.RoleDonor && actor.Role != domain.RoleAdmin {
			writeError(w, http.StatusForbidden, codeForbidden, "only donors may donate")
			return
		}

		var req createDonationRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.TreatmentRequestID == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "treatment_request_id is required")
			return
		}

		donation, err := svc.RecordDonation(r.Context(), app.DonationInput{
			TreatmentRequestID: req.TreatmentRequestID,
			DonorID:            actor.ID,
			Amount:             req.Amount,
		})
		if err != nil {
			writeDonationError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toDonationResponse(donation))
	}
}

// writeDonationError maps ledger errors for both the donation endpoint and
// the payment webhook. A rejection that exceeds the remaining amount carries
// that amount in the body.
func writeDonationError(w http.ResponseWriter, err error) {
	var exceeds *domain.ExceedsRemainingError
	if errors.As(err, &exceeds) {
		remaining := exceeds.Remaining
		writeErrorResponse(w, http.StatusBadRequest, errorResponse{
			Error:           err.Error(),
			Code:            codeExceedsRemaining,
			RemainingAmount: &remaining,
		})
		return
	}

	switch err {
	case domain.ErrTreatmentNotFound:
		writeError(w, http.StatusNotFound, codeTreatmentNotFound, err.Error())
	case domain.ErrNotSponsored:
		writeError(w, http.StatusBadRequest, codeNotSponsored, err.Error())
	case domain.ErrInvalidGoalAmount:
		writeError(w, http.StatusBadRequest, codeInvalidGoalAmount, err.Error())
	case domain.ErrInvalidAmount:
		writeError(w, http.StatusBadRequest, codeInvalidAmount, err.Error())
	case domain.ErrDonationsNotOpen:
		writeError(w, http.StatusConflict, codeDonationsNotOpen, err.Error())
	case domain.ErrInvalidID:
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

type createDonationRequest struct {
	TreatmentRequestID string `json:"treatment_request_id"`
	Amount             int64  `json:"amount"`
}

type donationResponse struct {
	ID                 string    `json:"id"`
	TreatmentRequestID string    `json:"treatment_request_id"`
	DonorID            string    `json:"donor_id"`
	Amount             int64     `json:"amount"`
	DonatedAt          time.Time `json:"donated_at"`
}

func toDonationResponse(d domain.Donation) donationResponse {
	return donationResponse{
		ID:                 d.ID,
		TreatmentRequestID: d.TreatmentRequestID,
		DonorID:            d.DonorID,
		Amount:             d.Amount,
		DonatedAt:          d.DonatedAt,
	}
}
