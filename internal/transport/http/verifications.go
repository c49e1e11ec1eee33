package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/manalBatta/MyHealthPalestine/internal/app"
	"github.com/manalBatta/MyHealthPalestine/internal/domain"
)

// VerificationService is the minimal interface needed for sponsorship
// verification endpoints.
type VerificationService interface {
	RequestVerification(ctx context.Context, in app.RequestVerificationInput) (domain.SponsorshipVerification, error)
	DecideVerification(ctx context.Context, verificationID string, approved bool) (*domain.SponsorshipVerification, error)
}

// HandleCreateVerification returns an HTTP handler for opening a receipt
// review on a funded treatment request.
func HandleCreateVerification(svc VerificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		if actor.Role != domain.RoleDoctor && actor.Role != domain.RoleAdmin {
			writeError(w, http.StatusForbidden, codeForbidden, "only doctors may submit receipts")
			return
		}

		var req createVerificationRequest
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

		v, err := svc.RequestVerification(r.Context(), app.RequestVerificationInput{
			TreatmentRequestID: req.TreatmentRequestID,
			ReceiptURL:         req.ReceiptURL,
		})
		if err != nil {
			switch err {
			case domain.ErrTreatmentNotFound:
				writeError(w, http.StatusNotFound, codeTreatmentNotFound, err.Error())
			case domain.ErrNotSponsored:
				writeError(w, http.StatusBadRequest, codeNotSponsored, err.Error())
			case domain.ErrVerificationNotDue:
				writeError(w, http.StatusConflict, codeVerificationNotDue, err.Error())
			case domain.ErrVerificationExists:
				writeError(w, http.StatusConflict, codeVerificationExists, err.Error())
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusCreated, toVerificationResponse(v))
	}
}

// HandleDecideVerification returns an HTTP handler for approving or
// rejecting a pending verification.
func HandleDecideVerification(svc VerificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		verificationID, ok := parseVerificationDecidePath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodPut {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		if actor.Role != domain.RoleAdmin {
			writeError(w, http.StatusForbidden, codeForbidden, "only admins may decide verifications")
			return
		}

		var req decideVerificationRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.Approved == nil {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "approved is required")
			return
		}

		v, err := svc.DecideVerification(r.Context(), verificationID, *req.Approved)
		if err != nil {
			switch err {
			case domain.ErrVerificationNotFound:
				writeError(w, http.StatusNotFound, codeVerificationNotFound, err.Error())
			case domain.ErrTreatmentNotFound:
				writeError(w, http.StatusNotFound, codeTreatmentNotFound, err.Error())
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		if v == nil {
			// Rejected: the verification record is gone and the treatment
			// request is open for re-verification.
			writeJSON(w, http.StatusOK, decideVerificationResponse{Approved: false})
			return
		}
		resp := toVerificationResponse(*v)
		writeJSON(w, http.StatusOK, decideVerificationResponse{Approved: true, Verification: &resp})
	}
}

func parseVerificationDecidePath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "sponsorship-verifications" || parts[2] != "approve" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type createVerificationRequest struct {
	TreatmentRequestID string `json:"treatment_request_id"`
	ReceiptURL         string `json:"receipt_url,omitempty"`
}

type decideVerificationRequest struct {
	Approved *bool `json:"approved"`
}

type verificationResponse struct {
	ID                 string    `json:"id"`
	TreatmentRequestID string    `json:"treatment_request_id"`
	ReceiptURL         string    `json:"receipt_url"`
	Approved           bool      `json:"approved"`
	CreatedAt          time.Time `json:"created_at"`
}

type decideVerificationResponse struct {
	Approved     bool                  `json:"approved"`
	Verification *verificationResponse `json:"verification,omitempty"`
}

func toVerificationResponse(v domain.SponsorshipVerification) verificationResponse {
	return verificationResponse{
		ID:                 v.ID,
		TreatmentRequestID: v.TreatmentRequestID,
		ReceiptURL:         v.ReceiptURL,
		Approved:           v.Approved,
		CreatedAt:          v.CreatedAt,
	}
}
