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

// TreatmentService is the minimal interface needed for treatment request
// endpoints.
type TreatmentService interface {
	CreateTreatmentRequest(ctx context.Context, in app.CreateTreatmentInput) (domain.TreatmentRequest, error)
	GetTreatmentRequest(ctx context.Context, id string) (domain.TreatmentRequest, error)
}

// HandleTreatments returns an HTTP handler for creating treatment requests.
func HandleTreatments(svc TreatmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		if actor.Role != domain.RoleDoctor {
			writeError(w, http.StatusForbidden, codeForbidden, "only doctors may raise treatment requests")
			return
		}

		var req createTreatmentRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.PatientID == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "patient_id is required")
			return
		}

		tr, err := svc.CreateTreatmentRequest(r.Context(), app.CreateTreatmentInput{
			PatientID:   req.PatientID,
			DoctorID:    actor.ID,
			Description: req.Description,
			Sponsored:   req.Sponsored,
			GoalAmount:  req.GoalAmount,
		})
		if err != nil {
			switch err {
			case domain.ErrInvalidGoalAmount:
				writeError(w, http.StatusBadRequest, codeInvalidGoalAmount, err.Error())
			case domain.ErrPatientNotFound:
				writeError(w, http.StatusNotFound, codeNotFound, err.Error())
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusCreated, toTreatmentResponse(tr))
	}
}

// HandleTreatmentByID returns an HTTP handler for fetching one treatment
// request.
func HandleTreatmentByID(svc TreatmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		treatmentID, ok := parseTreatmentPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		tr, err := svc.GetTreatmentRequest(r.Context(), treatmentID)
		if err != nil {
			switch err {
			case domain.ErrTreatmentNotFound:
				writeError(w, http.StatusNotFound, codeTreatmentNotFound, err.Error())
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, toTreatmentResponse(tr))
	}
}

func parseTreatmentPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] != "treatment-requests" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type createTreatmentRequest struct {
	PatientID   string `json:"patient_id"`
	Description string `json:"description,omitempty"`
	Sponsored   bool   `json:"sponsored"`
	GoalAmount  int64  `json:"goal_amount,omitempty"`
}

type treatmentResponse struct {
	ID              string    `json:"id"`
	PatientID       string    `json:"patient_id"`
	DoctorID        string    `json:"doctor_id"`
	Description     string    `json:"description"`
	Sponsored       bool      `json:"sponsored"`
	GoalAmount      int64     `json:"goal_amount"`
	RaisedAmount    int64     `json:"raised_amount"`
	RemainingAmount int64     `json:"remaining_amount"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

func toTreatmentResponse(tr domain.TreatmentRequest) treatmentResponse {
	return treatmentResponse{
		ID:              tr.ID,
		PatientID:       tr.PatientID,
		DoctorID:        tr.DoctorID,
		Description:     tr.Description,
		Sponsored:       tr.Sponsored,
		GoalAmount:      tr.GoalAmount,
		RaisedAmount:    tr.RaisedAmount,
		RemainingAmount: tr.Remaining(),
		Status:          string(tr.Status),
		CreatedAt:       tr.CreatedAt,
	}
}
