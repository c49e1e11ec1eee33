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

// ConsultationService is the minimal interface needed for consultation endpoints.
type ConsultationService interface {
	Book(ctx context.Context, in app.BookInput) (domain.Consultation, error)
	UpdateStatus(ctx context.Context, consultationID string, newStatus domain.ConsultationStatus, actor app.Actor) (domain.Consultation, error)
}

// HandleCreateConsultation returns an HTTP handler for booking a slot.
func HandleCreateConsultation(svc ConsultationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		if actor.Role != domain.RolePatient {
			writeError(w, http.StatusForbidden, codeForbidden, "only patients may book consultations")
			return
		}

		var req createConsultationRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.DoctorID == "" || req.SlotID == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "doctor_id and slot_id are required")
			return
		}

		consultation, err := svc.Book(r.Context(), app.BookInput{
			PatientID: actor.ID,
			DoctorID:  req.DoctorID,
			SlotID:    req.SlotID,
			Mode:      req.Mode,
		})
		if err != nil {
			switch err {
			case domain.ErrSlotNotFound:
				writeError(w, http.StatusNotFound, codeSlotNotFound, err.Error())
			case domain.ErrDoctorNotFound:
				writeError(w, http.StatusNotFound, codeDoctorNotFound, err.Error())
			case domain.ErrSlotDoctorMismatch:
				writeError(w, http.StatusBadRequest, codeSlotDoctorMismatch, err.Error())
			case domain.ErrSlotAlreadyBooked:
				writeError(w, http.StatusConflict, codeSlotAlreadyBooked, err.Error())
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusCreated, toConsultationResponse(consultation))
	}
}

// HandleConsultationStatus returns an HTTP handler for status transitions.
func HandleConsultationStatus(svc ConsultationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		consultationID, ok := parseConsultationStatusPath(r.URL.Path)
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

		var req updateConsultationStatusRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.Status == "" {
			writeError(w, http.StatusBadRequest, codeMissingRequiredField, "status is required")
			return
		}

		consultation, err := svc.UpdateStatus(r.Context(), consultationID, domain.ConsultationStatus(req.Status), actor)
		if err != nil {
			switch err {
			case domain.ErrConsultationNotFound:
				writeError(w, http.StatusNotFound, codeConsultationNotFound, err.Error())
			case domain.ErrSlotNotFound:
				writeError(w, http.StatusNotFound, codeSlotNotFound, err.Error())
			case domain.ErrInvalidStatus:
				writeError(w, http.StatusBadRequest, codeInvalidStatus, err.Error())
			case domain.ErrStatusNotAllowed:
				writeError(w, http.StatusConflict, codeStatusNotAllowed, err.Error())
			case domain.ErrNotAuthorized:
				writeError(w, http.StatusForbidden, codeForbidden, err.Error())
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, toConsultationResponse(consultation))
	}
}

func parseConsultationStatusPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "consultations" || parts[2] != "status" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type createConsultationRequest struct {
	DoctorID string `json:"doctor_id"`
	SlotID   string `json:"slot_id"`
	Mode     string `json:"mode,omitempty"`
}

type updateConsultationStatusRequest struct {
	Status string `json:"status"`
}

type consultationResponse struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patient_id"`
	DoctorID  string    `json:"doctor_id"`
	SlotID    string    `json:"slot_id"`
	Mode      string    `json:"mode"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func toConsultationResponse(c domain.Consultation) consultationResponse {
	return consultationResponse{
		ID:        c.ID,
		PatientID: c.PatientID,
		DoctorID:  c.DoctorID,
		SlotID:    c.SlotID,
		Mode:      c.Mode,
		Status:    string(c.Status),
		CreatedAt: c.CreatedAt,
	}
}
