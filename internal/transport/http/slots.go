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

// SlotService is the minimal interface needed for slot endpoints.
type SlotService interface {
	CreateSlots(ctx context.Context, in app.CreateSlotsInput) ([]domain.Slot, error)
	ListSlots(ctx context.Context, doctorID string) ([]domain.Slot, error)
	DeleteSlot(ctx context.Context, slotID string, actor app.Actor) error
}

// HandleSlots returns an HTTP handler for creating and listing slots.
func HandleSlots(svc SlotService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			doctorID := r.URL.Query().Get("doctor_id")
			if doctorID == "" {
				writeError(w, http.StatusBadRequest, codeMissingRequiredField, "doctor_id is required")
				return
			}
			slots, err := svc.ListSlots(r.Context(), doctorID)
			if err != nil {
				switch err {
				case domain.ErrInvalidID:
					writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
				default:
					writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				}
				return
			}
			writeJSON(w, http.StatusOK, slotsResponse{Slots: toSlotResponses(slots)})
			return
		case http.MethodPost:
			actor, ok := requireActor(w, r)
			if !ok {
				return
			}
			if actor.Role != domain.RoleDoctor {
				writeError(w, http.StatusForbidden, codeForbidden, "only doctors may create slots")
				return
			}

			var req createSlotsRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			start, err := time.Parse(time.RFC3339, req.StartDatetime)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidDatetime, "invalid start_datetime format")
				return
			}
			end, err := time.Parse(time.RFC3339, req.EndDatetime)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidDatetime, "invalid end_datetime format")
				return
			}

			slots, err := svc.CreateSlots(r.Context(), app.CreateSlotsInput{
				DoctorID:        actor.ID,
				StartAt:         start,
				EndAt:           end,
				RecurrenceCount: req.RecurrenceCount,
				IntervalDays:    req.RecurrenceIntervalDays,
			})
			if err != nil {
				switch err {
				case domain.ErrInvalidSlotWindow:
					writeError(w, http.StatusBadRequest, codeInvalidDatetime, err.Error())
				case domain.ErrInvalidRecurrence:
					writeError(w, http.StatusBadRequest, codeInvalidRecurrence, err.Error())
				case domain.ErrSlotAlreadyExists:
					writeError(w, http.StatusConflict, codeSlotExists, err.Error())
				case domain.ErrDoctorNotFound:
					writeError(w, http.StatusNotFound, codeDoctorNotFound, err.Error())
				case domain.ErrInvalidID:
					writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
				default:
					writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				}
				return
			}

			writeJSON(w, http.StatusCreated, slotsResponse{Slots: toSlotResponses(slots)})
			return
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
	}
}

// HandleSlotByID returns an HTTP handler for deleting a slot.
func HandleSlotByID(svc SlotService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slotID, ok := parseSlotPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodDelete {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		if err := svc.DeleteSlot(r.Context(), slotID, actor); err != nil {
			switch err {
			case domain.ErrSlotNotFound:
				writeError(w, http.StatusNotFound, codeSlotNotFound, err.Error())
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case domain.ErrNotAuthorized:
				writeError(w, http.StatusForbidden, codeForbidden, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func parseSlotPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] != "consultation-slots" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type createSlotsRequest struct {
	StartDatetime          string `json:"start_datetime"`
	EndDatetime            string `json:"end_datetime"`
	RecurrenceCount        int    `json:"recurrence_count,omitempty"`
	RecurrenceIntervalDays int    `json:"recurrence_interval_days,omitempty"`
}

type slotResponse struct {
	ID            string    `json:"id"`
	DoctorID      string    `json:"doctor_id"`
	StartDatetime time.Time `json:"start_datetime"`
	EndDatetime   time.Time `json:"end_datetime"`
	IsBooked      bool      `json:"is_booked"`
}

type slotsResponse struct {
	Slots []slotResponse `json:"slots"`
}

func toSlotResponses(slots []domain.Slot) []slotResponse {
	out := make([]slotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotResponse{
			ID:            s.ID,
			DoctorID:      s.DoctorID,
			StartDatetime: s.StartAt,
			EndDatetime:   s.EndAt,
			IsBooked:      s.IsBooked,
		})
	}
	return out
}
