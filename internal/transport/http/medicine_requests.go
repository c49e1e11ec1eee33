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

// MedicineRequestService is the minimal interface needed for medicine
// request endpoints.
type MedicineRequestService interface {
	CreateRequest(ctx context.Context, in app.CreateRequestInput) (domain.MedicineRequest, error)
	Accept(ctx context.Context, requestID, sourceID string) (domain.MedicineRequest, error)
	Reject(ctx context.Context, requestID, actorSourceID string) (domain.MedicineRequest, error)
	Fulfill(ctx context.Context, requestID, fulfillerID string) (domain.MedicineRequest, error)
	CancelRequest(ctx context.Context, requestID, patientID string) (domain.MedicineRequest, error)
}

// HandleCreateMedicineRequest returns an HTTP handler for raising a medicine
// request. The availability match runs before the insert, so the created
// request already carries pending or available with its assigned source.
func HandleCreateMedicineRequest(svc MedicineRequestService) http.HandlerFunc {
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
			writeError(w, http.StatusForbidden, codeForbidden, "only patients may request medicine")
			return
		}

		var req createMedicineRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		created, err := svc.CreateRequest(r.Context(), app.CreateRequestInput{
			PatientID:        actor.ID,
			ItemName:         req.ItemNameRequested,
			QuantityNeeded:   req.QuantityNeeded,
			DeliveryLocation: req.DeliveryLocation,
		})
		if err != nil {
			writeMedicineRequestError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toMedicineRequestResponse(created))
	}
}

// HandleMedicineRequestAction returns an HTTP handler for the accept,
// reject, fulfill and cancel transitions.
func HandleMedicineRequestAction(svc MedicineRequestService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, action, ok := parseMedicineRequestActionPath(r.URL.Path)
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

		var (
			updated domain.MedicineRequest
			err     error
		)
		switch action {
		case "accept":
			if actor.Role != domain.RoleSource {
				writeError(w, http.StatusForbidden, codeForbidden, "only sources may accept requests")
				return
			}
			updated, err = svc.Accept(r.Context(), requestID, actor.ID)
		case "reject":
			if actor.Role != domain.RoleSource {
				writeError(w, http.StatusForbidden, codeForbidden, "only sources may reject requests")
				return
			}
			updated, err = svc.Reject(r.Context(), requestID, actor.ID)
		case "fulfill":
			if actor.Role != domain.RoleSource {
				writeError(w, http.StatusForbidden, codeForbidden, "only sources may fulfill requests")
				return
			}
			updated, err = svc.Fulfill(r.Context(), requestID, actor.ID)
		case "cancel":
			if actor.Role != domain.RolePatient {
				writeError(w, http.StatusForbidden, codeForbidden, "only the requesting patient may cancel")
				return
			}
			updated, err = svc.CancelRequest(r.Context(), requestID, actor.ID)
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if err != nil {
			writeMedicineRequestError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toMedicineRequestResponse(updated))
	}
}

func writeMedicineRequestError(w http.ResponseWriter, err error) {
	switch err {
	case domain.ErrRequestNotFound:
		writeError(w, http.StatusNotFound, codeRequestNotFound, err.Error())
	case domain.ErrItemNotFound:
		writeError(w, http.StatusBadRequest, codeItemNotFound, err.Error())
	case domain.ErrInvalidQuantity:
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case domain.ErrRequestNotAcceptable, domain.ErrRequestNotRejectable, domain.ErrRequestNotFulfillable:
		writeError(w, http.StatusConflict, codeRequestNotActionable, err.Error())
	case domain.ErrRequestTerminal:
		writeError(w, http.StatusConflict, codeRequestTerminal, err.Error())
	case domain.ErrSourceMismatch:
		writeError(w, http.StatusForbidden, codeSourceMismatch, err.Error())
	case domain.ErrInsufficientInventory:
		writeError(w, http.StatusConflict, codeInsufficientStock, err.Error())
	case domain.ErrNotAuthorized:
		writeError(w, http.StatusForbidden, codeForbidden, err.Error())
	case domain.ErrInvalidID:
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func parseMedicineRequestActionPath(path string) (string, string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "medicine-requests" || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

type createMedicineRequest struct {
	ItemNameRequested string `json:"item_name_requested"`
	QuantityNeeded    int    `json:"quantity_needed"`
	DeliveryLocation  string `json:"delivery_location,omitempty"`
}

type medicineRequestResponse struct {
	ID                string     `json:"id"`
	PatientID         string     `json:"patient_id"`
	ItemNameRequested string     `json:"item_name_requested"`
	QuantityNeeded    int        `json:"quantity_needed"`
	DeliveryLocation  string     `json:"delivery_location"`
	AssignedSourceID  *string    `json:"assigned_source_id"`
	Status            string     `json:"status"`
	FulfilledBy       *string    `json:"fulfilled_by,omitempty"`
	FulfilledAt       *time.Time `json:"fulfilled_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func toMedicineRequestResponse(m domain.MedicineRequest) medicineRequestResponse {
	return medicineRequestResponse{
		ID:                m.ID,
		PatientID:         m.PatientID,
		ItemNameRequested: m.ItemName,
		QuantityNeeded:    m.QuantityNeeded,
		DeliveryLocation:  m.DeliveryLocation,
		AssignedSourceID:  m.AssignedSourceID,
		Status:            string(m.Status),
		FulfilledBy:       m.FulfilledBy,
		FulfilledAt:       m.FulfilledAt,
		CreatedAt:         m.CreatedAt,
	}
}
