package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/manalBatta/MyHealthPalestine/internal/app"
	"github.com/manalBatta/MyHealthPalestine/internal/domain"
)

// InventoryLister is the minimal interface needed for inventory endpoints.
type InventoryLister interface {
	RegisterItem(ctx context.Context, in app.RegisterItemInput) (domain.InventoryItem, error)
	ListItems(ctx context.Context, p app.ListItemsParams) ([]domain.InventoryItem, error)
}

// HandleInventory returns an HTTP handler for registering and listing lots.
func HandleInventory(svc InventoryLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			items, err := svc.ListItems(r.Context(), app.ListItemsParams{
				SortBy: r.URL.Query().Get("sort"),
				Order:  r.URL.Query().Get("order"),
			})
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			writeJSON(w, http.StatusOK, inventoryListResponse{Items: toInventoryResponses(items)})
			return
		case http.MethodPost:
			actor, ok := requireActor(w, r)
			if !ok {
				return
			}
			if actor.Role != domain.RoleSource && actor.Role != domain.RoleAdmin {
				writeError(w, http.StatusForbidden, codeForbidden, "only sources may register inventory")
				return
			}

			var req registerItemRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			var expiry *time.Time
			if req.ExpiryDate != "" {
				t, err := time.Parse(time.RFC3339, req.ExpiryDate)
				if err != nil {
					writeError(w, http.StatusBadRequest, codeInvalidDatetime, "invalid expiry_date format")
					return
				}
				expiry = &t
			}

			item, err := svc.RegisterItem(r.Context(), app.RegisterItemInput{
				SourceID:      actor.ID,
				Name:          req.Name,
				Type:          domain.ItemType(req.Type),
				TotalQuantity: req.TotalQuantity,
				Condition:     req.Condition,
				ExpiryDate:    expiry,
			})
			if err != nil {
				switch err {
				case domain.ErrItemNotFound:
					writeError(w, http.StatusBadRequest, codeItemNotFound, err.Error())
				case domain.ErrInvalidQuantity:
					writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
				case domain.ErrInvalidID:
					writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
				default:
					writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				}
				return
			}

			writeJSON(w, http.StatusCreated, toInventoryResponse(item))
			return
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
	}
}

type registerItemRequest struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	TotalQuantity int    `json:"total_quantity"`
	Condition     string `json:"condition,omitempty"`
	ExpiryDate    string `json:"expiry_date,omitempty"`
}

type inventoryResponse struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Type              string     `json:"type"`
	QuantityAvailable int        `json:"quantity_available"`
	TotalQuantity     int        `json:"total_quantity"`
	SourceID          string     `json:"source_id"`
	Condition         string     `json:"condition"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type inventoryListResponse struct {
	Items []inventoryResponse `json:"items"`
}

func toInventoryResponse(item domain.InventoryItem) inventoryResponse {
	return inventoryResponse{
		ID:                item.ID,
		Name:              item.Name,
		Type:              string(item.Type),
		QuantityAvailable: item.QuantityAvailable,
		TotalQuantity:     item.TotalQuantity,
		SourceID:          item.SourceID,
		Condition:         item.Condition,
		ExpiryDate:        item.ExpiryDate,
		CreatedAt:         item.CreatedAt,
	}
}

func toInventoryResponses(items []domain.InventoryItem) []inventoryResponse {
	out := make([]inventoryResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toInventoryResponse(item))
	}
	return out
}
