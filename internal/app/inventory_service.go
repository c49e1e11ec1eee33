package app

import (
	"context"
	"strings"
	"time"

	"github.com/manalBatta/MyHealthPalestine/internal/clock"
	"github.com/manalBatta/MyHealthPalestine/internal/domain"
)

// ListItemsParams selects a sortable column from an allow-list enforced in
// the repository; anything else falls back to the default ordering.
type ListItemsParams struct {
	SortBy string
	Order  string
}

type InventoryRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateItem(ctx context.Context, item domain.InventoryItem) error
	ListItems(ctx context.Context, p ListItemsParams) ([]domain.InventoryItem, error)
	BestSource(ctx context.Context, itemName string, needed int) (string, bool, error)
	BestSourceExcluding(ctx context.Context, itemName string, needed int, excludeSourceID string) (string, bool, error)
	SourceAvailability(ctx context.Context, sourceID, itemName string) (int, error)
	CreateRequest(ctx context.Context, r domain.MedicineRequest) error
	GetRequestForUpdate(ctx context.Context, id string) (domain.MedicineRequest, error)
	SetRequestState(ctx context.Context, id string, status domain.MedicineRequestStatus, assignedSourceID *string) error
	MarkFulfilled(ctx context.Context, id, fulfilledBy string, at time.Time) error
	LockSourceLots(ctx context.Context, sourceID, itemName string) ([]domain.InventoryItem, error)
	SetLotQuantity(ctx context.Context, lotID string, quantity int) error
}

// InventoryService matches medicine requests against lots spread across
// supplying sources and decrements the winning source's lots on fulfillment.
// Matching is a case-insensitive substring comparison on the lot name; see
// DESIGN.md for why that is preserved as-is.
type InventoryService struct {
	repo  InventoryRepository
	clock clock.Clock
}

func NewInventoryService(repo InventoryRepository, clk clock.Clock) *InventoryService {
	return &InventoryService{
		repo:  repo,
		clock: clk,
	}
}

type RegisterItemInput struct {
	SourceID      string
	Name          string
	Type          domain.ItemType
	TotalQuantity int
	Condition     string
	ExpiryDate    *time.Time
}

// RegisterItem records a new lot for a source. A medicine lot whose expiry
// has already passed is stored with condition "expired" and never matched.
func (s *InventoryService) RegisterItem(ctx context.Context, in RegisterItemInput) (domain.InventoryItem, error) {
	if in.SourceID == "" {
		return domain.InventoryItem{}, domain.ErrInvalidID
	}
	if strings.TrimSpace(in.Name) == "" {
		return domain.InventoryItem{}, domain.ErrItemNotFound
	}
	if in.TotalQuantity <= 0 {
		return domain.InventoryItem{}, domain.ErrInvalidQuantity
	}
	if in.Type != domain.ItemMedicine && in.Type != domain.ItemEquipment {
		return domain.InventoryItem{}, domain.ErrItemNotFound
	}

	now := s.clock.Now()
	condition := in.Condition
	if condition == "" {
		condition = "new"
	}

	item := domain.InventoryItem{
		ID:                newID(),
		Name:              strings.TrimSpace(in.Name),
		Type:              in.Type,
		QuantityAvailable: in.TotalQuantity,
		TotalQuantity:     in.TotalQuantity,
		SourceID:          in.SourceID,
		Condition:         condition,
		ExpiryDate:        in.ExpiryDate,
		CreatedAt:         now,
	}
	if item.Expired(now) {
		item.Condition = domain.ConditionExpired
	}

	if err := s.repo.CreateItem(ctx, item); err != nil {
		return domain.InventoryItem{}, err
	}
	return item, nil
}

func (s *InventoryService) ListItems(ctx context.Context, p ListItemsParams) ([]domain.InventoryItem, error) {
	return s.repo.ListItems(ctx, p)
}

type MatchResult struct {
	Status   domain.MedicineRequestStatus
	SourceID *string
}

// MatchAvailability finds the single source whose aggregate remaining
// quantity over matching lots is the largest among those covering the need.
// Partial coverage spread over several sources still reports pending.
func (s *InventoryService) MatchAvailability(ctx context.Context, itemName string, quantityNeeded int) (MatchResult, error) {
	if strings.TrimSpace(itemName) == "" {
		return MatchResult{}, domain.ErrItemNotFound
	}
	if quantityNeeded <= 0 {
		return MatchResult{}, domain.ErrInvalidQuantity
	}

	sourceID, ok, err := s.repo.BestSource(ctx, itemName, quantityNeeded)
	if err != nil {
		return MatchResult{}, err
	}
	if !ok {
		return MatchResult{Status: domain.MedicineRequestPending}, nil
	}
	return MatchResult{Status: domain.MedicineRequestAvailable, SourceID: &sourceID}, nil
}

type CreateRequestInput struct {
	PatientID        string
	ItemName         string
	QuantityNeeded   int
	DeliveryLocation string
}

// CreateRequest persists a medicine request with the status and source the
// initial availability match produced.
func (s *InventoryService) CreateRequest(ctx context.Context, in CreateRequestInput) (domain.MedicineRequest, error) {
	if in.PatientID == "" {
		return domain.MedicineRequest{}, domain.ErrInvalidID
	}

	match, err := s.MatchAvailability(ctx, in.ItemName, in.QuantityNeeded)
	if err != nil {
		return domain.MedicineRequest{}, err
	}

	req := domain.MedicineRequest{
		ID:               newID(),
		PatientID:        in.PatientID,
		ItemName:         strings.TrimSpace(in.ItemName),
		QuantityNeeded:   in.QuantityNeeded,
		DeliveryLocation: in.DeliveryLocation,
		AssignedSourceID: match.SourceID,
		Status:           match.Status,
		CreatedAt:        s.clock.Now(),
	}
	if err := s.repo.CreateRequest(ctx, req); err != nil {
		return domain.MedicineRequest{}, err
	}
	return req, nil
}

// Accept assigns the request to a specific source after re-verifying that
// source's aggregate availability under the request's row lock.
func (s *InventoryService) Accept(ctx context.Context, requestID, sourceID string) (domain.MedicineRequest, error) {
	if requestID == "" || sourceID == "" {
		return domain.MedicineRequest{}, domain.ErrInvalidID
	}

	var result domain.MedicineRequest
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		req, err := s.repo.GetRequestForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}
		if !req.Status.Acceptable() {
			return domain.ErrRequestNotAcceptable
		}

		available, err := s.repo.SourceAvailability(txCtx, sourceID, req.ItemName)
		if err != nil {
			return err
		}
		if available < req.QuantityNeeded {
			return domain.ErrInsufficientInventory
		}

		if err := s.repo.SetRequestState(txCtx, req.ID, domain.MedicineRequestInProgress, &sourceID); err != nil {
			return err
		}
		req.Status = domain.MedicineRequestInProgress
		req.AssignedSourceID = &sourceID
		result = req
		return nil
	})
	if err != nil {
		return domain.MedicineRequest{}, err
	}
	return result, nil
}

// Reject backs the request out of its current assignment and immediately
// re-matches it: when another source now covers the need the request is
// promoted back to available with that source.
func (s *InventoryService) Reject(ctx context.Context, requestID, actorSourceID string) (domain.MedicineRequest, error) {
	if requestID == "" {
		return domain.MedicineRequest{}, domain.ErrInvalidID
	}

	var result domain.MedicineRequest
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		req, err := s.repo.GetRequestForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}

		switch req.Status {
		case domain.MedicineRequestInProgress:
			if req.AssignedSourceID == nil || *req.AssignedSourceID != actorSourceID {
				return domain.ErrSourceMismatch
			}
		case domain.MedicineRequestAvailable:
		default:
			return domain.ErrRequestNotRejectable
		}

		// The rejecting source is out of the running even when it still
		// holds the largest aggregate; the best of the remaining sources
		// decides whether the request is promoted.
		status := domain.MedicineRequestRejected
		var assigned *string
		if src, ok, err := s.repo.BestSourceExcluding(txCtx, req.ItemName, req.QuantityNeeded, actorSourceID); err != nil {
			return err
		} else if ok {
			status = domain.MedicineRequestAvailable
			assigned = &src
		}

		if err := s.repo.SetRequestState(txCtx, req.ID, status, assigned); err != nil {
			return err
		}
		req.Status = status
		req.AssignedSourceID = assigned
		result = req
		return nil
	})
	if err != nil {
		return domain.MedicineRequest{}, err
	}
	return result, nil
}

// Fulfill decrements the assigned source's lots, largest first, until the
// full quantity is consumed. All matching lots are locked before anything is
// decremented; if their aggregate no longer covers the need (inventory moved
// since acceptance) the whole transaction fails and nothing is applied.
func (s *InventoryService) Fulfill(ctx context.Context, requestID, fulfillerID string) (domain.MedicineRequest, error) {
	if requestID == "" || fulfillerID == "" {
		return domain.MedicineRequest{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var result domain.MedicineRequest

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		req, err := s.repo.GetRequestForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}
		if req.Status != domain.MedicineRequestInProgress {
			return domain.ErrRequestNotFulfillable
		}
		if req.AssignedSourceID == nil || *req.AssignedSourceID != fulfillerID {
			return domain.ErrSourceMismatch
		}

		lots, err := s.repo.LockSourceLots(txCtx, *req.AssignedSourceID, req.ItemName)
		if err != nil {
			return err
		}

		total := 0
		for _, lot := range lots {
			total += lot.QuantityAvailable
		}
		if total < req.QuantityNeeded {
			return domain.ErrInsufficientInventory
		}

		remaining := req.QuantityNeeded
		for _, lot := range lots {
			if remaining == 0 {
				break
			}
			take := lot.QuantityAvailable
			if take > remaining {
				take = remaining
			}
			if take == 0 {
				continue
			}
			if err := s.repo.SetLotQuantity(txCtx, lot.ID, lot.QuantityAvailable-take); err != nil {
				return err
			}
			remaining -= take
		}

		if err := s.repo.MarkFulfilled(txCtx, req.ID, fulfillerID, now); err != nil {
			return err
		}

		req.Status = domain.MedicineRequestFulfilled
		req.FulfilledBy = &fulfillerID
		req.FulfilledAt = &now
		result = req
		return nil
	})
	if err != nil {
		return domain.MedicineRequest{}, err
	}
	return result, nil
}

// CancelRequest lets the owning patient abandon a non-terminal request.
func (s *InventoryService) CancelRequest(ctx context.Context, requestID, patientID string) (domain.MedicineRequest, error) {
	if requestID == "" || patientID == "" {
		return domain.MedicineRequest{}, domain.ErrInvalidID
	}

	var result domain.MedicineRequest
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		req, err := s.repo.GetRequestForUpdate(txCtx, requestID)
		if err != nil {
			return err
		}
		if req.PatientID != patientID {
			return domain.ErrNotAuthorized
		}
		if req.Status.Terminal() {
			return domain.ErrRequestTerminal
		}

		if err := s.repo.SetRequestState(txCtx, req.ID, domain.MedicineRequestCancelled, nil); err != nil {
			return err
		}
		req.Status = domain.MedicineRequestCancelled
		req.AssignedSourceID = nil
		result = req
		return nil
	})
	if err != nil {
		return domain.MedicineRequest{}, err
	}
	return result, nil
}
