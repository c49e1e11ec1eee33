package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/manalBatta/MyHealthPalestine/internal/app"
	"github.com/manalBatta/MyHealthPalestine/internal/domain"
)

type InventoryRepository struct {
	pool *pgxpool.Pool
}

func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

func (r *InventoryRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const itemColumns = `id, name, type, quantity_available, total_quantity, source_id, condition, expiry_date, created_at`

// matchable restricts name matching to lots that can still be dispensed:
// stock left, not marked expired, and (for dated lots) not past expiry.
const matchable = `quantity_available > 0 AND condition <> 'expired' AND (expiry_date IS NULL OR expiry_date > NOW())`

func (r *InventoryRepository) CreateItem(ctx context.Context, item domain.InventoryItem) error {
	const stmt = `
INSERT INTO inventory_registry (id, name, type, quantity_available, total_quantity, source_id, condition, expiry_date, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.exec(ctx, stmt,
		item.ID,
		item.Name,
		item.Type,
		item.QuantityAvailable,
		item.TotalQuantity,
		item.SourceID,
		item.Condition,
		item.ExpiryDate,
		item.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrItemNotFound
		}
		return fmt.Errorf("create inventory item: %w", err)
	}
	return nil
}

// sortableItemColumns is the allow-list for client-driven ordering. Column
// names never come from the request; only these enumerated keys do.
var sortableItemColumns = map[string]string{
	"name":        "name",
	"quantity":    "quantity_available",
	"expiry_date": "expiry_date",
	"created_at":  "created_at",
}

func (r *InventoryRepository) ListItems(ctx context.Context, p app.ListItemsParams) ([]domain.InventoryItem, error) {
	column, ok := sortableItemColumns[p.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if p.Order == "desc" {
		direction = "DESC"
	}

	query := `SELECT ` + itemColumns + ` FROM inventory_registry ORDER BY ` + column + ` ` + direction

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()

	var items []domain.InventoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate inventory: %w", rows.Err())
	}
	return items, nil
}

// BestSource groups the remaining quantity of matching lots by source and
// picks the source with the largest aggregate among those covering the need.
func (r *InventoryRepository) BestSource(ctx context.Context, itemName string, needed int) (string, bool, error) {
	const query = `
SELECT source_id, SUM(quantity_available) AS total
FROM inventory_registry
WHERE name ILIKE '%' || $1 || '%' AND ` + matchable + `
GROUP BY source_id
HAVING SUM(quantity_available) >= $2
ORDER BY total DESC
LIMIT 1`

	var sourceID string
	var total int
	err := r.queryRow(ctx, query, itemName, needed).Scan(&sourceID, &total)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("match best source: %w", err)
	}
	return sourceID, true, nil
}

// BestSourceExcluding is BestSource with one source barred from winning,
// used when that source has just rejected the request.
func (r *InventoryRepository) BestSourceExcluding(ctx context.Context, itemName string, needed int, excludeSourceID string) (string, bool, error) {
	const query = `
SELECT source_id, SUM(quantity_available) AS total
FROM inventory_registry
WHERE name ILIKE '%' || $1 || '%' AND source_id <> $3 AND ` + matchable + `
GROUP BY source_id
HAVING SUM(quantity_available) >= $2
ORDER BY total DESC
LIMIT 1`

	var sourceID string
	var total int
	err := r.queryRow(ctx, query, itemName, needed, excludeSourceID).Scan(&sourceID, &total)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", false, nil
		}
		if isInvalidUUID(err) {
			return "", false, domain.ErrInvalidID
		}
		return "", false, fmt.Errorf("match best source excluding: %w", err)
	}
	return sourceID, true, nil
}

func (r *InventoryRepository) SourceAvailability(ctx context.Context, sourceID, itemName string) (int, error) {
	const query = `
SELECT COALESCE(SUM(quantity_available), 0)
FROM inventory_registry
WHERE source_id = $1 AND name ILIKE '%' || $2 || '%' AND ` + matchable

	var total int
	if err := r.queryRow(ctx, query, sourceID, itemName).Scan(&total); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("sum source availability: %w", err)
	}
	return total, nil
}

// LockSourceLots locks every matching lot of one source, largest first. The
// locks are what make the fulfillment decrement race-free: the aggregate is
// re-counted over locked rows before anything is written.
func (r *InventoryRepository) LockSourceLots(ctx context.Context, sourceID, itemName string) ([]domain.InventoryItem, error) {
	const query = `
SELECT ` + itemColumns + `
FROM inventory_registry
WHERE source_id = $1 AND name ILIKE '%' || $2 || '%' AND ` + matchable + `
ORDER BY quantity_available DESC
FOR UPDATE`

	rows, err := r.query(ctx, query, sourceID, itemName)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("lock source lots: %w", err)
	}
	defer rows.Close()

	var lots []domain.InventoryItem
	for rows.Next() {
		lot, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		lots = append(lots, lot)
	}
	if rows.Err() != nil {
		if isInvalidUUID(rows.Err()) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate source lots: %w", rows.Err())
	}
	return lots, nil
}

func (r *InventoryRepository) SetLotQuantity(ctx context.Context, lotID string, quantity int) error {
	const stmt = `UPDATE inventory_registry SET quantity_available = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, lotID, quantity)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInsufficientInventory
		}
		return fmt.Errorf("set lot quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *InventoryRepository) CreateRequest(ctx context.Context, req domain.MedicineRequest) error {
	const stmt = `
INSERT INTO medicine_requests (id, patient_id, item_name_requested, quantity_needed, delivery_location, assigned_source_id, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.exec(ctx, stmt,
		req.ID,
		req.PatientID,
		req.ItemName,
		req.QuantityNeeded,
		req.DeliveryLocation,
		req.AssignedSourceID,
		req.Status,
		req.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrPatientNotFound
		}
		return fmt.Errorf("create medicine request: %w", err)
	}
	return nil
}

func (r *InventoryRepository) GetRequestForUpdate(ctx context.Context, id string) (domain.MedicineRequest, error) {
	const query = `
SELECT id, patient_id, item_name_requested, quantity_needed, delivery_location, assigned_source_id, status, fulfilled_by, fulfilled_at, created_at
FROM medicine_requests
WHERE id = $1
FOR UPDATE`

	var req domain.MedicineRequest
	err := r.queryRow(ctx, query, id).Scan(
		&req.ID,
		&req.PatientID,
		&req.ItemName,
		&req.QuantityNeeded,
		&req.DeliveryLocation,
		&req.AssignedSourceID,
		&req.Status,
		&req.FulfilledBy,
		&req.FulfilledAt,
		&req.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.MedicineRequest{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.MedicineRequest{}, domain.ErrRequestNotFound
		}
		return domain.MedicineRequest{}, fmt.Errorf("get medicine request: %w", err)
	}
	return req, nil
}

func (r *InventoryRepository) SetRequestState(ctx context.Context, id string, status domain.MedicineRequestStatus, assignedSourceID *string) error {
	const stmt = `UPDATE medicine_requests SET status = $2, assigned_source_id = $3 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, id, status, assignedSourceID)
	if err != nil {
		return fmt.Errorf("set request state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRequestNotFound
	}
	return nil
}

func (r *InventoryRepository) MarkFulfilled(ctx context.Context, id, fulfilledBy string, at time.Time) error {
	const stmt = `
UPDATE medicine_requests
SET status = $2, fulfilled_by = $3, fulfilled_at = $4
WHERE id = $1`

	tag, err := r.exec(ctx, stmt, id, domain.MedicineRequestFulfilled, fulfilledBy, at)
	if err != nil {
		return fmt.Errorf("mark fulfilled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRequestNotFound
	}
	return nil
}

func scanItem(rows pgx.Rows) (domain.InventoryItem, error) {
	var item domain.InventoryItem
	if err := rows.Scan(
		&item.ID,
		&item.Name,
		&item.Type,
		&item.QuantityAvailable,
		&item.TotalQuantity,
		&item.SourceID,
		&item.Condition,
		&item.ExpiryDate,
		&item.CreatedAt,
	); err != nil {
		return domain.InventoryItem{}, fmt.Errorf("scan inventory item: %w", err)
	}
	return item, nil
}

func (r *InventoryRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *InventoryRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *InventoryRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
