package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/2eliot/Inefablestore/db"
	"github.com/2eliot/Inefablestore/models"
)

const (
	pgUniqueViolation        = "23505"
	liveReferenceConstraint  = "uq_orders_live_reference"
	idempotencyKeyConstraint = "uq_orders_idempotency_key"
	orderColumns             = `id, status, store_package_id, item_id, quantity, method, currency, amount, reference, name, email, phone, customer_id, customer_zone, special_code, special_user_id, created_at`
)

// OrderRepository handles database operations for orders
type OrderRepository struct{}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{}
}

// Ensure OrderRepository implements OrderRepositoryInterface
var _ OrderRepositoryInterface = (*OrderRepository)(nil)

// Create inserts a pending order. When order carries an idempotency key already used,
// the existing order is returned with created=false. A reference claimed by another
// pending or approved order yields ErrReferenceTaken.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) (*models.Order, bool, error) {
	zap.S().Infof("📦 Create: Creating order store_package_id=%d reference=%s", order.StorePackageID, order.Reference)

	if key := strings.TrimSpace(order.IdempotencyKey); key != "" {
		existing, err := r.getByIdempotencyKey(ctx, key)
		if err == nil {
			zap.S().Infof("♻️ Create: Replaying order id=%d for idempotency key", existing.ID)
			return existing, false, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, false, err
		}
	}

	query := `
		INSERT INTO orders (status, store_package_id, item_id, quantity, method, currency, amount, reference,
			name, email, phone, customer_id, customer_zone, special_code, special_user_id, idempotency_key)
		VALUES ('pending', $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING ` + orderColumns

	var itemID, specialUserID sql.NullInt64
	if order.ItemID != nil {
		itemID = sql.NullInt64{Int64: *order.ItemID, Valid: true}
	}
	if order.SpecialUserID != nil {
		specialUserID = sql.NullInt64{Int64: *order.SpecialUserID, Valid: true}
	}
	key := sql.NullString{String: strings.TrimSpace(order.IdempotencyKey), Valid: strings.TrimSpace(order.IdempotencyKey) != ""}

	row := db.DB.QueryRowContext(ctx, query,
		order.StorePackageID,
		itemID,
		order.Quantity,
		order.Method,
		order.Currency,
		order.Amount,
		order.Reference,
		order.Name,
		order.Email,
		order.Phone,
		order.CustomerID,
		order.CustomerZone,
		order.SpecialCode,
		specialUserID,
		key,
	)
	created, err := scanOrder(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			switch pgErr.ConstraintName {
			case liveReferenceConstraint:
				zap.S().Warnf("⚠️ Create: Reference %s already claimed", order.Reference)
				return nil, false, ErrReferenceTaken
			case idempotencyKeyConstraint:
				// a concurrent request with the same key won the insert
				existing, lookupErr := r.getByIdempotencyKey(ctx, key.String)
				if lookupErr != nil {
					return nil, false, lookupErr
				}
				return existing, false, nil
			}
		}
		zap.S().Errorf("❌ Create: Error creating order: %v", err)
		return nil, false, fmt.Errorf("failed to create order: %w", err)
	}

	zap.S().Infof("✅ Create: Successfully created order id=%d", created.ID)
	return created, true, nil
}

// ReferenceExists reports whether a pending or approved order claims reference
func (r *OrderRepository) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM orders WHERE reference = $1 AND status IN ('pending', 'approved'))`
	if err := db.DB.QueryRowContext(ctx, query, reference).Scan(&exists); err != nil {
		zap.S().Errorf("❌ ReferenceExists: Error checking reference: %v", err)
		return false, fmt.Errorf("failed to check reference: %w", err)
	}
	return exists, nil
}

// IsBlocked reports whether any of the given identifiers is blocked. Empty identifiers
// are ignored; e-mails compare case-insensitively.
func (r *OrderRepository) IsBlocked(ctx context.Context, email, phone, customerID string) (bool, error) {
	var blocked bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM blocked_identifiers
			WHERE (kind = 'email' AND $1 <> '' AND LOWER(value) = LOWER($1))
			   OR (kind = 'phone' AND $2 <> '' AND value = $2)
			   OR (kind = 'customer_id' AND $3 <> '' AND value = $3)
		)
	`
	err := db.DB.QueryRowContext(ctx, query,
		strings.TrimSpace(email),
		strings.TrimSpace(phone),
		strings.TrimSpace(customerID),
	).Scan(&blocked)
	if err != nil {
		zap.S().Errorf("❌ IsBlocked: Error checking blocked identifiers: %v", err)
		return false, fmt.Errorf("failed to check blocked identifiers: %w", err)
	}
	return blocked, nil
}

// PruneBuyerHistory deletes a buyer's orders beyond the newest keep, matching on the
// given e-mail and customer id (both when both are set). A buyer with neither identifier
// is left alone. It returns the number of deleted orders.
func (r *OrderRepository) PruneBuyerHistory(ctx context.Context, email, customerID string, keep int) (int64, error) {
	email = strings.TrimSpace(email)
	customerID = strings.TrimSpace(customerID)
	if (email == "" && customerID == "") || keep <= 0 {
		return 0, nil
	}

	var (
		conds []string
		args  []any
	)
	if email != "" {
		args = append(args, email)
		conds = append(conds, fmt.Sprintf("email = $%d", len(args)))
	}
	if customerID != "" {
		args = append(args, customerID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	args = append(args, keep)
	where := strings.Join(conds, " AND ")

	query := `
		DELETE FROM orders
		WHERE ` + where + `
		  AND id NOT IN (
			SELECT id FROM orders
			WHERE ` + where + `
			ORDER BY created_at DESC, id DESC
			LIMIT $` + fmt.Sprint(len(args)) + `
		  )
	`
	res, err := db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		zap.S().Errorf("❌ PruneBuyerHistory: Error pruning orders: %v", err)
		return 0, fmt.Errorf("failed to prune buyer orders: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to prune buyer orders: %w", err)
	}
	if deleted > 0 {
		zap.S().Infof("🧹 PruneBuyerHistory: Deleted %d old orders", deleted)
	}
	return deleted, nil
}

// GetByID returns an order
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	row := db.DB.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) getByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	row := db.DB.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE idempotency_key = $1`, key)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch order by idempotency key: %w", err)
	}
	o.IdempotencyKey = key
	return o, nil
}

func scanOrder(row *sql.Row) (*models.Order, error) {
	var o models.Order
	var itemID, specialUserID sql.NullInt64
	err := row.Scan(
		&o.ID,
		&o.Status,
		&o.StorePackageID,
		&itemID,
		&o.Quantity,
		&o.Method,
		&o.Currency,
		&o.Amount,
		&o.Reference,
		&o.Name,
		&o.Email,
		&o.Phone,
		&o.CustomerID,
		&o.CustomerZone,
		&o.SpecialCode,
		&specialUserID,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if itemID.Valid {
		id := itemID.Int64
		o.ItemID = &id
	}
	if specialUserID.Valid {
		id := specialUserID.Int64
		o.SpecialUserID = &id
	}
	return &o, nil
}
