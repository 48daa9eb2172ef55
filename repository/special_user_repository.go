package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/2eliot/Inefablestore/db"
	"github.com/2eliot/Inefablestore/models"
)

// SpecialUserRepository handles database operations for referral codes
type SpecialUserRepository struct{}

// NewSpecialUserRepository creates a new SpecialUserRepository
func NewSpecialUserRepository() *SpecialUserRepository {
	return &SpecialUserRepository{}
}

// Ensure SpecialUserRepository implements SpecialUserRepositoryInterface
var _ SpecialUserRepositoryInterface = (*SpecialUserRepository)(nil)

// GetByCode returns the active special user owning code, matched case-insensitively
func (r *SpecialUserRepository) GetByCode(ctx context.Context, code string) (*models.SpecialUser, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrNotFound
	}

	query := `
		SELECT id, name, code, discount_percent, scope, scope_package_id, active
		FROM special_users
		WHERE LOWER(code) = LOWER($1) AND active = TRUE
	`
	var su models.SpecialUser
	var scopePackageID sql.NullInt64
	err := db.DB.QueryRowContext(ctx, query, code).Scan(
		&su.ID,
		&su.Name,
		&su.Code,
		&su.DiscountPercent,
		&su.Scope,
		&scopePackageID,
		&su.Active,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		zap.S().Errorf("❌ GetByCode: Error fetching special user: %v", err)
		return nil, fmt.Errorf("failed to fetch special user: %w", err)
	}
	if scopePackageID.Valid {
		id := scopePackageID.Int64
		su.ScopePackageID = &id
	}
	return &su, nil
}

// ItemDiscounts returns the per-item overrides of a special user as fractions
func (r *SpecialUserRepository) ItemDiscounts(ctx context.Context, specialUserID int64) ([]models.ItemDiscount, error) {
	query := `
		SELECT item_id, discount_percent
		FROM special_user_item_discounts
		WHERE special_user_id = $1
		ORDER BY item_id
	`
	rows, err := db.DB.QueryContext(ctx, query, specialUserID)
	if err != nil {
		zap.S().Errorf("❌ ItemDiscounts: Error querying overrides: %v", err)
		return nil, fmt.Errorf("failed to query item discounts: %w", err)
	}
	defer rows.Close()

	var out []models.ItemDiscount
	for rows.Next() {
		var d models.ItemDiscount
		if err := rows.Scan(&d.ItemID, &d.Discount); err != nil {
			return nil, fmt.Errorf("failed to scan item discount: %w", err)
		}
		d.Discount = models.PercentToFraction(d.Discount)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item discounts: %w", err)
	}
	return out, nil
}
