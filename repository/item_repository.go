package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/2eliot/Inefablestore/db"
	"github.com/2eliot/Inefablestore/models"
)

// ItemRepository handles database operations for store package items
type ItemRepository struct{}

// NewItemRepository creates a new ItemRepository
func NewItemRepository() *ItemRepository {
	return &ItemRepository{}
}

// Ensure ItemRepository implements ItemRepositoryInterface
var _ ItemRepositoryInterface = (*ItemRepository)(nil)

// ListByPackage returns the active items of an active store package, oldest first.
// A missing or inactive package yields ErrNotFound.
func (r *ItemRepository) ListByPackage(ctx context.Context, storePackageID int64) ([]models.Item, error) {
	zap.S().Debugf("📦 ListByPackage: store_package_id=%d", storePackageID)

	var active bool
	err := db.DB.QueryRowContext(ctx, `SELECT active FROM store_packages WHERE id = $1`, storePackageID).Scan(&active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		zap.S().Errorf("❌ ListByPackage: Error fetching package: %v", err)
		return nil, fmt.Errorf("failed to fetch store package: %w", err)
	}
	if !active {
		return nil, ErrNotFound
	}

	query := `
		SELECT id, title, price, sticker, icon_path
		FROM game_packages
		WHERE store_package_id = $1 AND active = TRUE
		ORDER BY created_at ASC, id ASC
	`
	rows, err := db.DB.QueryContext(ctx, query, storePackageID)
	if err != nil {
		zap.S().Errorf("❌ ListByPackage: Error querying items: %v", err)
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		var it models.Item
		if err := rows.Scan(&it.ID, &it.Title, &it.Price, &it.Sticker, &it.Icon); err != nil {
			zap.S().Errorf("❌ ListByPackage: Error scanning item: %v", err)
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	zap.S().Debugf("✅ ListByPackage: Found %d items for store_package_id=%d", len(items), storePackageID)
	return items, nil
}

// GetByID returns one active item
func (r *ItemRepository) GetByID(ctx context.Context, itemID int64) (*models.Item, error) {
	query := `
		SELECT id, title, price, sticker, icon_path
		FROM game_packages
		WHERE id = $1 AND active = TRUE
	`
	var it models.Item
	err := db.DB.QueryRowContext(ctx, query, itemID).Scan(&it.ID, &it.Title, &it.Price, &it.Sticker, &it.Icon)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		zap.S().Errorf("❌ GetByID: Error fetching item id=%d: %v", itemID, err)
		return nil, fmt.Errorf("failed to fetch item: %w", err)
	}
	return &it, nil
}
