package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/2eliot/Inefablestore/db"
	"github.com/2eliot/Inefablestore/models"
)

// Config keys
const (
	ConfigExchangeRate = "exchange_rate_bsd_per_usd"
	ConfigPMBank       = "pm_bank"
	ConfigPMName       = "pm_name"
	ConfigPMPhone      = "pm_phone"
	ConfigPMID         = "pm_id"
	ConfigBinanceEmail = "binance_email"
	ConfigBinancePhone = "binance_phone"
)

// ConfigRepository reads and writes the key/value store configuration
type ConfigRepository struct{}

// NewConfigRepository creates a new ConfigRepository
func NewConfigRepository() *ConfigRepository {
	return &ConfigRepository{}
}

// Ensure ConfigRepository implements ConfigRepositoryInterface
var _ ConfigRepositoryInterface = (*ConfigRepository)(nil)

// Get returns the value for key, or "" when unset
func (r *ConfigRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := db.DB.QueryRowContext(ctx, `SELECT value FROM config WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		zap.S().Errorf("❌ Get: Error reading config key=%s: %v", key, err)
		return "", fmt.Errorf("failed to read config %s: %w", key, err)
	}
	return value, nil
}

// Set upserts a config value
func (r *ConfigRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO config (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`
	if _, err := db.DB.ExecContext(ctx, query, key, value); err != nil {
		zap.S().Errorf("❌ Set: Error writing config key=%s: %v", key, err)
		return fmt.Errorf("failed to write config %s: %w", key, err)
	}
	return nil
}

// ExchangeRate returns the configured local units per USD. A missing, unparsable or
// non-positive value reads as zero, meaning unknown.
func (r *ConfigRepository) ExchangeRate(ctx context.Context) (decimal.Decimal, error) {
	raw, err := r.Get(ctx, ConfigExchangeRate)
	if err != nil {
		return decimal.Zero, err
	}
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if raw == "" {
		return decimal.Zero, nil
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil || !rate.IsPositive() {
		zap.S().Warnf("⚠️ ExchangeRate: ignoring invalid rate %q", raw)
		return decimal.Zero, nil
	}
	return rate, nil
}

// Payments returns the destination accounts shown at checkout
func (r *ConfigRepository) Payments(ctx context.Context) (*models.PaymentsConfig, error) {
	rows, err := db.DB.QueryContext(ctx, `SELECT key, value FROM config WHERE key = ANY($1)`,
		[]string{ConfigPMBank, ConfigPMName, ConfigPMPhone, ConfigPMID, ConfigBinanceEmail, ConfigBinancePhone})
	if err != nil {
		zap.S().Errorf("❌ Payments: Error reading payment config: %v", err)
		return nil, fmt.Errorf("failed to read payment config: %w", err)
	}
	defer rows.Close()

	var p models.PaymentsConfig
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan payment config: %w", err)
		}
		switch key {
		case ConfigPMBank:
			p.PMBank = value
		case ConfigPMName:
			p.PMName = value
		case ConfigPMPhone:
			p.PMPhone = value
		case ConfigPMID:
			p.PMID = value
		case ConfigBinanceEmail:
			p.BinanceEmail = value
		case ConfigBinancePhone:
			p.BinancePhone = value
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment config: %w", err)
	}
	return &p, nil
}
