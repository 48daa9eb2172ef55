package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/2eliot/Inefablestore/models"
	"github.com/2eliot/Inefablestore/pricing"
	"github.com/2eliot/Inefablestore/storeapi"
)

// DiscountResolver validates referral codes against the backend, once per code and
// session, and resolves the fraction that applies to a given item.
type DiscountResolver struct {
	api    storeapi.DiscountValidator
	group  singleflight.Group
	logger *zap.Logger
}

// NewDiscountResolver creates a resolver over the given validator
func NewDiscountResolver(api storeapi.DiscountValidator, logger *zap.Logger) *DiscountResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscountResolver{api: api, logger: logger}
}

// Validate returns the grant for code, or false when the code is empty, rejected or could
// not be checked. Definitive answers are cached in the session; network failures are not,
// so a later call may try again.
func (r *DiscountResolver) Validate(ctx context.Context, sess *Session, code string, productID int64) (*models.DiscountGrant, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, false
	}
	cacheKey := fmt.Sprintf("%d|%s", productID, code)
	if e, ok := sess.cachedDiscount(cacheKey); ok {
		return e.grant, e.grant != nil
	}

	v, err, _ := r.group.Do(sess.ID+"|"+cacheKey, func() (interface{}, error) {
		grant, err := r.api.ValidateDiscountCode(ctx, code, productID)
		if err != nil {
			if errors.Is(err, storeapi.ErrDiscountRejected) {
				sess.storeDiscount(cacheKey, nil)
				return (*models.DiscountGrant)(nil), nil
			}
			return nil, err
		}
		grant.Discount = pricing.NormalizeFraction(grant.Discount)
		sess.storeDiscount(cacheKey, grant)
		return grant, nil
	})
	if err != nil {
		r.logger.Warn("discount validation failed", zap.String("code", code), zap.Int64("product_id", productID), zap.Error(err))
		return nil, false
	}

	grant := v.(*models.DiscountGrant)
	if grant == nil {
		r.logger.Info("discount code rejected", zap.String("code", code), zap.Int64("product_id", productID))
		return nil, false
	}
	r.logger.Info("discount code granted", zap.String("code", code), zap.String("discount", grant.Discount.String()))
	return grant, true
}

// EffectiveFraction returns the discount for itemID: the item override when the grant lists
// one, else the global fraction, else zero.
func EffectiveFraction(grant *models.DiscountGrant, itemID int64) decimal.Decimal {
	if grant == nil {
		return decimal.Zero
	}
	for _, o := range grant.ItemDiscounts {
		if o.ItemID == itemID {
			return pricing.NormalizeFraction(o.Discount)
		}
	}
	return pricing.NormalizeFraction(grant.Discount)
}
