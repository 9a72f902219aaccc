package oracle

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"positionfarm/internal/model"
)

// PriceCache holds the last observed pool price. Refresh is best effort:
// on failure the previous value is retained and consumers must tolerate
// zero or stale fields.
type PriceCache struct {
	valuator *Valuator

	mu   sync.RWMutex
	info model.PoolPriceInfo
}

func NewPriceCache(valuator *Valuator) *PriceCache {
	return &PriceCache{valuator: valuator}
}

// Refresh reads the current slot0 and pair price into the cache. Errors are
// returned for retry handling but never clear the last-known value.
func (c *PriceCache) Refresh(ctx context.Context) error {
	sqrtP, tick, err := c.valuator.market.Slot0(ctx)
	if err != nil {
		c.valuator.logger.Warn("price cache refresh failed", zap.Error(err))
		c.valuator.emit(model.EventRecord{Type: model.EventOracleUpdateFailed, Detail: err.Error()})
		return err
	}

	info := model.PoolPriceInfo{
		SqrtPriceX96: sqrtP.String(),
		Tick:         tick,
		UpdatedAt:    c.valuator.now(),
	}
	if price, _, perr := c.valuator.PairPrice(ctx); perr == nil {
		info.PairPrice = price.String()
	}
	if liq, lerr := c.valuator.market.Liquidity(ctx); lerr == nil {
		info.Liquidity = liq.String()
	}

	c.mu.Lock()
	c.info = info
	c.mu.Unlock()
	return nil
}

// Current returns the cached price info, possibly zero or stale.
func (c *PriceCache) Current() model.PoolPriceInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.info
}
