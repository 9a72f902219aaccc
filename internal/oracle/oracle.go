package oracle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"go.uber.org/zap"

	"positionfarm/internal/farm"
	"positionfarm/internal/liquidity"
	"positionfarm/internal/model"
)

const (
	// DefaultTWAPWindow is the averaging window for pair prices.
	DefaultTWAPWindow uint32 = 1800
	// DefaultStaleness is the maximum tolerated age of a USD feed reading.
	// Deliberately tighter than the common one-hour bound: a longer bound
	// widens the manipulation window.
	DefaultStaleness int64 = 900
)

var (
	ErrStalePrice       = errors.New("oracle: usd price is stale")
	ErrNonPositivePrice = errors.New("oracle: usd price is not positive")
	ErrZeroSpotPrice    = errors.New("oracle: zero spot price")
)

var q192 = new(big.Int).Lsh(big.NewInt(1), 192)

// Market is the external pool the staked positions belong to.
type Market interface {
	// Slot0 returns the instantaneous sqrt price (Q96) and tick.
	Slot0(ctx context.Context) (sqrtPriceX96 *big.Int, tick int32, err error)
	// Observe returns the tick cumulatives now and window seconds ago.
	// May fail on pools without observation history.
	Observe(ctx context.Context, window uint32) (latest, before int64, err error)
	// Liquidity returns the pool's current in-range liquidity.
	Liquidity(ctx context.Context) (*big.Int, error)
}

// PriceFeed is the external USD price feed for the base asset.
type PriceFeed interface {
	LatestPrice(ctx context.Context) (answer *big.Int, updatedAt int64, err error)
}

// Config describes the pair the valuator prices.
type Config struct {
	// BaseIsToken0 is true when the USD-feed asset is the pool's token0.
	// Token ordering is not guaranteed and must be detected by the caller.
	BaseIsToken0   bool
	BaseDecimals   uint8
	PairedDecimals uint8
	FeedDecimals   uint8
	TWAPWindow     uint32
	Staleness      int64
}

// Valuator composes the manipulation-resistant pair price, the USD feed,
// and the liquidity range math into position valuations.
type Valuator struct {
	market Market
	feed   PriceFeed
	cfg    Config
	sink   farm.Sink
	logger *zap.Logger
	now    func() int64
}

// NewValuator builds a valuator. sink and logger may be nil.
func NewValuator(market Market, feed PriceFeed, cfg Config, sink farm.Sink, logger *zap.Logger) (*Valuator, error) {
	if market == nil || feed == nil {
		return nil, fmt.Errorf("oracle: market and feed are required")
	}
	if cfg.TWAPWindow == 0 {
		cfg.TWAPWindow = DefaultTWAPWindow
	}
	if cfg.Staleness == 0 {
		cfg.Staleness = DefaultStaleness
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Valuator{
		market: market,
		feed:   feed,
		cfg:    cfg,
		sink:   sink,
		logger: logger,
		now:    func() int64 { return time.Now().Unix() },
	}, nil
}

// SetClock overrides the time source.
func (v *Valuator) SetClock(now func() int64) {
	if now != nil {
		v.now = now
	}
}

// PairPrice returns the price of one whole paired token in whole base
// tokens, scaled by farm.Scale. The primary path is a TWAP over the
// configured window; when the pool cannot serve observations the spot
// price is used instead, which is less manipulation-resistant and flagged
// by spot=true.
func (v *Valuator) PairPrice(ctx context.Context) (price *big.Int, spot bool, err error) {
	latest, before, obsErr := v.market.Observe(ctx, v.cfg.TWAPWindow)
	if obsErr == nil {
		avg, avgErr := averageTick(latest, before, v.cfg.TWAPWindow)
		if avgErr == nil {
			sqrtP, tickErr := liquidity.SqrtRatioAtTick(avg)
			if tickErr == nil {
				price, err = v.priceFromSqrt(sqrtP)
				return price, false, err
			}
			avgErr = tickErr
		}
		obsErr = avgErr
	}

	v.logger.Warn("twap observation failed, falling back to spot", zap.Error(obsErr))
	v.emit(model.EventRecord{Type: model.EventOracleUpdateFailed, Detail: obsErr.Error()})

	sqrtP, _, spotErr := v.market.Slot0(ctx)
	if spotErr != nil {
		return nil, true, fmt.Errorf("oracle: spot fallback: %w", spotErr)
	}
	price, err = v.priceFromSqrt(sqrtP)
	return price, true, err
}

// averageTick is the arithmetic mean tick over the window, rounded toward
// negative infinity so negative prices do not round up. Cumulatives whose
// mean cannot be a tick are rejected rather than narrowed, so a corrupt
// observation cannot wrap into the valid tick range.
func averageTick(latest, before int64, window uint32) (int32, error) {
	delta := latest - before
	avg := delta / int64(window)
	if delta < 0 && delta%int64(window) != 0 {
		avg--
	}
	if avg < math.MinInt32 || avg > math.MaxInt32 {
		return 0, fmt.Errorf("oracle: average tick %d out of range", avg)
	}
	return int32(avg), nil
}

// priceFromSqrt converts a Q96 sqrt price into the whole-token pair price,
// inverting when the base asset is token1.
func (v *Valuator) priceFromSqrt(sqrtP *big.Int) (*big.Int, error) {
	if sqrtP == nil || sqrtP.Sign() <= 0 {
		return nil, ErrZeroSpotPrice
	}
	sq := new(big.Int).Mul(sqrtP, sqrtP)

	if v.cfg.BaseIsToken0 {
		// price of token1 in token0 = sqrtP^2 / 2^192, decimal adjusted.
		num := new(big.Int).Mul(sq, farm.Scale)
		num.Mul(num, pow10(v.cfg.PairedDecimals))
		den := new(big.Int).Mul(q192, pow10(v.cfg.BaseDecimals))
		return num.Div(num, den), nil
	}

	// price of token0 in token1 is the inverse.
	num := new(big.Int).Mul(q192, farm.Scale)
	num.Mul(num, pow10(v.cfg.PairedDecimals))
	den := new(big.Int).Mul(sq, pow10(v.cfg.BaseDecimals))
	if den.Sign() == 0 {
		return nil, ErrZeroSpotPrice
	}
	return num.Div(num, den), nil
}

// USDPrice returns the Scale-scaled USD price of one whole base token.
// Failures here are critical and never defaulted: valuing positions
// against an untrusted base price is worse than refusing the operation.
func (v *Valuator) USDPrice(ctx context.Context) (*big.Int, error) {
	answer, updatedAt, err := v.feed.LatestPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("oracle: usd feed: %w", err)
	}
	if answer == nil || answer.Sign() <= 0 {
		return nil, ErrNonPositivePrice
	}
	if age := v.now() - updatedAt; age > v.cfg.Staleness {
		return nil, fmt.Errorf("%w: age %ds exceeds bound %ds", ErrStalePrice, age, v.cfg.Staleness)
	}
	usd := new(big.Int).Mul(answer, farm.Scale)
	return usd.Div(usd, pow10(v.cfg.FeedDecimals)), nil
}

// ValueOfPosition values both legs of a position in Scale-scaled USD at the
// current instantaneous price. A USD feed failure aborts; a pair-price
// failure degrades to a rough doubled-base-leg estimate flagged approx.
func (v *Valuator) ValueOfPosition(ctx context.Context, desc farm.PositionDescriptor) (*big.Int, bool, error) {
	usd, err := v.USDPrice(ctx)
	if err != nil {
		return nil, false, err
	}

	sqrtP, _, err := v.market.Slot0(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("oracle: slot0: %w", err)
	}
	sqrtLower, err := liquidity.SqrtRatioAtTick(desc.TickLower)
	if err != nil {
		return nil, false, err
	}
	sqrtUpper, err := liquidity.SqrtRatioAtTick(desc.TickUpper)
	if err != nil {
		return nil, false, err
	}

	amount0, amount1 := liquidity.AmountsForLiquidity(sqrtP, sqrtLower, sqrtUpper, desc.Liquidity)
	amountBase, amountPaired := amount0, amount1
	if !v.cfg.BaseIsToken0 {
		amountBase, amountPaired = amount1, amount0
	}

	// Base leg: raw amount -> whole tokens -> Scale-scaled USD.
	baseUSD := new(big.Int).Mul(amountBase, usd)
	baseUSD.Div(baseUSD, pow10(v.cfg.BaseDecimals))

	pairPrice, _, perr := v.PairPrice(ctx)
	if perr != nil {
		// Degraded estimate: assume a balanced position and double the
		// base leg. Kept available so transient pair-price trouble does
		// not block operations, unlike the USD feed above.
		v.logger.Warn("pair price unavailable, using degraded valuation", zap.Error(perr))
		v.emit(model.EventRecord{Type: model.EventValuationFallback, Detail: perr.Error()})
		return new(big.Int).Lsh(baseUSD, 1), true, nil
	}

	pairedUSD := new(big.Int).Mul(amountPaired, pairPrice)
	pairedUSD.Mul(pairedUSD, usd)
	pairedUSD.Div(pairedUSD, pow10(v.cfg.PairedDecimals))
	pairedUSD.Div(pairedUSD, farm.Scale)

	return baseUSD.Add(baseUSD, pairedUSD), false, nil
}

func (v *Valuator) emit(rec model.EventRecord) {
	if v.sink == nil {
		return
	}
	rec.At = v.now()
	if err := v.sink.PutEvents([]model.EventRecord{rec}); err != nil {
		v.logger.Warn("event journal write failed", zap.String("type", rec.Type), zap.Error(err))
	}
}

func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}
