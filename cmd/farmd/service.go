package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"positionfarm/internal/chain"
	"positionfarm/internal/farm"
	"positionfarm/internal/oracle"
	"positionfarm/internal/storage/postgres"
)

type serviceConfig struct {
	RefreshInterval  time.Duration
	SnapshotInterval time.Duration
	MaxRetries       int
	RetryBackoff     time.Duration
}

// service drives the periodic work around the engine: chain clock syncs,
// price cache refreshes, and state snapshots.
type service struct {
	cfg    serviceConfig
	engine *farm.Engine
	cache  *oracle.PriceCache
	clock  *chain.Clock
	store  *postgres.Store
	logger *zap.Logger
}

func newService(cfg serviceConfig, engine *farm.Engine, cache *oracle.PriceCache, clock *chain.Clock, store *postgres.Store, logger *zap.Logger) *service {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 15 * time.Second
	}
	if cfg.SnapshotInterval <= 0 {
		cfg.SnapshotInterval = time.Minute
	}
	return &service{cfg: cfg, engine: engine, cache: cache, clock: clock, store: store, logger: logger}
}

// Run blocks until the context is cancelled.
func (s *service) Run(ctx context.Context) error {
	refresh := time.NewTicker(s.cfg.RefreshInterval)
	defer refresh.Stop()
	snapshot := time.NewTicker(s.cfg.SnapshotInterval)
	defer snapshot.Stop()

	s.refreshPrices(ctx)

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			s.persist(flushCtx)
			cancel()
			s.logger.Info("farmd stop")
			return nil
		case <-refresh.C:
			s.syncClock(ctx)
			s.refreshPrices(ctx)
		case <-snapshot.C:
			s.persist(ctx)
		}
	}
}

func (s *service) syncClock(ctx context.Context) {
	err := withRetry(ctx, s.cfg.MaxRetries, s.cfg.RetryBackoff, func(ctx context.Context) error {
		return s.clock.Sync(ctx)
	})
	if err != nil {
		// The clock keeps serving the last synced block time.
		s.logger.Warn("chain clock sync failed", zap.Error(err))
	}
}

func (s *service) refreshPrices(ctx context.Context) {
	err := withRetry(ctx, s.cfg.MaxRetries, s.cfg.RetryBackoff, func(ctx context.Context) error {
		return s.cache.Refresh(ctx)
	})
	if err != nil {
		s.logger.Warn("price refresh exhausted retries", zap.Error(err))
		return
	}
	info := s.cache.Current()
	s.logger.Debug("price cache refreshed",
		zap.Int32("tick", info.Tick),
		zap.String("pair_price", info.PairPrice),
	)
}

func (s *service) persist(ctx context.Context) {
	state := s.engine.Snapshot()
	s.logger.Info("farm snapshot",
		zap.Int("positions", state.PositionCount),
		zap.String("total_staked_value", state.TotalStakedValue),
		zap.String("reward_budget", state.RewardBudget),
		zap.String("total_distributed", state.TotalDistributed),
	)
	if s.store == nil {
		return
	}

	records := s.engine.PositionRecords()
	keep := make([]string, 0, len(records))
	for _, rec := range records {
		keep = append(keep, rec.TokenID)
	}
	err := withRetry(ctx, s.cfg.MaxRetries, s.cfg.RetryBackoff, func(ctx context.Context) error {
		if err := s.store.SaveFarmState(ctx, state); err != nil {
			return err
		}
		if err := s.store.UpsertPositions(ctx, records); err != nil {
			return err
		}
		return s.store.PrunePositions(ctx, keep)
	})
	if err != nil {
		s.logger.Error("snapshot persist failed", zap.Error(err))
	}
}

func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
