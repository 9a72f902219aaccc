package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"positionfarm/internal/chain"
	"positionfarm/internal/config"
	"positionfarm/internal/dex"
	"positionfarm/internal/farm"
	"positionfarm/internal/model"
	"positionfarm/internal/oracle"
	"positionfarm/internal/storage"
	"positionfarm/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "farmd",
		Short:        "V3 position staking farm daemon",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the farm daemon",
		RunE:  runFarm,
	}

	runCmd.Flags().String("rpc", "", "EVM RPC URL")
	runCmd.Flags().String("pool", "", "target V3 pool address")
	runCmd.Flags().String("position-manager", "", "position manager contract address")
	runCmd.Flags().String("factory", "", "V3 factory address")
	runCmd.Flags().String("init-code-hash", dex.DefaultInitCodeHash, "pool init code hash for CREATE2 derivation")
	runCmd.Flags().String("price-feed", "", "USD price feed address for the base asset")
	runCmd.Flags().String("reward-token", "", "reward token address")
	runCmd.Flags().String("registry", "", "address holding staked positions")
	runCmd.Flags().String("operator-key", "", "hex private key for custody and payout transactions")
	runCmd.Flags().String("base-token", "", "pool token the USD feed prices")
	runCmd.Flags().Uint("base-decimals", 18, "base token decimals")
	runCmd.Flags().Uint("paired-decimals", 18, "paired token decimals")
	runCmd.Flags().String("reward-rate", "", "reward units per second per scaled dollar")
	runCmd.Flags().Int64("farming-start", 0, "farming window start (unix seconds)")
	runCmd.Flags().Int64("farming-end", 0, "farming window end (unix seconds)")
	runCmd.Flags().Duration("twap-window", 30*time.Minute, "pair price TWAP window")
	runCmd.Flags().Duration("staleness", 15*time.Minute, "maximum feed age before valuations fail")
	runCmd.Flags().Duration("refresh-interval", 15*time.Second, "price cache refresh interval")
	runCmd.Flags().Duration("snapshot-interval", time.Minute, "state snapshot interval")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN (optional)")
	runCmd.Flags().String("journal", "./data/events.jsonl", "event journal JSONL path")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runFarm(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	for name, value := range map[string]string{
		"rpc":              cfg.RPCURL,
		"pool":             cfg.Pool,
		"position-manager": cfg.PositionManager,
		"factory":          cfg.Factory,
		"price-feed":       cfg.PriceFeed,
		"reward-token":     cfg.RewardToken,
		"registry":         cfg.Registry,
		"operator-key":     cfg.OperatorKey,
		"base-token":       cfg.BaseToken,
		"reward-rate":      cfg.RewardRate,
	} {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}
	if cfg.FarmingStart <= 0 || cfg.FarmingEnd <= cfg.FarmingStart {
		return fmt.Errorf("farming window is invalid: start=%d end=%d", cfg.FarmingStart, cfg.FarmingEnd)
	}
	rewardRate, ok := new(big.Int).SetString(cfg.RewardRate, 10)
	if !ok {
		return fmt.Errorf("reward rate %q is not a decimal integer", cfg.RewardRate)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.OperatorKey, "0x"))
	if err != nil {
		return fmt.Errorf("operator key: %w", err)
	}
	transactor, err := dex.NewTransactor(chainClient, key, chainID)
	if err != nil {
		return err
	}

	poolAddr := common.HexToAddress(cfg.Pool)
	pool := dex.NewPool(chainClient, poolAddr)
	token0, token1, _, err := pool.Tokens(ctx)
	if err != nil {
		return fmt.Errorf("pool tokens: %w", err)
	}
	baseToken := common.HexToAddress(cfg.BaseToken)
	if baseToken != token0 && baseToken != token1 {
		return fmt.Errorf("base token %s is not in pool %s", baseToken.Hex(), poolAddr.Hex())
	}

	feed := dex.NewFeed(chainClient, common.HexToAddress(cfg.PriceFeed))
	feedDecimals, err := feed.Decimals(ctx)
	if err != nil {
		return fmt.Errorf("feed decimals: %w", err)
	}

	journals := storage.Tee{storage.NewJsonlJournal(cfg.JournalPath)}
	var store *postgres.Store
	if cfg.PostgresDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		journals = append(journals, &pgJournal{store: store})
	}

	valuator, err := oracle.NewValuator(pool, feed, oracle.Config{
		BaseIsToken0:   baseToken == token0,
		BaseDecimals:   cfg.BaseDecimals,
		PairedDecimals: cfg.PairedDecimals,
		FeedDecimals:   feedDecimals,
		TWAPWindow:     uint32(cfg.TWAPWindow / time.Second),
		Staleness:      int64(cfg.Staleness / time.Second),
	}, journals, logger)
	if err != nil {
		return err
	}

	initHash := common.HexToHash(cfg.InitCodeHash)
	factory := common.HexToAddress(cfg.Factory)
	custody := dex.NewPositionManager(chainClient, common.HexToAddress(cfg.PositionManager), transactor)
	rewardToken := dex.NewRewardToken(chainClient, common.HexToAddress(cfg.RewardToken), transactor)

	rewardDecimals, err := rewardToken.Decimals(ctx)
	if err != nil {
		return fmt.Errorf("reward token decimals: %w", err)
	}
	rewardBalance, err := rewardToken.BalanceOf(ctx, transactor.From())
	if err != nil {
		return fmt.Errorf("reward token balance: %w", err)
	}

	// Lock expiry and accrual follow block time, not wall time; the service
	// loop keeps the clock synced.
	clock := chain.NewClock(chainClient)
	if err := clock.Sync(ctx); err != nil {
		return fmt.Errorf("chain clock: %w", err)
	}
	valuator.SetClock(clock.Now)

	engine, err := farm.NewEngine(farm.EngineConfig{
		Registry:   common.HexToAddress(cfg.Registry),
		TargetPool: poolAddr,
		DerivePool: func(t0, t1 common.Address, fee uint32) common.Address {
			return dex.ComputePoolAddress(factory, t0, t1, fee, initHash)
		},
		RewardRate:   rewardRate,
		FarmingStart: cfg.FarmingStart,
		FarmingEnd:   cfg.FarmingEnd,
	}, custody, valuator, rewardToken, journals, logger)
	if err != nil {
		return err
	}
	engine.SetClock(clock.Now)

	if store != nil {
		state, found, err := store.LoadFarmState(ctx)
		if err != nil {
			return fmt.Errorf("load farm state: %w", err)
		}
		if found {
			records, err := store.LoadPositions(ctx)
			if err != nil {
				return fmt.Errorf("load positions: %w", err)
			}
			if err := engine.Restore(state, records); err != nil {
				return err
			}
			logger.Info("farm state restored",
				zap.Int("positions", len(records)),
				zap.Int64("last_accrual", state.LastAccrualTime),
			)
			if budget, ok := new(big.Int).SetString(state.RewardBudget, 10); ok && budget.Cmp(rewardBalance) > 0 {
				logger.Warn("reward budget exceeds operator token balance",
					zap.String("budget", budget.String()),
					zap.String("balance", rewardBalance.String()),
				)
			}
		}
	}

	svc := newService(serviceConfig{
		RefreshInterval:  cfg.RefreshInterval,
		SnapshotInterval: cfg.SnapshotInterval,
		MaxRetries:       cfg.MaxRetries,
		RetryBackoff:     cfg.RetryBackoff,
	}, engine, oracle.NewPriceCache(valuator), clock, store, logger)

	logger.Info("farmd start",
		zap.String("pool", pool.Address().Hex()),
		zap.String("operator", transactor.From().Hex()),
		zap.String("reward_rate", rewardRate.String()),
		zap.Uint8("reward_decimals", rewardDecimals),
		zap.String("reward_balance", rewardBalance.String()),
		zap.Int64("farming_start", cfg.FarmingStart),
		zap.Int64("farming_end", cfg.FarmingEnd),
		zap.Int64("chain_time", clock.Now()),
		zap.Bool("postgres", store != nil),
		zap.String("journal", cfg.JournalPath),
	)

	return svc.Run(ctx)
}

// pgJournal adapts the Postgres store to the event sink interface. Sinks
// carry no context; event writes are best effort and bounded.
type pgJournal struct {
	store *postgres.Store
}

func (j *pgJournal) PutEvents(events []model.EventRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return j.store.PutEvents(ctx, events)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
