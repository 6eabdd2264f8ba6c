// Package main is the entry point for the arcade session engine.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"arcade-engine/internal/config"
	"arcade-engine/internal/engine"
	"arcade-engine/internal/game"
	"arcade-engine/internal/game/blackjack"
	"arcade-engine/internal/game/coinflip"
	"arcade-engine/internal/game/crash"
	"arcade-engine/internal/game/dice"
	"arcade-engine/internal/game/life"
	"arcade-engine/internal/game/roulette"
	"arcade-engine/internal/game/slots"
	"arcade-engine/internal/game/trivia"
	"arcade-engine/internal/ledger"
	"arcade-engine/internal/pkg/db"
	"arcade-engine/internal/repository"
	"arcade-engine/internal/session"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(dbPool.Pool)
	txRepo := repository.NewTransactionRepository(dbPool.Pool)

	// Initialize the ledger over the shared real clock
	clock := quartz.NewReal()
	ledgerService := ledger.NewService(accountRepo, txRepo, ledger.Options{
		DailyReward:   cfg.Daily.Reward,
		DailyCooldown: time.Duration(cfg.Daily.CooldownHours) * time.Hour,
		Clock:         clock,
		Logger:        log.Logger,
	})

	// Initialize game rules
	rules := game.NewRegistry()
	register := func(rule game.Rule) {
		if err := rules.Register(rule); err != nil {
			log.Fatal().Err(err).Str("kind", string(rule.Kind())).Msg("Failed to register game")
		}
	}
	register(blackjack.New(&blackjack.Config{
		MaxBet:  cfg.Games.Blackjack.MaxBet,
		Timeout: time.Duration(cfg.Games.Blackjack.TimeoutSeconds) * time.Second,
	}))
	register(crash.New(&crash.Config{
		MaxBet:       cfg.Games.Crash.MaxBet,
		TickInterval: time.Duration(cfg.Games.Crash.TickMillis) * time.Millisecond,
		Timeout:      time.Duration(cfg.Games.Crash.TimeoutSeconds) * time.Second,
	}))
	register(roulette.New(&roulette.Config{
		MaxBet:  cfg.Games.Roulette.MaxBet,
		Timeout: time.Duration(cfg.Games.Roulette.TimeoutSeconds) * time.Second,
	}))
	register(dice.New(&dice.Config{
		MaxBet:  cfg.Games.Dice.MaxBet,
		Timeout: time.Duration(cfg.Games.Dice.TimeoutSeconds) * time.Second,
	}))
	register(slots.New(&slots.Config{
		MaxBet:  cfg.Games.Slots.MaxBet,
		Timeout: time.Duration(cfg.Games.Slots.TimeoutSeconds) * time.Second,
	}))
	register(coinflip.New(&coinflip.Config{
		MaxBet:  cfg.Games.Coinflip.MaxBet,
		Timeout: time.Duration(cfg.Games.Coinflip.TimeoutSeconds) * time.Second,
	}))
	register(trivia.New(&trivia.Config{
		RewardCredits: cfg.Games.Trivia.RewardCredits,
		RewardXP:      cfg.Games.Trivia.RewardXP,
		Duration:      time.Duration(cfg.Games.Trivia.DurationMinutes) * time.Minute,
	}))
	register(life.New(&life.Config{
		TickInterval: time.Duration(cfg.Games.Life.TickMillis) * time.Millisecond,
		Timeout:      time.Duration(cfg.Games.Life.TimeoutSeconds) * time.Second,
	}))

	log.Info().
		Int("game_count", rules.Count()).
		Msg("Games registered")

	// Assemble the engine
	sessions := session.NewRegistry()
	scheduler := session.NewScheduler(clock)
	eng := engine.New(sessions, scheduler, rules, ledgerService, nil, log.Logger)

	log.Info().Msg("Session engine is running")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Let in-flight resolutions drain before the pool closes
	for _, scope := range sessions.Scopes() {
		if s := sessions.Get(scope); s != nil && !s.Terminal() {
			if _, err := eng.Cancel(ctx, scope, s.Account); err != nil {
				log.Warn().Err(err).Str("scope", scope).Msg("Failed to cancel session on shutdown")
			}
		}
	}
	log.Info().Msg("Session engine stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create accounts table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			id VARCHAR(255) PRIMARY KEY,
			balance BIGINT NOT NULL DEFAULT 0,
			lifetime_earned BIGINT NOT NULL DEFAULT 0,
			xp BIGINT NOT NULL DEFAULT 0,
			last_daily_claim BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_accounts_balance ON accounts(balance DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: accounts table created")

	// Migration 2: Create transactions table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			account_id VARCHAR(255) NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			amount BIGINT NOT NULL,
			type VARCHAR(50) NOT NULL,
			session_id VARCHAR(255),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_account_time ON transactions(account_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_transactions_type_time ON transactions(type, created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: transactions table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
