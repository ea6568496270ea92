package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"challenge-arena/internal/app"
	"challenge-arena/internal/config"
	"challenge-arena/internal/infra/memory"
	pginfra "challenge-arena/internal/infra/postgres"
	redisinfra "challenge-arena/internal/infra/redis"
	"challenge-arena/internal/questionbank"
	transport "challenge-arena/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(flags *Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the challenge server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), flags)
		},
	}
}

func runServer(ctx context.Context, flags *Flags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)

	var pool *pgxpool.Pool
	var db *bun.DB
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		db = bun.NewDB(sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL))), pgdialect.New())
		defer db.Close()
	}

	// Bank source: Postgres, then a file, then the built-in catalogue.
	var loader memory.BankLoader = memory.NewStaticBankLoader(map[string]questionbank.Bank{
		cfg.Bank.Name: questionbank.Default(),
	})
	switch {
	case pool != nil:
		loader = pginfra.NewBankLoader(pool)
	case cfg.Bank.Path != "":
		loader = memory.NewFileBankLoader(cfg.Bank.Path)
	}

	bankTTL := config.TTLDuration(cfg.Bank.TTL, 10*time.Minute)
	var banks app.BankRepository
	var store app.SessionRepository
	if redisClient != nil {
		banks = redisinfra.NewBankRepository(redisClient, loader, bankTTL)
		store = redisinfra.NewSessionStore(redisClient, redisTTL)
	} else {
		banks = memory.NewBankRepository(loader, bankTTL)
		store = memory.NewSessionStore()
	}

	var rewards app.RewardDepositor
	switch {
	case db != nil:
		rewards = pginfra.NewRewardLedger(db)
	case redisClient != nil:
		rewards = redisinfra.NewRewardLedger(redisClient)
	default:
		rewards = memory.NewRewardLedger()
	}

	rules := rulesFromConfig(cfg)
	registry := app.NewRegistry(store)
	orchestrator := app.NewOrchestrator(registry, rules,
		app.WithRewards(rewards),
		app.WithGrader(app.WordGrader{Max: rules.CreativePoints}),
		app.WithVerbose(cfg.Server.Verbose),
	)
	service := app.NewChallengeService(store, banks, registry, orchestrator, app.ServiceSettings{
		BankName:   cfg.Bank.Name,
		MaxPlayers: cfg.Game.MaxPlayers,
	})

	reap := reaperFromConfig(cfg)
	reaper := app.NewReaper(service, reap.interval, reap.retention, reap.idle)
	if err := reaper.Start(); err != nil {
		return err
	}
	defer func() {
		if err := reaper.Stop(); err != nil {
			log.Printf("stop reaper: %v", err)
		}
	}()

	handler := transport.NewHandler(service, transport.NewIdentityResolver(cfg.Auth.JWTSecret), transport.Options{
		BaseURL: cfg.Server.BaseURL,
		Verbose: cfg.Server.Verbose,
	})

	server := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     handler.Routes(),
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting challenge arena on :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
