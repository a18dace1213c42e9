// ratesvc - trip rate calculation service.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pghie87/salem-invoice-system2/internal/api"
	"github.com/pghie87/salem-invoice-system2/internal/bus"
	"github.com/pghie87/salem-invoice-system2/internal/cache"
	"github.com/pghie87/salem-invoice-system2/internal/domain"
	"github.com/pghie87/salem-invoice-system2/internal/fuelindex"
	"github.com/pghie87/salem-invoice-system2/internal/pricing"
	"github.com/pghie87/salem-invoice-system2/internal/quote"
	"github.com/pghie87/salem-invoice-system2/internal/repository"
	"github.com/pghie87/salem-invoice-system2/internal/telemetry"
	"github.com/pghie87/salem-invoice-system2/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Optional .env file for local development
	_ = godotenv.Load()

	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("RATESVC_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting ratesvc",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()
	if os.Getenv("RATESVC_MODE") == "distributed" {
		cfg = domain.DistributedConfig()
		slog.Info("running in distributed mode")
	}
	applyEnvOverrides(cfg)

	slog.Info("configuration loaded",
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"currency", cfg.Pricing.DefaultCurrency,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Fuel Index
	fuelSvc := fuelindex.NewService(repo, cacheImpl, cfg.Pricing.FuelPriceTTL)
	slog.Info("fuel index initialized", "ttl", cfg.Pricing.FuelPriceTTL)

	// Initialize Rate Catalog with live fuel lookup
	catalog, err := pricing.NewCatalog(fuelSvc.Getter())
	if err != nil {
		slog.Error("failed to initialize rate catalog", "error", err)
		os.Exit(1)
	}
	defer catalog.Close()

	// Load rate cards from database (no hardcoded defaults - configure via API)
	if err := loadCardsFromDatabase(ctx, repo, catalog); err != nil {
		slog.Error("failed to load rate cards", "error", err)
		os.Exit(1)
	}
	telemetry.CardsLoaded(catalog.CardCount())
	slog.Info("rate catalog initialized", "cards_count", catalog.CardCount())

	// Initialize Quote Builder
	builder := quote.NewBuilder(cfg.Pricing.DefaultCurrency)

	// Initialize async Worker
	var asyncWorker *worker.Worker
	if cfg.Pricing.AsyncWorker || os.Getenv("RATESVC_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, repo, catalog, builder)

		tenantIDs := []string{}
		if envTenants := os.Getenv("RATESVC_TENANTS"); envTenants != "" {
			for _, id := range strings.Split(envTenants, ",") {
				if id = strings.TrimSpace(id); id != "" {
					tenantIDs = append(tenantIDs, id)
				}
			}
		}

		workerCfg := worker.Config{
			TenantIDs: tenantIDs,
		}

		if err := asyncWorker.Start(workerCfg); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started", "tenant_count", len(tenantIDs))
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, catalog, builder, fuelSvc, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("ratesvc is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("ratesvc shutdown complete")
}

// GlobalTenantID is used for rate cards that apply to all tenants.
const GlobalTenantID = "*"

// loadCardsFromDatabase loads enabled rate cards into the catalog.
// All cards must be configured via POST /ratecards API - no hardcoded defaults.
func loadCardsFromDatabase(ctx context.Context, repo domain.Repository, catalog *pricing.Catalog) error {
	cards, err := repo.ListRateCards(ctx, GlobalTenantID)
	if err != nil {
		slog.Warn("failed to list rate cards from database", "error", err)
		return nil // Start with an empty catalog - cards can be added via API
	}

	if envTenants := os.Getenv("RATESVC_TENANTS"); envTenants != "" {
		for _, id := range strings.Split(envTenants, ",") {
			if id = strings.TrimSpace(id); id == "" || id == GlobalTenantID {
				continue
			}
			tenantCards, err := repo.ListRateCards(ctx, id)
			if err != nil {
				slog.Warn("failed to list rate cards for tenant", "tenant_id", id, "error", err)
				continue
			}
			cards = append(cards, tenantCards...)
		}
	}

	if len(cards) > 0 {
		slog.Info("loading rate cards from database", "count", len(cards))
		return catalog.LoadCards(cards)
	}

	slog.Info("no rate cards in database - configure via POST /ratecards API")
	return nil
}

// applyEnvOverrides adjusts the base configuration from RATESVC_* variables.
func applyEnvOverrides(cfg *domain.Config) {
	if host := os.Getenv("RATESVC_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("RATESVC_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if path := os.Getenv("RATESVC_SQLITE_PATH"); path != "" {
		cfg.Repository.SQLitePath = path
	}
	if dsn := os.Getenv("RATESVC_POSTGRES_HOST"); dsn != "" {
		cfg.Repository.PostgresHost = dsn
	}
	if addr := os.Getenv("RATESVC_REDIS_ADDR"); addr != "" {
		cfg.Cache.RedisAddr = addr
	}
	if url := os.Getenv("RATESVC_NATS_URL"); url != "" {
		cfg.EventBus.NATSUrl = url
	}
	if currency := os.Getenv("RATESVC_CURRENCY"); currency != "" {
		cfg.Pricing.DefaultCurrency = currency
	}
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ratesvc - rate calculation engine")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /quote             - Price a trip synchronously")
	fmt.Println("    GET  /quotes/{id}       - Get quote by ID")
	fmt.Println("    POST /trips             - Submit a trip for async pricing")
	fmt.Println("    GET  /trips/{id}        - Get trip by ID")
	fmt.Println("    GET  /ratecards         - List loaded rate cards")
	fmt.Println("    POST /ratecards         - Create a rate card")
	fmt.Println("    POST /ratecards/reload  - Hot-reload rate cards from database")
	fmt.Println("    GET  /ratecards/{id}    - Get rate card by ID")
	fmt.Println("    DELETE /ratecards/{id}  - Disable a rate card")
	fmt.Println("    PUT  /fuel-price        - Record the current fuel price")
	fmt.Println("    GET  /fuel-price        - Get the current fuel price")
	fmt.Println("    GET  /health            - Health check")
	fmt.Println("    GET  /metrics           - Prometheus metrics")
	fmt.Println()
}
