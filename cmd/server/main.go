package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/tableside/internal/analytics"
	"github.com/mmynk/tableside/internal/auth"
	"github.com/mmynk/tableside/internal/billing"
	"github.com/mmynk/tableside/internal/cart"
	"github.com/mmynk/tableside/internal/config"
	"github.com/mmynk/tableside/internal/events"
	"github.com/mmynk/tableside/internal/events/amqpbus"
	"github.com/mmynk/tableside/internal/menu"
	"github.com/mmynk/tableside/internal/metrics"
	"github.com/mmynk/tableside/internal/middleware"
	"github.com/mmynk/tableside/internal/orders"
	"github.com/mmynk/tableside/internal/service"
	"github.com/mmynk/tableside/internal/storage"
	"github.com/mmynk/tableside/internal/storage/notify"
	"github.com/mmynk/tableside/internal/storage/postgres"
	"github.com/mmynk/tableside/internal/storage/sqlite"
	"github.com/mmynk/tableside/internal/tables"
	"github.com/mmynk/tableside/internal/upsell"
	"github.com/mmynk/tableside/internal/views"
	"github.com/mmynk/tableside/internal/views/rediscache"
	"github.com/mmynk/tableside/pkg/logging"
)

// adminProcedures change the catalog or floor plan.
var adminProcedures = []string{
	service.MenuServiceAddMenuItemProcedure,
	service.MenuServiceUpdatePriceProcedure,
	service.TableServiceAddTableProcedure,
}

func main() {
	logging.Setup()

	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inner, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer inner.Close()

	bus, err := openBus(cfg)
	if err != nil {
		return err
	}
	defer bus.Close()

	cache, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	// Every committed mutation is announced on the bus from here on.
	store := notify.New(inner, bus)

	catalog := menu.NewCatalog(store)
	registry := tables.NewRegistry(store)
	manager := orders.NewManager(store)
	engine := billing.NewEngine(store, billing.WithDefaultTax(cfg.DefaultTaxPercent))
	aggregator := analytics.NewAggregator(store, analytics.WithLocation(cfg.Location))

	// A follower never starts its board: Get reads the snapshot the leader
	// keeps in the shared cache.
	board := analytics.NewBoard(aggregator, bus, cache)
	if cfg.AnalyticsMode == "leader" {
		if err := board.Start(ctx); err != nil {
			return fmt.Errorf("failed to start analytics board: %w", err)
		}
		defer board.Stop()
	} else {
		slog.Info("Analytics board following shared snapshot", "redis", cfg.RedisAddr)
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	authInterceptor := middleware.OptionalAuth(jwtManager)
	if cfg.RequireAuth {
		authInterceptor = middleware.RequireAuth(jwtManager)
	} else if cfg.JWTSecret == "" {
		slog.Warn("JWT_SECRET not set, tokens are refused and all calls are anonymous")
	}
	opts := connect.WithInterceptors(
		middleware.LoggingInterceptor(),
		authInterceptor,
		middleware.RequireAdmin(adminProcedures...),
	)

	mux := http.NewServeMux()
	mux.Handle(service.NewTableServiceHandler(service.NewTableService(registry), opts))
	mux.Handle(service.NewMenuServiceHandler(service.NewMenuService(catalog), opts))
	mux.Handle(service.NewCartServiceHandler(service.NewCartService(catalog, cart.NewSessions(), upsell.NewEngine(), manager), opts))
	mux.Handle(service.NewOrderServiceHandler(service.NewOrderService(manager), opts))
	mux.Handle(service.NewBillingServiceHandler(service.NewBillingService(engine), opts))
	mux.Handle(service.NewAnalyticsServiceHandler(service.NewAnalyticsService(board), opts))
	mux.Handle(service.NewStaffServiceHandler(service.NewStaffService(), opts))
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h2c.NewHandler(corsMiddleware(mux), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", cfg.Addr, "store", cfg.Store, "bus", cfg.Bus, "cache", cfg.Cache)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Store {
	case "postgres":
		store, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres storage: %w", err)
		}
		slog.Info("Storage initialized", "backend", "postgres")
		return store, nil
	default:
		store, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite storage: %w", err)
		}
		slog.Info("Storage initialized", "backend", "sqlite", "database", cfg.DBPath)
		return store, nil
	}
}

func openBus(cfg *config.Config) (events.Bus, error) {
	if cfg.Bus == "amqp" {
		bus, err := amqpbus.Dial(cfg.AMQPURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect change bus: %w", err)
		}
		return bus, nil
	}
	return events.NewMemoryBus(), nil
}

func openCache(ctx context.Context, cfg *config.Config) (views.Cache, func(), error) {
	if cfg.Cache == "redis" {
		client, err := rediscache.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return rediscache.New(client, ""), func() { client.Close() }, nil
	}
	return views.NewMemoryCache(), func() {}, nil
}

// corsMiddleware adds CORS headers for browser terminals.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
