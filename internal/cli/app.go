package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Zhima-Mochi/minishop-sales/internal/application/auth"
	"github.com/Zhima-Mochi/minishop-sales/internal/application/catalog"
	"github.com/Zhima-Mochi/minishop-sales/internal/application/directory"
	apporder "github.com/Zhima-Mochi/minishop-sales/internal/application/order"
	"github.com/Zhima-Mochi/minishop-sales/internal/application/reporting"
	"github.com/Zhima-Mochi/minishop-sales/internal/config"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/client"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-sales/internal/domain/user"
	"github.com/Zhima-Mochi/minishop-sales/internal/infrastructure/docstore"
	"github.com/Zhima-Mochi/minishop-sales/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-sales/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-sales/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-sales/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-sales/internal/infrastructure/observability/telemetry"
	"github.com/Zhima-Mochi/minishop-sales/internal/infrastructure/observability/zaplogger"
	orderworker "github.com/Zhima-Mochi/minishop-sales/internal/infrastructure/order/worker"
	"github.com/Zhima-Mochi/minishop-sales/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/minishop-sales/internal/infrastructure/sqlitestore"
	"github.com/Zhima-Mochi/minishop-sales/internal/observability"
	httppresentation "github.com/Zhima-Mochi/minishop-sales/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/minishop-sales/internal/presentation/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const metricsNamespace = "minishop"

// App is the wired process: stores, use cases, event bus and HTTP handler.
type App struct {
	Handler http.Handler
	Bus     *outbox.Bus
	Auth    *auth.Service
	Tel     observability.Observability

	closers []func() error
}

type repositories struct {
	users    user.Repository
	products product.Repository
	clients  client.Repository
	orders   order.Repository
}

// Build wires every component from cfg. Metrics are registered on reg and served
// on /metrics. The caller runs Bus and must Close the App.
func Build(ctx context.Context, cfg *config.Config, zl *zap.Logger, reg *prometheus.Registry) (_ *App, err error) {
	app := &App{}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	logger := zaplogger.Wrap(zl)
	counters, histograms := prometrics.Standard(prometrics.New(metricsNamespace, "", reg))
	tel := telemetry.New(oteltrace.New(cfg.ServiceName), logger, counters, histograms)
	app.Tel = tel

	repos, err := app.openRepositories(ctx, cfg)
	if err != nil {
		return nil, err
	}

	ids := id.NewUUIDGenerator()
	tokens, err := auth.NewTokens([]byte(cfg.JWTSecret), cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	bus := outbox.NewBus(logger, outbox.Options{})
	app.Bus = bus

	cat := catalog.NewService(repos.products, ids, tel)
	app.Auth = auth.NewService(repos.users, auth.NewBcryptHasher(cfg.BcryptCost), tokens, ids, tel)
	services := httppresentation.Services{
		Auth:      app.Auth,
		Catalog:   cat,
		Directory: directory.NewService(repos.clients, ids, tel),
		Orders:    apporder.NewService(repos.orders, repos.clients, cat, ids, bus, tel),
		Reports:   reporting.NewService(repos.orders, repos.clients, repos.users, cat, tel),
	}

	subscriber := workerpresentation.Instrument(bus, logger)
	catalog.NewWorker(subscriber, catalog.NewLowStockCheck(cfg.LowStockThreshold, tel), tel).Start()
	orderworker.New(subscriber, logger).Start()

	app.Handler = httppresentation.NewHandler(services, tel, httppresentation.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		AuthRateLimit: httppresentation.RateLimitConfig{
			RequestsPerSecond: cfg.AuthRateLimitRPS,
			Burst:             cfg.AuthRateLimitBurst,
		},
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	}).Router()
	return app, nil
}

func (a *App) openRepositories(ctx context.Context, cfg *config.Config) (repositories, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return repositories{
			users:    memory.NewUserRepository(),
			products: memory.NewProductRepository(),
			clients:  memory.NewClientRepository(),
			orders:   memory.NewOrderRepository(),
		}, nil
	case config.DriverSQLite:
		store, err := docstore.Open(ctx, cfg.DBPath)
		if err != nil {
			return repositories{}, err
		}
		a.closers = append(a.closers, store.Close)
		if err := store.Init(ctx); err != nil {
			return repositories{}, err
		}
		return repositories{
			users:    sqlitestore.NewUserRepository(store),
			products: sqlitestore.NewProductRepository(store),
			clients:  sqlitestore.NewClientRepository(store),
			orders:   sqlitestore.NewOrderRepository(store),
		}, nil
	default:
		return repositories{}, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// Close releases the stores. It does not stop the bus.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
