package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/cloud-kitchen/internal/domain/address"
	"github.com/xenking/cloud-kitchen/internal/domain/auth"
	"github.com/xenking/cloud-kitchen/internal/domain/cart"
	"github.com/xenking/cloud-kitchen/internal/domain/order"
	"github.com/xenking/cloud-kitchen/internal/events"
	"github.com/xenking/cloud-kitchen/internal/handler"
	"github.com/xenking/cloud-kitchen/internal/session"
	"github.com/xenking/cloud-kitchen/pkg/health"
	"github.com/xenking/cloud-kitchen/pkg/httpmiddleware"
)

const healthInterval = 10 * time.Second

// App is the assembled API server.
type App struct {
	lg      *zap.Logger
	cfg     *Config
	server  *http.Server
	store   *session.Store
	health  *health.Checker
	closers []func()
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))
	ctx = zctx.Base(ctx, lg)

	a, err := New(ctx, lg, m, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Run(ctx)
}

// New builds storage, domain services and the HTTP stack. The returned App
// must be closed.
func New(ctx context.Context, lg *zap.Logger, t httpmiddleware.Telemetry, cfg *Config) (_ *App, rerr error) {
	unit, err := cfg.CurrencyUnit()
	if err != nil {
		return nil, err
	}
	taxRate, err := cfg.Tax()
	if err != nil {
		return nil, err
	}
	defaultCart, err := cfg.Cart()
	if err != nil {
		return nil, err
	}

	a := &App{lg: lg, cfg: cfg, health: health.New()}
	defer func() {
		if rerr != nil {
			a.Close()
		}
	}()
	a.health.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	st, err := openStorage(ctx, lg, cfg, a.health)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, st.Close)

	var notifier order.Notifier = order.NopNotifier{}
	if cfg.AMQPURL != "" {
		pub, conn, err := events.Dial(cfg.AMQPURL)
		if err != nil {
			return nil, errors.Wrap(err, "connect amqp")
		}
		a.closers = append(a.closers, func() {
			_ = pub.Close()
			_ = conn.Close()
		})
		a.health.AddReadinessCheck("amqp", time.Second,
			health.FlagCheck(func() bool { return !conn.IsClosed() }, "amqp connection closed"),
		)
		notifier = pub
		lg.Info("Publishing order events", zap.String("queue", events.OrderPlacedQueue))
	}

	// Domain services.
	engine := cart.NewEngine(cart.WithTaxRate(taxRate))
	a.store, err = session.NewStore(engine, session.Config{TTL: cfg.Session.TTL}, t.MeterProvider())
	if err != nil {
		return nil, errors.Wrap(err, "create session store")
	}
	a.health.AddLivenessCheck("sessions", time.Second, health.FlagCheck(a.store.Running, "session janitor stopped"))

	orderService := order.NewService(
		order.ServiceConfig{Currency: unit},
		a.store,
		st.orders,
		notifier,
		t.TracerProvider(),
	)

	var authn *auth.Authenticator
	if cfg.Auth.Required {
		authn = auth.NewAuthenticator(st.keys, []byte(cfg.Auth.Pepper))
	}

	// HTTP handlers.
	h := handler.NewHandler(
		handler.HandlerConfig{DefaultCart: defaultCart, Currency: unit},
		st.menu,
		a.store,
		orderService,
		address.NewBook(st.addresses),
		authn,
	)

	router := chi.NewRouter()
	router.Use(httpmiddleware.LogRequests(), httpmiddleware.Labeler())
	router.NotFound(handler.NotFound)
	router.MethodNotAllowed(handler.MethodNotAllowed)
	router.Get("/livez", a.health.LiveEndpoint)
	router.Get("/readyz", a.health.ReadyEndpoint)
	router.Route("/api", h.Routes)

	a.server = &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", handler.APIKeyHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.Instrument("kitchen-api", t),
		),
	}
	return a, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.server.Handler }

// Run serves HTTP along with the session janitor and health probes until ctx
// is cancelled, then drains and shuts the server down.
func (a *App) Run(ctx context.Context) error {
	lg, cfg := a.lg, a.cfg

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.store.Run(ctx)
	})
	g.Go(func() error {
		return a.health.Run(ctx, healthInterval)
	})
	g.Go(func() error {
		// Graceful shutdown: wait for context cancellation, drain, then stop.
		<-ctx.Done()
		a.health.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	a.health.SetReady(true)

	return g.Wait()
}

// Close releases storage and broker connections in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
