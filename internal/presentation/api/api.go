package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/confabhq/confab/internal/infrastructure/configs"
	"github.com/confabhq/confab/internal/infrastructure/metrics"
	"github.com/confabhq/confab/internal/infrastructure/ratelimiter"
	healthHandler "github.com/confabhq/confab/internal/presentation/handler/health"
	historyHandler "github.com/confabhq/confab/internal/presentation/handler/history"
	roomHandler "github.com/confabhq/confab/internal/presentation/handler/rooms"
	usersHandler "github.com/confabhq/confab/internal/presentation/handler/users"
)

type Application struct {
	config         configs.Config
	roomHandler    *roomHandler.Handler
	historyHandler *historyHandler.Handler
	usersHandler   *usersHandler.Handler
	healthHandler  *healthHandler.Handler
	logger         *zap.SugaredLogger
	ratelimiter    ratelimiter.Limiter
	metrics        *metrics.Metrics
}

func NewApplication(
	config configs.Config,
	roomHandler *roomHandler.Handler,
	historyHandler *historyHandler.Handler,
	usersHandler *usersHandler.Handler,
	healthHandler *healthHandler.Handler,
	logger *zap.SugaredLogger,
	ratelimiter ratelimiter.Limiter,
	m *metrics.Metrics,
) *Application {
	return &Application{
		config:         config,
		roomHandler:    roomHandler,
		historyHandler: historyHandler,
		usersHandler:   usersHandler,
		healthHandler:  healthHandler,
		logger:         logger,
		ratelimiter:    ratelimiter,
		metrics:        m,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(app.enableCors)
	r.Use(app.metricsMiddleware)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(app.rateLimiterMiddleware)
		r.Use(app.loggerMiddleware)

		r.Route("/api", func(r chi.Router) {
			r.Get("/check-room/{roomId}", app.roomHandler.CheckRoomHandler)
			r.Get("/history", app.historyHandler.GetHistoryHandler)
			r.Get("/users/{id}", app.usersHandler.GetUserHandler)

			r.Get("/health", app.healthHandler.GetHealth)
			r.Get("/healthz", app.healthHandler.GetHealth)
			r.Get("/ready", app.healthHandler.GetHealth)
			r.Get("/live", app.healthHandler.GetHealth)
		})

		r.Handle("/metrics", app.metrics.Handler())
	})

	// The websocket route must not sit behind the request timeout: the
	// connection is long-lived by design.
	r.Get("/ws", app.roomHandler.ConnectHandler)

	return otelhttp.NewHandler(r, "confab-http")
}

func (app *Application) Run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      mux,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Infow("signal caught", "signal", s.String())
		healthHandler.SetUnhealthy()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", srv.Addr)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", srv.Addr)

	return nil
}
