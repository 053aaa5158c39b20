package api

import (
	"context"
	"expvar"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hilthontt/codeclash/internal/infrastructure/configs"
	"github.com/hilthontt/codeclash/internal/infrastructure/logging"
	"github.com/hilthontt/codeclash/internal/infrastructure/metrics"
	"github.com/hilthontt/codeclash/internal/infrastructure/ratelimiter"
	healthHandler "github.com/hilthontt/codeclash/internal/presentation/handler/health"
	problemsHandler "github.com/hilthontt/codeclash/internal/presentation/handler/problems"
	roomHandler "github.com/hilthontt/codeclash/internal/presentation/handler/rooms"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Application struct {
	config          configs.Config
	roomHandler     *roomHandler.Handler
	healthHandler   *healthHandler.Handler
	problemsHandler *problemsHandler.Handler
	logger          logging.Logger
	metrics         *metrics.Metrics
	ratelimiter     ratelimiter.Limiter
}

func NewApplication(
	config configs.Config,
	roomHandler *roomHandler.Handler,
	healthHandler *healthHandler.Handler,
	problemsHandler *problemsHandler.Handler,
	logger logging.Logger,
	metrics *metrics.Metrics,
	ratelimiter ratelimiter.Limiter,
) *Application {
	return &Application{
		config:          config,
		roomHandler:     roomHandler,
		healthHandler:   healthHandler,
		problemsHandler: problemsHandler,
		logger:          logger,
		metrics:         metrics,
		ratelimiter:     ratelimiter,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(app.prometheusMiddleware)

	r.Use(app.rateLimiterMiddleware)
	r.Use(app.enableCors)

	r.Handle("/metrics", app.metrics.Handler())
	r.Handle("/debug/vars", expvar.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api", func(r chi.Router) {
		r.Route("/rooms", func(r chi.Router) {
			// No request timeout: the socket outlives the handler.
			r.Get("/ws", app.roomHandler.ServeWS)
			r.With(middleware.Timeout(10*time.Second)).Get("/{roomId}", app.roomHandler.GetRoomHandler)
		})

		r.With(middleware.Timeout(10*time.Second)).Get("/problems/{problemId}", app.problemsHandler.GetProblemHandler)

		r.Get("/health", app.healthHandler.GetHealth)
		r.Get("/healthz", app.healthHandler.GetHealth)
		r.Get("/ready", app.healthHandler.GetReady)
		r.Get("/live", app.healthHandler.GetHealth)
	})

	return otelhttp.NewHandler(r, "http.server",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// Run serves mux until SIGINT/SIGTERM or ctx is cancelled, then shuts the
// server down gracefully. onShutdown runs before the listener closes.
func (app *Application) Run(ctx context.Context, mux http.Handler, onShutdown func()) error {
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
		defer signal.Stop(quit)

		reason := "context cancelled"
		select {
		case s := <-quit:
			reason = s.String()
		case <-ctx.Done():
		}

		app.logger.Info(logging.General, logging.Shutdown, "shutdown requested", map[logging.ExtraKey]any{
			"Reason": reason,
		})

		app.healthHandler.MarkUnhealthy()
		if onShutdown != nil {
			onShutdown()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		shutdown <- srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(logging.General, logging.Startup, "server has started", map[logging.ExtraKey]any{
		"Addr": srv.Addr,
	})

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Info(logging.General, logging.Shutdown, "server has stopped", map[logging.ExtraKey]any{
		"Addr": srv.Addr,
	})

	return nil
}
