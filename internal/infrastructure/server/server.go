package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/oklog/run"
	"github.com/rs/zerolog"

	"item-batch-service/internal/config"
	"item-batch-service/internal/infrastructure/database"
	"item-batch-service/internal/infrastructure/repository"
	controller "item-batch-service/internal/interfaces/controller/items"
	"item-batch-service/internal/usecase"
)

type Server struct {
	cfg    *config.Config
	logger zerolog.Logger
}

func NewServer(cfg *config.Config, logger zerolog.Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
	}
}

// Run wires the database, usecase and HTTP router, then serves until ctx is
// cancelled or the process receives SIGINT/SIGTERM
func (s *Server) Run(ctx context.Context) error {
	db, err := database.Open(ctx, s.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	itemUsecase := NewItemUsecase(s.cfg, db, s.logger)

	return s.serve(ctx, NewRouter(itemUsecase, s.logger))
}

// NewItemUsecase builds the item usecase over the SQL repository using the batch settings in cfg
func NewItemUsecase(cfg *config.Config, db *database.DB, logger zerolog.Logger) usecase.ItemUsecase {
	return usecase.NewItemUsecase(
		repository.NewItemRepository(db.DB),
		usecase.WithLogger(logger.With().Str("component", "item_usecase").Logger()),
		usecase.WithParallelism(cfg.Batch.Parallelism),
		usecase.WithItemDelay(cfg.Batch.ItemDelay),
	)
}

// NewRouter returns an echo instance with middleware and all routes registered
func NewRouter(itemUsecase usecase.ItemUsecase, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := logger.Info()
			if v.Error != nil {
				event = logger.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	itemHandler := controller.NewItemHandler(itemUsecase)
	itemHandler.RegisterRoutes(e.Group("/api/items"))

	return e
}

func (s *Server) serve(ctx context.Context, e *echo.Echo) error {
	// Request contexts derive from baseCtx so that shutdown cancels running batch jobs
	baseCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.Server.BaseContext = func(net.Listener) context.Context { return baseCtx }

	var g run.Group

	g.Add(func() error {
		s.logger.Info().Str("addr", s.cfg.Address()).Msg("HTTP server started")
		if err := e.Start(s.cfg.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		return nil
	}, func(error) {
		s.logger.Info().Msg("shutting down HTTP server")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
		defer shutdownCancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("HTTP server shutdown failed")
		}
	})

	sig := make(chan os.Signal, 1)
	stop := make(chan struct{})
	g.Add(func() error {
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case received := <-sig:
			s.logger.Info().Str("signal", received.String()).Msg("received signal, shutting down")
		case <-ctx.Done():
			s.logger.Info().Msg("context cancelled, shutting down")
		case <-stop:
		}
		return nil
	}, func(error) {
		signal.Stop(sig)
		close(stop)
	})

	return g.Run()
}

func (s *Server) shutdownTimeout() time.Duration {
	if s.cfg.ShutdownTimeout > 0 {
		return s.cfg.ShutdownTimeout
	}
	return 10 * time.Second
}
