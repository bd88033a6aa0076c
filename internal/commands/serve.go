package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jengzang/rond-timeline/internal/api"
	"github.com/jengzang/rond-timeline/internal/config"
	"github.com/jengzang/rond-timeline/internal/handler"
	"github.com/jengzang/rond-timeline/internal/middleware"
	"github.com/jengzang/rond-timeline/internal/service"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(global *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve timelines over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o := global.overrides()
			o.Addr = addr

			cfg, err := config.Load(o)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.LogLevel, global.stderr)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (env ROND_ADDR, default :8080)")
	return cmd
}

// newServer wires the HTTP stack for cfg
func newServer(cfg *config.Config, logger *zap.Logger) (*http.Server, error) {
	svc, err := service.NewTimelineServiceForStore(cfg.StoreConfig())
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.SetupRouter(api.Options{
		Logger:    logger,
		Metrics:   middleware.NewMetrics(),
		Timeline:  handler.NewTimelineHandler(svc, cfg.Location, cfg.TimezoneName),
		JWTSecret: cfg.JWTSecret,
		RateLimit: cfg.RateLimit,
	})

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// serve runs until ctx is cancelled, then shuts down gracefully
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	srv, err := newServer(cfg, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting",
			zap.String("addr", cfg.Addr),
			zap.String("db_path", cfg.DBPath),
			zap.String("timezone", cfg.TimezoneName),
			zap.Bool("auth", cfg.JWTSecret != ""),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}
	logger.Info("Server exiting")
	return nil
}
