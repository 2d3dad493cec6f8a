package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	agentapi "github.com/robinstudios/dot/internal/agent/api"
	"github.com/robinstudios/dot/internal/common/httpmw"
	"github.com/robinstudios/dot/internal/common/tracing"
	exportapi "github.com/robinstudios/dot/internal/export/api"
	generationapi "github.com/robinstudios/dot/internal/generation/api"
)

const serviceName = "dot"

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load(false)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.close()
			return serve(ctx, a)
		},
	}
}

// serve runs the HTTP server until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, a *app) error {
	log := a.log

	if err := a.exporter.Start(ctx); err != nil {
		return fmt.Errorf("start export engine: %w", err)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port),
		Handler:      newRouter(a),
		ReadTimeout:  a.cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: a.cfg.Server.WriteTimeoutDuration(),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", server.Addr), zap.Bool("tracing", tracing.Enabled()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}

	log.Info("Shutting down Dot...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
	if err := a.exporter.Stop(); err != nil {
		log.Error("Export engine stop error", zap.Error(err))
	}
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		log.Error("Tracing shutdown error", zap.Error(err))
	}
	log.Info("Dot stopped")
	return nil
}

// newRouter mounts every API on a gin engine.
func newRouter(a *app) *gin.Engine {
	if a.cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpmw.Tracing(tracing.Provider(), serviceName))
	router.Use(httpmw.RequestLogger(a.log, serviceName))

	agentapi.RegisterRoutes(router, a.registry, a.packs, a.selector, a.eventBus, a.log)
	generationapi.RegisterRoutes(router, a.generator, a.log)
	exportapi.RegisterRoutes(router, a.exporter, a.eventBus, a.log)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"service":   serviceName,
			"event_bus": a.eventBus.IsConnected(),
		})
	})
	return router
}
