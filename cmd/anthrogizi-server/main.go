package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/anthrogizi/anthrogizi/internal/anthro"
	"github.com/anthrogizi/anthrogizi/internal/config"
	"github.com/anthrogizi/anthrogizi/internal/domain/growth"
	"github.com/anthrogizi/anthrogizi/internal/domain/motivation"
	"github.com/anthrogizi/anthrogizi/internal/domain/records"
	"github.com/anthrogizi/anthrogizi/internal/domain/screening"
	"github.com/anthrogizi/anthrogizi/internal/platform/auth"
	"github.com/anthrogizi/anthrogizi/internal/platform/db"
	"github.com/anthrogizi/anthrogizi/internal/platform/middleware"
	"github.com/anthrogizi/anthrogizi/internal/platform/telemetry"
	"github.com/anthrogizi/anthrogizi/internal/platform/websocket"
	"github.com/anthrogizi/anthrogizi/internal/refdata"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:           "anthrogizi-server",
		Short:         "Child growth assessment API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tablesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Reference tables are loaded once and shared read-only.
	ref, err := refdata.Load(cfg.ReferenceDataDir)
	if err != nil {
		return fmt.Errorf("load reference tables: %w", err)
	}
	if err := checkReferenceData(cfg, ref); err != nil {
		return err
	}
	logger.Info().Int("tables", len(ref.Keys())).Str("dir", cfg.ReferenceDataDir).
		Str("source", ref.Source()).Msg("reference tables loaded")
	if ref.Illustrative() {
		logger.Warn().Msg("reference tables are sample data; set REFERENCE_DATA_DIR to the published WHO tables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openRecordStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.close()

	hub := websocket.NewHub(logger)
	e := newServer(cfg, logger, ref, store, hub)

	picker := motivation.NewPicker(nil)
	go motivation.NewBroadcaster(picker, hub, logger).Run(ctx, cfg.NotificationInterval)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("records_backend", store.backend).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer builds the echo instance with every route registered.
// checkReferenceData refuses sample tables outside development, whichever
// directory they were loaded from.
func checkReferenceData(cfg *config.Config, ref *anthro.ReferenceTable) error {
	if ref.Illustrative() && !cfg.IsDev() {
		return fmt.Errorf("reference tables %q are marked illustrative and cannot be used with ENV=%q", ref.Source(), cfg.Env)
	}
	return nil
}

func newServer(cfg *config.Config, logger zerolog.Logger, ref *anthro.ReferenceTable, store *recordStore, hub *websocket.Hub) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	metrics := telemetry.New()
	metrics.RegisterGauge("websocket_clients", func() float64 { return float64(hub.ClientCount()) })

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(metrics.Middleware())
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		Skipper:           func(c echo.Context) bool { return !strings.HasPrefix(c.Request().URL.Path, "/api/") },
	}))

	e.GET("/metrics", metrics.Handler())
	e.GET("/health", db.HealthHandler(store.backend, store.pinger, len(ref.Keys())))
	e.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"version": version})
	})

	// The group carries no middleware of its own: echo registers catch-all
	// routes for groups that do, which would hide 404 and 405 behind them.
	api := e.Group("/api")

	calc := anthro.NewCalculator(ref)
	growth.NewHandler(growth.NewService(calc).WithRecorder(metrics), logger).RegisterRoutes(api)
	screening.NewHandler().RegisterRoutes(api)
	motivation.NewHandler(motivation.NewPicker(nil)).RegisterRoutes(api)

	// Saved calculations are the only authenticated routes.
	jwtCfg := auth.JWTConfig{
		Issuer:   cfg.AuthIssuer,
		Audience: cfg.AuthAudience,
		JWKSURL:  cfg.AuthJWKSURL,
	}
	if cfg.AuthSigningKey != "" {
		jwtCfg.SigningKey = []byte(cfg.AuthSigningKey)
	}
	authMW := auth.JWTMiddleware(jwtCfg)
	if cfg.IsDev() {
		authMW = auth.DevAuthMiddleware(jwtCfg)
	}
	recordsSvc := records.NewService(store.repo, hub, logger)
	records.NewHandler(recordsSvc, cfg.ExportMaxRecords).RegisterRoutes(api, authMW)

	websocket.NewWebSocketHandler(hub, cfg.CORSOrigins).RegisterRoutes(e)

	return e
}
