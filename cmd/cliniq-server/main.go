package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cliniq/cliniq/internal/config"
	"github.com/cliniq/cliniq/internal/domain/registry"
	"github.com/cliniq/cliniq/internal/domain/scheduling"
	"github.com/cliniq/cliniq/internal/platform/auth"
	"github.com/cliniq/cliniq/internal/platform/cache"
	"github.com/cliniq/cliniq/internal/platform/db"
	"github.com/cliniq/cliniq/internal/platform/middleware"
)

func main() {
	root := &cobra.Command{
		Use:   "cliniq-server",
		Short: "Clinic appointment scheduling service",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}
	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrate(func(ctx context.Context, m *db.Migrator) error {
					return m.Up(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrate(func(ctx context.Context, m *db.Migrator) error {
					statuses, err := m.Status(ctx)
					if err != nil {
						return err
					}
					for _, s := range statuses {
						state := "pending"
						if s.Applied {
							state = "applied"
						}
						fmt.Printf("%03d %-30s %s\n", s.Version, s.Name, state)
					}
					return nil
				})
			},
		},
	)

	root.AddCommand(serveCmd, migrateCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func runMigrate(fn func(ctx context.Context, m *db.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, db.NewMigrator(pool, cfg.MigrationsDir, log))
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return err
	}
	defer pool.Close()
	log.Info().Msg("database pool ready")

	var c *cache.Cache
	if cfg.RedisURL != "" {
		c, err = cache.New(ctx, cfg.RedisURL, time.Duration(cfg.CacheTTLMS)*time.Millisecond, log)
		if err != nil {
			return err
		}
		defer c.Close()
		log.Info().Msg("redis cache ready")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(log))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
	}))

	e.GET("/health", func(c echo.Context) error {
		if err := pool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "down"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api/v1")
	if cfg.IsDev() && cfg.AuthSecret == "" && cfg.AuthJWKSURL == "" {
		log.Warn().Msg("auth disabled, using permissive dev middleware")
		api.Use(auth.DevAuthMiddleware())
	} else {
		api.Use(auth.JWTMiddleware(auth.Config{
			Secret:   cfg.AuthSecret,
			JWKSURL:  cfg.AuthJWKSURL,
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
		}))
	}

	txRunner := db.NewPoolRunner(pool)

	schedulingSvc := scheduling.NewService(
		scheduling.NewPgScheduleRepo(pool),
		scheduling.NewPgAppointmentRepo(pool),
		scheduling.NewPgHistoryRepo(pool),
		txRunner,
	)
	scheduling.NewHandler(schedulingSvc, c).RegisterRoutes(api)

	registrySvc := registry.NewService(
		registry.NewPgPatientRepo(pool),
		registry.NewPgProfessionalRepo(pool),
		registry.NewPgCareUnitRepo(pool),
	)
	registry.NewHandler(registrySvc).RegisterRoutes(api)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}
