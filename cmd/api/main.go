package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/satish1373/ag-devops/internal/config"
	"github.com/satish1373/ag-devops/internal/database"
	"github.com/satish1373/ag-devops/internal/events"
	"github.com/satish1373/ag-devops/internal/logging"
	"github.com/satish1373/ag-devops/internal/repository"
	"github.com/satish1373/ag-devops/internal/server"
	"github.com/satish1373/ag-devops/internal/service"
)

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "api",
	Short: "Todo API and Jira automation server",
	Long: `Serves the todo REST API, accepts Jira webhooks and turns the issues
they describe into todos on a bounded worker pool.

Configuration comes from defaults, an optional YAML file (--config), a .env
file and the environment, in that order.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		for _, w := range cfg.Warnings() {
			logger.Warn(w)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (default)",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbService, err := database.New(cfg.Database, logger)
		if err != nil {
			return err
		}
		defer dbService.Close()

		logger.Info("running database auto-migration", zap.String("driver", dbService.Driver()))
		if err := dbService.Migrate(); err != nil {
			return err
		}
		logger.Info("database auto-migration complete")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	// 1. Database
	dbService, err := database.New(cfg.Database, logger)
	if err != nil {
		return err
	}
	if err := dbService.Migrate(); err != nil {
		_ = dbService.Close()
		return err
	}
	gormDB := dbService.GetDB()

	// 2. Repositories
	todoRepo := repository.NewGormTodoRepository(gormDB)
	userRepo := repository.NewGormUserRepository(gormDB)
	runRepo := repository.NewGormRunRepository(gormDB)

	// 3. Services
	hub := events.NewHub(logger)
	todoService := service.NewTodoService(todoRepo, hub)
	authService := service.NewAuthService(userRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	webhookService := service.NewWebhookService(runRepo, service.NewTodoProcessor(todoService), service.WebhookOptions{
		Secret:    cfg.Webhook.Secret,
		Workers:   cfg.Webhook.Workers,
		QueueSize: cfg.Webhook.QueueSize,
		Publisher: hub,
		Logger:    logger,
	})
	// Workers outlive the signal context so Stop can drain them.
	if err := webhookService.Start(context.Background()); err != nil {
		_ = dbService.Close()
		return err
	}

	// 4. Server
	apiServer := server.NewServer(cfg, server.Deps{
		DB:       dbService,
		Todos:    todoService,
		Auth:     authService,
		Webhooks: webhookService,
		Hub:      hub,
		Logger:   logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(hubCtx)
		return nil
	})
	g.Go(func() error {
		logger.Info("starting server",
			zap.String("addr", apiServer.Addr),
			zap.String("db_driver", dbService.Driver()),
			zap.Bool("auth_required", cfg.Auth.Required),
			zap.Bool("webhook_signature", cfg.Webhook.Secret != ""),
		)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server ListenAndServe error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		gracefulShutdown(gctx, stop, apiServer, webhookService, stopHub)
		return nil
	})

	err = g.Wait()

	logger.Info("closing database connection pool")
	if cerr := dbService.Close(); cerr != nil {
		logger.Error("error closing database connection pool", zap.Error(cerr))
	}
	logger.Info("server exiting")
	return err
}

// gracefulShutdown waits for ctx, gives in-flight requests 5 seconds, then
// drains the webhook workers and stops the event hub.
func gracefulShutdown(ctx context.Context, stop context.CancelFunc, apiServer *http.Server, webhooks service.WebhookService, stopHub context.CancelFunc) {
	<-ctx.Done()

	logger.Info("shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxTimeout); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}

	logger.Info("draining webhook workers")
	webhooks.Stop()
	stopHub()
}
