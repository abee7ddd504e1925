package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/maloquacious/semver"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"student-roster-go/config"
	"student-roster-go/db"
	"student-roster-go/handlers"
)

var version = semver.Version{Minor: 1, Build: semver.Commit()}

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		logrus.Fatalf("Failed to load environment: %v", err)
	}
	cfg, err := config.FromEnv(config.Default(), os.LookupEnv)
	if err != nil {
		logrus.Fatalf("Invalid environment: %v", err)
	}

	rootCmd := &cobra.Command{
		Use:          "students",
		Short:        "Student roster API server",
		SilenceUsage: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cfg)
		},
	}
	config.BindFlags(serveCmd.Flags(), &cfg)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.String())
		},
	}

	rootCmd.AddCommand(serveCmd, versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// openStore builds the configured backend.
func openStore(ctx context.Context, cfg config.Config) (db.Store, error) {
	switch cfg.Store {
	case config.StoreRedis:
		client, err := db.InitializeRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return db.NewRedisStore(client, cfg.RedisPrefix), nil
	case config.StoreSQL:
		return db.NewSQLStore()
	default:
		return db.NewMemoryStore(), nil
	}
}

func runServe(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.ConfigureLogging(); err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logrus.WithError(err).Warn("Error closing store")
		}
	}()

	if err := db.Seed(ctx, store, cfg.RandomStudents); err != nil {
		return err
	}

	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	apiHandler := handlers.NewAPIHandler(store, version.String())
	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: handlers.SetupRouter(apiHandler),
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("Starting server on %s (store=%s, version=%s)", cfg.Addr, cfg.Store, version.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logrus.Info("Shutting down")
	case err := <-errCh:
		return fmt.Errorf("failed to run server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logrus.Info("Shutdown complete")
	return nil
}
