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

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"github.com/Skufu/skintriage/internal/config"
	"github.com/Skufu/skintriage/internal/consultation"
	"github.com/Skufu/skintriage/internal/gemini"
	"github.com/Skufu/skintriage/internal/hospitals"
	"github.com/Skufu/skintriage/internal/imagestore"
	"github.com/Skufu/skintriage/internal/logging"
	"github.com/Skufu/skintriage/internal/server"
	"github.com/Skufu/skintriage/internal/store"
	"github.com/Skufu/skintriage/internal/triage"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "skintriage",
		Short:        "Skin lesion triage API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(serveCmd(), probeCmd(), migrateCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func probeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "List the Gemini models that answer with the configured key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.IsDev(), cfg.LogLevel)

			client, err := gemini.NewClient(cmd.Context(), cfg.GeminiAPIKey)
			if err != nil {
				return err
			}
			defer client.Close()

			models := gemini.Probe(cmd.Context(), client, cfg.GeminiModels, cfg.ProbeTimeout, logger)
			if len(models) == 0 {
				return triage.ErrModelUnavailable
			}
			for _, m := range models {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\timages=%t\n", m.ID, m.SupportsImages)
			}
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required")
			}

			pool, err := store.NewPool(cmd.Context(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := store.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	gin.SetMode(cfg.GinMode)
	logger := logging.New(cfg.IsDev(), cfg.LogLevel)

	srv, cleanup, err := buildServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Model calls can take up to ModelTimeout.
		WriteTimeout: cfg.ModelTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	logger.Info().
		Str("port", cfg.Port).
		Bool("ai_enabled", srv.Generator != nil).
		Strs("models", srv.Selector.IDs()).
		Msg("server listening")

	return waitForShutdown(httpServer, errCh, logger)
}

// buildServer wires the collaborators described by cfg. The returned cleanup
// releases the database pool and the Gemini client.
func buildServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*server.Server, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	srv := &server.Server{
		Scheduler: consultation.NewScheduler(),
		Logger:    logger,
		Options: server.Options{
			CORSOrigins:    cfg.CORSOrigins,
			MaxUploadBytes: cfg.MaxUploadBytes,
			UploadRPS:      cfg.UploadRateRPS,
			UploadBurst:    cfg.UploadRateBurst,
		},
	}

	if cfg.EnableDB {
		pool, err := store.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, cleanup, fmt.Errorf("database connection failed: %w", err)
		}
		closers = append(closers, pool.Close)
		if err := store.Migrate(ctx, pool); err != nil {
			cleanup()
			return nil, func() {}, err
		}
		srv.DB = pool
		srv.Records = store.NewRecordRepoPG(pool)
		srv.Users = store.NewUserRepoPG(pool)
	} else {
		mem := store.NewMemoryStore()
		srv.Records = mem
		srv.Users = mem.Users()
		logger.Warn().Msg("database disabled, records are kept in memory")
	}

	images, uploadDir, err := buildImageStore(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	srv.Images = images
	srv.Options.UploadDir = uploadDir

	var invoker *triage.ModelInvoker
	if cfg.AIEnabled() {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			logger.Error().Err(err).Msg("gemini unavailable, using mock diagnoses")
		} else {
			closers = append(closers, func() { client.Close() })
			models := gemini.Probe(ctx, client, cfg.GeminiModels, cfg.ProbeTimeout, logger)
			srv.Selector = triage.NewStaticSelector(models)
			srv.Generator = client
			invoker = triage.NewModelInvoker(client, srv.Selector, cfg.ModelTimeout)
		}
	} else {
		logger.Warn().Msg("GEMINI_API_KEY not set, using mock diagnoses")
	}

	if invoker != nil {
		srv.Pipeline = triage.NewPipeline(invoker, logger)
		srv.Questions = triage.NewQuestionGenerator(invoker, logger)
	} else {
		srv.Pipeline = triage.NewPipeline(nil, logger)
		srv.Questions = triage.NewQuestionGenerator(nil, logger)
	}

	if finder, err := hospitals.NewPlacesFinder(cfg.GoogleMapsAPIKey); err == nil {
		srv.Hospitals = finder
	} else {
		logger.Info().Err(err).Msg("hospital search disabled")
	}

	return srv, cleanup, nil
}

// buildImageStore returns the configured store and, for the local store, the
// directory to serve.
func buildImageStore(ctx context.Context, cfg *config.Config) (imagestore.Store, string, error) {
	switch cfg.ImageStore {
	case config.ImageStoreMinIO:
		m, err := imagestore.NewMinIO(ctx, imagestore.MinIOConfig{
			Endpoint:   cfg.MinIOEndpoint,
			AccessKey:  cfg.MinIOAccessKey,
			SecretKey:  cfg.MinIOSecretKey,
			Bucket:     cfg.MinIOBucket,
			UseSSL:     cfg.MinIOUseSSL,
			PublicBase: cfg.MinIOPublicBase,
		})
		if err != nil {
			return nil, "", err
		}
		return m, "", nil
	default:
		l, err := imagestore.NewLocal(cfg.UploadDir, cfg.PublicBaseURL)
		if err != nil {
			return nil, "", err
		}
		return l, l.Dir(), nil
	}
}

func waitForShutdown(server *http.Server, errCh <-chan error, logger zerolog.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}

	logger.Info().Msg("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	return nil
}
