package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medoco-health/dtxlink/internal/config"
	"github.com/medoco-health/dtxlink/internal/domain/batch"
	"github.com/medoco-health/dtxlink/internal/domain/matching"
	"github.com/medoco-health/dtxlink/internal/domain/reference"
	"github.com/medoco-health/dtxlink/internal/platform/db"
	"github.com/medoco-health/dtxlink/internal/platform/middleware"
	"github.com/medoco-health/dtxlink/internal/platform/pms"
	"github.com/medoco-health/dtxlink/internal/platform/reporting"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "dtxlink",
		Short: "Patient identity resolution between imaging exports and the PMS",
	}

	rootCmd.AddCommand(matchCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(mergeCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func matcherConfig(cfg *config.Config) matching.Config {
	return matching.Config{
		ReviewThreshold:        cfg.ConfidenceThreshold,
		FuzzyDateThreshold:     cfg.FuzzyDateThreshold,
		DisablePartialMatching: !cfg.PartialMatching,
	}
}

// referenceRepo picks the reference source: a CSV export when --reference is
// given, the PMS database otherwise. The pool is nil for the CSV source; the
// closer releases whichever resource backs the repository.
func referenceRepo(ctx context.Context, refPath string, cfg *config.Config, logger zerolog.Logger) (reference.Repository, *pgxpool.Pool, func(), error) {
	if refPath != "" {
		f, err := os.Open(refPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open reference file: %w", err)
		}
		return reference.NewCSVRepository(f, logger), nil, func() { f.Close() }, nil
	}

	if cfg.DatabaseURL == "" {
		return nil, nil, nil, fmt.Errorf("either --reference or DATABASE_URL is required")
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, nil, err
	}
	return reference.NewPGRepository(pool, logger), pool, pool.Close, nil
}

func matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match an incoming CSV export against the reference set",
		RunE: func(cmd *cobra.Command, args []string) error {
			refPath, _ := cmd.Flags().GetString("reference")
			inputPath, _ := cmd.Flags().GetString("input")
			outputPath, _ := cmd.Flags().GetString("output")

			logger := newLogger()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			repo, _, closeRepo, err := referenceRepo(ctx, refPath, cfg, logger)
			if err != nil {
				return err
			}
			defer closeRepo()

			in, err := os.Open(inputPath)
			if err != nil {
				return fmt.Errorf("open input file: %w", err)
			}
			defer in.Close()

			var out *os.File
			if outputPath != "" {
				out, err = os.Create(outputPath)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer out.Close()
			}

			svc := batch.NewService(repo, matcherConfig(cfg), logger)
			var result *batch.Result
			if out != nil {
				result, err = svc.Run(ctx, in, out)
			} else {
				result, err = svc.Run(ctx, in, nil)
			}
			if err != nil {
				return err
			}

			return reporting.Write(os.Stdout, result)
		},
	}
	cmd.Flags().String("reference", "", "Reference set CSV export (defaults to DATABASE_URL)")
	cmd.Flags().String("input", "", "Incoming records CSV")
	cmd.Flags().String("output", "", "Updated records CSV (omit for an audit-only run)")
	cmd.MarkFlagRequired("input")
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the matching API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			refPath, _ := cmd.Flags().GetString("reference")
			return runServer(refPath)
		},
	}
	cmd.Flags().String("reference", "", "Reference set CSV export (defaults to DATABASE_URL)")
	return cmd
}

func runServer(refPath string) error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	repo, pool, closeRepo, err := referenceRepo(ctx, refPath, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open reference source")
	}
	defer closeRepo()

	svc := batch.NewService(repo, matcherConfig(cfg), logger)
	matcher, err := svc.BuildMatcher(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build matcher")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(middleware.DevAuth())
	} else {
		e.Use(middleware.BearerAuth(cfg.AuthSecret))
	}

	apiV1 := e.Group("/api/v1")
	matching.NewHandler(matcher).RegisterRoutes(apiV1)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if pool != nil {
		e.GET("/health/db", db.HealthHandler(pool))
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func mergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge duplicate patient registrations in the PMS",
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath, _ := cmd.Flags().GetString("input")

			logger := newLogger()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.PMSAPIHost == "" {
				return fmt.Errorf("PMS_API_HOST is required")
			}

			f, err := os.Open(inputPath)
			if err != nil {
				return fmt.Errorf("open input file: %w", err)
			}
			defer f.Close()

			rows, err := batch.NewRowReader(f)
			if err != nil {
				return err
			}
			var ids []string
			for {
				row, err := rows.Next()
				if err != nil {
					break
				}
				ids = append(ids, row["pms_id"])
			}

			groups := pms.GroupDuplicates(ids)
			if len(groups) == 0 {
				fmt.Println("No duplicate registrations found.")
				return nil
			}

			baseURL := fmt.Sprintf("https://%s:%s", cfg.PMSAPIHost, cfg.PMSAPIPort)
			client := pms.NewClient(baseURL, cfg.PMSAPIToken, logger)

			report, err := client.MergeAll(cmd.Context(), groups)
			if err != nil {
				return err
			}
			fmt.Printf("Merged %d duplicate(s), %d failed.\n", report.Merged, report.Failed)
			return nil
		},
	}
	cmd.Flags().String("input", "", "Patient CSV carrying the pms_id column")
	cmd.MarkFlagRequired("input")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("dtxlink", version)
		},
	}
}
