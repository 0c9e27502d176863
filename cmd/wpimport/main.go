// Command wpimport runs the blog import-and-categorization pipeline.
//
// Modes:
//
//	wpimport -mode import -file export.xml [-force]
//	wpimport -mode categorize [-limit N] [-recategorize]
//	wpimport -mode full -file export.xml [-limit N] [-force]
//
// Configuration comes from the environment (optionally a .env file);
// see internal/config for the full list of keys.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"wpimport/internal/classify"
	"wpimport/internal/config"
	"wpimport/internal/repo"
	"wpimport/internal/services"
	"wpimport/internal/wxr"
)

func main() {
	var (
		mode         = flag.String("mode", "full", "pipeline mode: import, categorize, or full")
		file         = flag.String("file", "", "path to the WXR export file (import/full modes)")
		limit        = flag.Int("limit", 0, "max posts to categorize this run (0 = all)")
		force        = flag.Bool("force", false, "refresh content of already-imported posts")
		recategorize = flag.Bool("recategorize", false, "make completed/skipped posts eligible again")
	)
	flag.Parse()

	// .env is optional; real environment always wins.
	_ = godotenv.Load()
	cfg := config.MustLoad()

	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *mode, *file, *limit, *force, *recategorize); err != nil {
		log.Fatal().Err(err).Msg("pipeline failed")
	}
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger, mode, file string, limit int, force, recategorize bool) error {
	doImport := mode == "import" || mode == "full"
	doCategorize := mode == "categorize" || mode == "full"
	if !doImport && !doCategorize {
		return fmt.Errorf("unknown mode %q (want import, categorize, or full)", mode)
	}
	if doImport && file == "" {
		return fmt.Errorf("mode %q requires -file", mode)
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database %s: %w", cfg.DBPath, err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}

	if doImport {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		records, perr := wxr.Parse(f)
		f.Close()
		if perr != nil {
			return fmt.Errorf("parsing %s: %w", file, perr)
		}

		importer := services.NewImportService(db)
		importer.Log = log
		sum, ierr := importer.Run(ctx, records, file, force)
		if ierr != nil {
			return ierr
		}
		log.Info().
			Int("total", sum.Total).
			Int("inserted", sum.Inserted).
			Int("skipped", sum.Skipped).
			Int("failed", sum.Failed).
			Msg("import summary")
	}

	if doCategorize {
		if cfg.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for mode %q", mode)
		}
		svc := services.NewCategorizeService(db, classify.NewOpenAIClassifier(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model))
		svc.Log = log
		svc.BatchSize = cfg.BatchSize
		svc.ContentMaxRunes = cfg.ContentMaxChars
		svc.MaxCategories = cfg.MaxCategories
		svc.MaxAttempts = cfg.MaxAttempts
		svc.RetryBaseDelay = cfg.RetryBaseDelay
		svc.RetryMaxDelay = cfg.RetryMaxDelay
		svc.PromptCostPer1K = cfg.PromptCostPer1K
		svc.CompletionCostPer1K = cfg.CompletionCostPer1K
		if cfg.RateRPS > 0 {
			svc.Limiter = rate.NewLimiter(rate.Limit(cfg.RateRPS), cfg.RateBurst)
		}

		var (
			sum  *services.CategorizeSummary
			cerr error
		)
		if recategorize {
			sum, cerr = svc.RunRecategorize(ctx, limit)
		} else {
			sum, cerr = svc.Run(ctx, limit)
		}
		if sum != nil {
			log.Info().
				Int("selected", sum.Selected).
				Int("completed", sum.Completed).
				Int("failed", sum.Failed).
				Int("skipped", sum.Skipped).
				Int("prompt_tokens", sum.PromptTokens).
				Int("completion_tokens", sum.CompletionTokens).
				Float64("estimated_cost", sum.EstimatedCost).
				Msg("categorization summary")
		}
		if cerr != nil && ctx.Err() == nil {
			return cerr
		}
	}

	if stats, err := repo.CountPostsByStatus(ctx, db); err == nil {
		log.Info().
			Int64("total", stats.Total).
			Int64("pending", stats.Pending).
			Int64("completed", stats.Completed).
			Int64("failed", stats.Failed).
			Int64("skipped", stats.Skipped).
			Msg("post status counts")
	}
	if totals, err := repo.SumAPIUsage(ctx, db); err == nil && totals.Calls > 0 {
		log.Info().
			Int64("calls", totals.Calls).
			Int64("prompt_tokens", totals.PromptTokens).
			Int64("completion_tokens", totals.CompletionTokens).
			Float64("estimated_cost", totals.EstimatedCost).
			Msg("usage ledger totals")
	}

	return nil
}

// newLogger builds the process logger from config: level, UTC
// timestamps, and an optional pretty console writer for development.
func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	w := zerolog.New(os.Stderr)
	if cfg.LogPretty {
		w = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return w.Level(level).With().Timestamp().Logger()
}
