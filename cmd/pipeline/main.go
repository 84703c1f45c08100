// Command pipeline runs the NBA statistics ETL for each configured season:
// extract from the stats API (or reuse fresh local data), clean and enrich,
// validate, then load locally and optionally into Snowflake and S3.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/nba-analytics/internal/config"
	"github.com/ignite/nba-analytics/internal/etl"
	"github.com/ignite/nba-analytics/internal/nbastats"
	"github.com/ignite/nba-analytics/internal/pkg/logger"
	"github.com/ignite/nba-analytics/internal/tablestore"
	"github.com/ignite/nba-analytics/internal/warehouse"
	"github.com/ignite/nba-analytics/internal/watermark"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file (optional)")
		season     = flag.String("season", "", "run a single season (e.g. 2023-24) instead of the configured list")
		full       = flag.Bool("full", false, "force a full refetch, ignoring watermarks")
		logLevel   = flag.String("log-level", "", "override log level: debug, info, warn, error")
	)
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	level := cfg.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	logger.SetLevel(parseLevel(level))

	seasons := cfg.Seasons
	if *season != "" {
		if !config.ValidSeason(*season) {
			fmt.Fprintf(os.Stderr, "invalid season %q, expected YYYY-YY\n", *season)
			os.Exit(1)
		}
		seasons = []string{*season}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, cleanup, err := buildPipeline(ctx, cfg)
	if err != nil {
		logger.Error("pipeline setup failed", "error", err.Error())
		os.Exit(1)
	}
	defer cleanup()

	incremental := cfg.Incremental.Enabled && !*full
	failed := 0

	for _, s := range seasons {
		result := pipeline.Run(ctx, s, incremental)
		printSummary(result)
		if result.Status == etl.StatusFailed {
			failed++
		}
		if ctx.Err() != nil {
			logger.Warn("interrupted, stopping season loop")
			break
		}
	}

	if failed > 0 {
		logger.Error("pipeline finished with failures", "failed_seasons", failed)
		os.Exit(1)
	}
}

// buildPipeline wires the stages from configuration. The returned cleanup
// closes any connections that were opened.
func buildPipeline(ctx context.Context, cfg *config.Config) (*etl.Pipeline, func(), error) {
	cleanup := func() {}

	fetcher := nbastats.NewRetryingFetcher(
		&http.Client{Timeout: cfg.Provider.Timeout()},
		cfg.Provider.BaseURL,
		cfg.Provider.MaxAttempts,
		cfg.Provider.BaseDelay(),
	)
	provider := nbastats.NewClient(fetcher)

	store, err := tablestore.New(cfg.Storage)
	if err != nil {
		return nil, cleanup, err
	}

	marks, err := buildWatermarkStore(cfg.Watermark)
	if err != nil {
		return nil, cleanup, err
	}

	var sink etl.WarehouseSink
	if cfg.Snowflake.Enabled {
		client, err := warehouse.NewClient(cfg.Snowflake)
		if err != nil {
			return nil, cleanup, fmt.Errorf("connecting to snowflake: %w", err)
		}
		cleanup = func() { client.Close() }
		sink = client
	}

	var archiver etl.Archiver
	if cfg.Archive.Enabled {
		a, err := tablestore.NewS3Archiver(ctx, cfg.Archive)
		if err != nil {
			return nil, cleanup, fmt.Errorf("configuring S3 archiver: %w", err)
		}
		archiver = a
	}

	extractor := etl.NewExtractor(provider, store, marks, cfg.Incremental.Lookback(), cfg.Incremental.Enabled)
	transformer := etl.NewTransformer(etl.DefaultRules())
	gate := etl.NewQualityGate(cfg.Quality, etl.DefaultRules())
	loader := etl.NewLoader(store, sink, archiver)

	return etl.NewPipeline(extractor, transformer, gate, loader), cleanup, nil
}

func buildWatermarkStore(cfg config.WatermarkConfig) (watermark.Store, error) {
	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		return watermark.NewRedisStore(client), nil
	default:
		return watermark.NewFileStore(cfg.Dir)
	}
}

func parseLevel(s string) logger.Level {
	switch strings.ToLower(s) {
	case "debug":
		return logger.DEBUG
	case "warn":
		return logger.WARN
	case "error":
		return logger.ERROR
	default:
		return logger.INFO
	}
}

func printSummary(r *etl.RunResult) {
	fmt.Printf("run %s season=%s status=%s steps=%s extracted=%d transformed=%d duration=%s\n",
		r.RunID, r.Season, r.Status, strings.Join(r.StepsCompleted, ","),
		r.RecordsExtracted, r.RecordsTransformed, r.Duration())
	for _, report := range r.QualityReports {
		fmt.Printf("  quality %s: rows=%d missing=%.4f duplicates=%d\n",
			report.Table, report.RowCount, report.MissingFraction, report.DuplicateKeyCount)
	}
	if r.Load != nil {
		for _, f := range r.Load.LocalFiles {
			fmt.Printf("  wrote %s\n", f)
		}
		for _, table := range r.Load.WarehouseTables {
			fmt.Printf("  loaded warehouse table %s\n", table)
		}
	}
	for _, e := range r.Errors {
		fmt.Printf("  error: %s\n", e)
	}
}
