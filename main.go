package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"import-scout/internal/api"
	"import-scout/internal/collector"
	"import-scout/internal/config"
	"import-scout/internal/db"
	"import-scout/internal/engine"
	"import-scout/internal/feeds"
	"import-scout/internal/fx"
	"import-scout/internal/intel"
	"import-scout/internal/scheduler"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config file")
	runOnStart := flag.Bool("run-on-start", false, "refresh feeds and run analysis immediately")
	once := flag.Bool("once", false, "run one analysis pass and exit")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	godotenv.Load()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	if *debug {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}
	log.Info().Str("version", version).Msg("import-scout starting")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	if dir := filepath.Dir(cfg.Database.Path); dir != "." && cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("create database directory")
		}
	}
	database, err := db.Open(cfg.Database.Path, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Rate lookups go to the live API; a pinned static rate in config
	// keeps analysis alive through outages.
	var rates fx.RateProvider = fx.NewClient(log, fx.WithBaseURL(cfg.Rates.BaseURL))
	if cfg.Rates.StaticRate > 0 {
		rates = fx.Fallback{
			Primary:   rates,
			Secondary: fx.StaticProvider{Rate: cfg.Rates.StaticRate},
			Log:       log,
		}
	}

	feedClient := feeds.NewClient(cfg.Feeds.APIKey, log)
	col := collector.New(
		feeds.NewAuctionFeed(feedClient, cfg.Feeds.AuctionURL),
		feeds.NewListingFeed(feedClient, cfg.Feeds.ListingURL),
		feeds.NewRegistrationFeed(feedClient, cfg.Feeds.RegistrationURL),
		database,
		time.Duration(cfg.Feeds.RetentionDays)*24*time.Hour,
		log,
	)

	analyzer := engine.NewAnalyzer(
		database,
		rates,
		intel.NewSQLProvider(database, log),
		database,
		log,
		engine.WithMatcher(engine.Matcher{
			MinSourceSamples:      cfg.Analysis.MinSourceSamples,
			MinDestinationSamples: cfg.Analysis.MinDestinationSamples,
		}),
		engine.WithCostModel(cfg.Analysis.Costs),
		engine.WithScoringWeights(cfg.Analysis.Weights),
		engine.WithBonuses(cfg.Analysis.Bonuses),
		engine.WithLookupTimeout(time.Duration(cfg.Analysis.LookupTimeoutSeconds)*time.Second),
		engine.WithConcurrency(cfg.Analysis.Concurrency),
		engine.WithCurrencies(cfg.Rates.SourceCurrency, cfg.Rates.DestCurrency),
	)

	if *once {
		_, report, err := analyzer.Run(ctx, engine.Filter{})
		if err != nil {
			log.Fatal().Err(err).Msg("analysis run failed")
		}
		log.Info().Str("run_id", report.RunID).Int("scored", report.Scored).
			Int("dropped", len(report.Dropped)).Msg("analysis complete")
		return
	}

	sched := scheduler.New(ctx, col, analyzer, log)
	if err := sched.RegisterAll(
		cfg.Schedule.AuctionCron,
		cfg.Schedule.ListingCron,
		cfg.Schedule.RegistrationCron,
		cfg.Schedule.AnalysisCron,
	); err != nil {
		log.Fatal().Err(err).Msg("register schedule")
	}
	sched.Start()
	defer sched.Stop()

	if *runOnStart {
		go sched.RunAllNow()
	}

	srv := api.New(cfg.Server.Addr, database, analyzer, log)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		log.Fatal().Err(err).Msg("http server failed")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("import-scout stopped")
}
