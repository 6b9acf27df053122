// Package scheduler drives the periodic feed refreshes and analysis runs.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"import-scout/internal/collector"
	"import-scout/internal/engine"
	"import-scout/internal/feeds"
)

// Analyzer triggers a full matching and scoring run.
type Analyzer interface {
	Run(ctx context.Context, filter engine.Filter) ([]engine.ScoredOpportunity, *engine.RunReport, error)
}

// Scheduler manages the cron tasks.
type Scheduler struct {
	cron      *cron.Cron
	collector *collector.Collector
	analyzer  Analyzer
	ctx       context.Context
	log       zerolog.Logger
}

// New creates a Scheduler. Standard 5-field cron specs.
func New(ctx context.Context, col *collector.Collector, analyzer Analyzer, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		collector: col,
		analyzer:  analyzer,
		ctx:       ctx,
		log:       log.With().Str("component", "scheduler").Logger(),
	}
}

// RegisterAll registers the refresh and analysis tasks with their cron
// specs. Each feed refreshes on its own cadence; the analysis run is
// scheduled after the overnight refreshes settle.
func (s *Scheduler) RegisterAll(auctionCron, listingCron, registrationCron, analysisCron string) error {
	if _, err := s.cron.AddFunc(auctionCron, s.refreshAuctions); err != nil {
		return fmt.Errorf("register auction refresh: %w", err)
	}
	if _, err := s.cron.AddFunc(listingCron, s.refreshListings); err != nil {
		return fmt.Errorf("register listing refresh: %w", err)
	}
	if _, err := s.cron.AddFunc(registrationCron, s.refreshRegistrations); err != nil {
		return fmt.Errorf("register registration refresh: %w", err)
	}
	if _, err := s.cron.AddFunc(analysisCron, s.runAnalysis); err != nil {
		return fmt.Errorf("register analysis run: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunAllNow executes every refresh and one analysis run immediately.
// Used at startup so a fresh deployment has data before the first tick.
func (s *Scheduler) RunAllNow() {
	s.refreshAuctions()
	s.refreshListings()
	s.refreshRegistrations()
	s.runAnalysis()
}

func (s *Scheduler) refreshAuctions() {
	stored, rejected, err := s.collector.RefreshAuctions(s.ctx, feeds.Query{})
	if err != nil {
		s.log.Error().Err(err).Msg("auction refresh failed")
		return
	}
	s.log.Info().Int("stored", stored).Int("rejected", rejected).Msg("auction refresh done")
}

func (s *Scheduler) refreshListings() {
	stored, rejected, err := s.collector.RefreshListings(s.ctx, feeds.Query{})
	if err != nil {
		s.log.Error().Err(err).Msg("listing refresh failed")
		return
	}
	s.log.Info().Int("stored", stored).Int("rejected", rejected).Msg("listing refresh done")
}

func (s *Scheduler) refreshRegistrations() {
	stored, rejected, err := s.collector.RefreshRegistrations(s.ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("registration refresh failed")
		return
	}
	s.log.Info().Int("stored", stored).Int("rejected", rejected).Msg("registration refresh done")
}

func (s *Scheduler) runAnalysis() {
	_, report, err := s.analyzer.Run(s.ctx, engine.Filter{})
	if err != nil {
		s.log.Error().Err(err).Msg("analysis run failed")
		return
	}
	s.log.Info().
		Str("run_id", report.RunID).
		Int("matched", report.Matched).
		Int("scored", report.Scored).
		Int("dropped", len(report.Dropped)).
		Msg("scheduled analysis done")
}
