package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"import-scout/internal/intel"
	"import-scout/internal/vehicle"
)

// AggregateReader supplies the per-market aggregates a run starts from.
type AggregateReader interface {
	SourceAggregates(ctx context.Context, filter Filter) ([]vehicle.SourceAggregate, error)
	DestinationAggregates(ctx context.Context, filter Filter) ([]vehicle.DestinationAggregate, error)
}

// RateProvider supplies the current exchange rate (to-currency per unit of
// from-currency). A run fails without one unless the provider itself
// implements a fallback policy.
type RateProvider interface {
	CurrentRate(ctx context.Context, from, to string) (float64, error)
}

// ResultSink persists a run's output. Replace semantics: the new set
// supersedes the old one wholesale.
type ResultSink interface {
	ReplaceAll(ctx context.Context, runID string, results []ScoredOpportunity) error
}

// Analyzer runs the full match -> cost -> score -> insight pipeline.
// Every collaborator is injected at construction; the analyzer holds no
// global state and instances are safe to use from one goroutine at a time.
type Analyzer struct {
	reader  AggregateReader
	rates   RateProvider
	intel   intel.Provider
	sink    ResultSink
	scorer  FeatureScorer
	matcher Matcher

	costModel CostModel
	weights   ScoringWeights
	bonuses   Bonuses

	lookupTimeout time.Duration
	concurrency   int

	sourceCurrency string
	destCurrency   string

	log zerolog.Logger
	now func() time.Time
}

// AnalyzerOption customizes an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithMatcher overrides the default match thresholds.
func WithMatcher(m Matcher) AnalyzerOption {
	return func(a *Analyzer) { a.matcher = m }
}

// WithCostModel overrides the default landed-cost constants.
func WithCostModel(m CostModel) AnalyzerOption {
	return func(a *Analyzer) { a.costModel = m }
}

// WithScoringWeights overrides the default overall-score weights.
func WithScoringWeights(w ScoringWeights) AnalyzerOption {
	return func(a *Analyzer) { a.weights = w }
}

// WithBonuses overrides the default final-score adjustments.
func WithBonuses(b Bonuses) AnalyzerOption {
	return func(a *Analyzer) { a.bonuses = b }
}

// WithFeatureScorer swaps the secondary scorer implementation.
func WithFeatureScorer(s FeatureScorer) AnalyzerOption {
	return func(a *Analyzer) { a.scorer = s }
}

// WithLookupTimeout sets the per-signal intelligence lookup timeout.
func WithLookupTimeout(d time.Duration) AnalyzerOption {
	return func(a *Analyzer) { a.lookupTimeout = d }
}

// WithConcurrency bounds the per-vehicle scoring fan-out.
func WithConcurrency(n int) AnalyzerOption {
	return func(a *Analyzer) { a.concurrency = n }
}

// WithCurrencies sets the source and destination currency codes for the
// exchange rate lookup.
func WithCurrencies(source, dest string) AnalyzerOption {
	return func(a *Analyzer) {
		a.sourceCurrency = source
		a.destCurrency = dest
	}
}

// WithClock fixes the analyzer's notion of now, for reproducible tests.
func WithClock(now func() time.Time) AnalyzerOption {
	return func(a *Analyzer) { a.now = now }
}

// NewAnalyzer wires an Analyzer from its collaborators and options.
func NewAnalyzer(reader AggregateReader, rates RateProvider, provider intel.Provider, sink ResultSink, log zerolog.Logger, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		reader:         reader,
		rates:          rates,
		intel:          provider,
		sink:           sink,
		scorer:         LinearScorer{},
		matcher:        NewMatcher(),
		costModel:      DefaultCostModel(),
		weights:        DefaultScoringWeights(),
		bonuses:        DefaultBonuses(),
		lookupTimeout:  30 * time.Second,
		concurrency:    8,
		sourceCurrency: "JPY",
		destCurrency:   "GBP",
		log:            log.With().Str("component", "analyzer").Logger(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes one full analysis pass: read aggregates, match, score each
// match (intelligence lookups fan out concurrently), sort by final score
// and replace the persisted result set. Per-vehicle failures drop the
// vehicle into the report; only run-wide problems (no data, no exchange
// rate, sink failure) return an error.
func (a *Analyzer) Run(ctx context.Context, filter Filter) ([]ScoredOpportunity, *RunReport, error) {
	report := &RunReport{RunID: uuid.NewString(), StartedAt: a.now()}

	source, err := a.reader.SourceAggregates(ctx, filter)
	if err != nil {
		return nil, report, fmt.Errorf("read source aggregates: %w", err)
	}
	destination, err := a.reader.DestinationAggregates(ctx, filter)
	if err != nil {
		return nil, report, fmt.Errorf("read destination aggregates: %w", err)
	}
	if len(source) == 0 || len(destination) == 0 {
		return nil, report, ErrNoAggregates
	}

	rate, err := a.rates.CurrentRate(ctx, a.sourceCurrency, a.destCurrency)
	if err != nil || rate <= 0 {
		if err == nil {
			err = ErrMissingExchangeRate
		} else if !errors.Is(err, ErrMissingExchangeRate) {
			err = fmt.Errorf("%w: %v", ErrMissingExchangeRate, err)
		}
		return nil, report, err
	}

	matches := a.matcher.Match(source, destination, filter)
	report.Matched = len(matches)
	a.log.Info().
		Str("run_id", report.RunID).
		Int("source", len(source)).
		Int("destination", len(destination)).
		Int("matched", len(matches)).
		Float64("rate", rate).
		Msg("matching complete")

	type outcome struct {
		opp     *ScoredOpportunity
		dropped *DroppedVehicle
	}
	outcomes := make([]outcome, len(matches))
	generatedAt := a.now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, mv := range matches {
		i, mv := i, mv
		g.Go(func() error {
			signals := a.gatherSignals(gctx, mv.Key)
			opp, err := a.scoreVehicle(mv, rate, signals, generatedAt)
			if err != nil {
				var bad *InputDataError
				if errors.As(err, &bad) {
					a.log.Warn().Stringer("key", mv.Key).Str("reason", bad.Reason).Msg("vehicle dropped")
					outcomes[i] = outcome{dropped: &DroppedVehicle{Key: mv.Key, Reason: bad.Reason}}
					return nil
				}
				return err
			}
			outcomes[i] = outcome{opp: opp}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, report, fmt.Errorf("score vehicles: %w", err)
	}

	results := make([]ScoredOpportunity, 0, len(matches))
	for _, o := range outcomes {
		switch {
		case o.opp != nil:
			results = append(results, *o.opp)
		case o.dropped != nil:
			report.Dropped = append(report.Dropped, *o.dropped)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].FinalScore != results[j].FinalScore {
			return results[i].FinalScore > results[j].FinalScore
		}
		return results[i].Key.String() < results[j].Key.String()
	})

	if a.sink != nil {
		if err := a.sink.ReplaceAll(ctx, report.RunID, results); err != nil {
			return results, report, fmt.Errorf("persist results: %w", err)
		}
	}

	report.Scored = len(results)
	report.FinishedAt = a.now()
	a.log.Info().
		Str("run_id", report.RunID).
		Int("scored", report.Scored).
		Int("dropped", len(report.Dropped)).
		Msg("analysis run complete")
	return results, report, nil
}

// gatherSignals fans the six intelligence lookups out for one vehicle.
// A failed or timed-out lookup degrades that signal to its unknown tier;
// it never fails the vehicle.
func (a *Analyzer) gatherSignals(ctx context.Context, key vehicle.Key) intel.Signals {
	signals := intel.Unknown()
	if a.intel == nil {
		return signals
	}

	var wg errgroup.Group

	wg.Go(func() error {
		lctx, cancel := context.WithTimeout(ctx, a.lookupTimeout)
		defer cancel()
		if v, err := a.intel.Competition(lctx, key); err == nil {
			signals.Competition = v
		}
		return nil
	})
	wg.Go(func() error {
		lctx, cancel := context.WithTimeout(ctx, a.lookupTimeout)
		defer cancel()
		if v, err := a.intel.Volatility(lctx, key); err == nil {
			signals.Volatility = v
		}
		return nil
	})
	wg.Go(func() error {
		lctx, cancel := context.WithTimeout(ctx, a.lookupTimeout)
		defer cancel()
		if v, err := a.intel.SupplyRisk(lctx, key); err == nil {
			signals.Supply = v
		}
		return nil
	})
	wg.Go(func() error {
		lctx, cancel := context.WithTimeout(ctx, a.lookupTimeout)
		defer cancel()
		if v, err := a.intel.RegistrationTrend(lctx, key); err == nil {
			signals.Trend = v
		}
		return nil
	})
	wg.Go(func() error {
		lctx, cancel := context.WithTimeout(ctx, a.lookupTimeout)
		defer cancel()
		if v, err := a.intel.SeasonalPattern(lctx, key); err == nil {
			signals.Seasonal = v
		}
		return nil
	})
	wg.Go(func() error {
		lctx, cancel := context.WithTimeout(ctx, a.lookupTimeout)
		defer cancel()
		if v, err := a.intel.Compliance(lctx, key); err == nil {
			signals.Compliance = v
		}
		return nil
	})

	wg.Wait()
	return signals
}

// scoreVehicle runs the pure scoring pipeline for one match.
func (a *Analyzer) scoreVehicle(mv MatchedVehicle, rate float64, signals intel.Signals, generatedAt time.Time) (*ScoredOpportunity, error) {
	currentYear := generatedAt.Year()
	age := currentYear - mv.Key.Year

	meanCost, err := a.costModel.Compute(mv.Source.MeanPrice, mv.Source.Category, age, rate)
	if err != nil {
		return nil, wrapInputErr(err, mv.Key)
	}
	minCost, err := a.costModel.Compute(mv.Source.MinPrice, mv.Source.Category, age, rate)
	if err != nil {
		return nil, wrapInputErr(err, mv.Key)
	}

	profit, err := computeProfitMetrics(mv, meanCost, minCost)
	if err != nil {
		return nil, err
	}

	riskScore := RiskScore(mv, currentYear)
	demandScore := DemandScore(mv)
	overall := OverallScore(a.weights, profit.ProfitMarginPercent, profit.ROIPercent, riskScore, demandScore, profit.DaysToSell)
	mlScore := a.scorer.Score(featuresFor(mv, profit, riskScore, demandScore, signals, currentYear))
	finalScore := FinalScore(a.bonuses, overall, mlScore, signals)

	category, priority := Recommendation(finalScore)

	return &ScoredOpportunity{
		Key:          mv.Key,
		Match:        mv,
		Costs:        meanCost,
		Profit:       profit,
		Signals:      signals,
		RiskScore:    riskScore,
		DemandScore:  demandScore,
		OverallScore: overall,
		MLScore:      mlScore,
		FinalScore:   finalScore,
		Confidence:   ConfidenceFor(mv, signals, finalScore),
		Category:     category,
		Priority:     priority,
		ActionItems:  ActionItems(profit, signals),
		RiskWarnings: RiskWarnings(profit, riskScore, signals),
		Timing:       Timing(signals),
		GeneratedAt:  generatedAt,
	}, nil
}

// wrapInputErr attaches the vehicle key to cost-model input errors.
func wrapInputErr(err error, key vehicle.Key) error {
	var bad *InputDataError
	if errors.As(err, &bad) && bad.Key == (vehicle.Key{}) {
		return &InputDataError{Key: key, Reason: bad.Reason}
	}
	return err
}
