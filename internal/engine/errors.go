package engine

import (
	"errors"
	"fmt"
	"time"

	"import-scout/internal/vehicle"
)

// ErrMissingExchangeRate aborts cost computation when no rate is supplied.
// Profit figures derived from a guessed rate would be misleading, so the
// engine never assumes one; fallback policy belongs to the caller.
var ErrMissingExchangeRate = errors.New("exchange rate unavailable")

// ErrNoAggregates is returned when a run finds nothing to analyze on one
// or both sides. This is a batch-level failure, unlike per-vehicle drops.
var ErrNoAggregates = errors.New("no market aggregates available")

// InputDataError marks a single vehicle whose aggregates are malformed
// (non-positive price or cost). The vehicle is dropped and the run goes on.
type InputDataError struct {
	Key    vehicle.Key
	Reason string
}

func (e *InputDataError) Error() string {
	return fmt.Sprintf("bad input for %s: %s", e.Key, e.Reason)
}

// DroppedVehicle records one vehicle excluded from a run and why.
type DroppedVehicle struct {
	Key    vehicle.Key `json:"key"`
	Reason string      `json:"reason"`
}

// RunReport summarizes an analysis run: how many vehicles matched, how
// many scored, and a structured account of every drop. A failed run yields
// an empty or partial result list plus this report, never a bare error for
// per-vehicle problems.
type RunReport struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Matched    int              `json:"matched"`
	Scored     int              `json:"scored"`
	Dropped    []DroppedVehicle `json:"dropped,omitempty"`
}
