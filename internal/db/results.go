package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"import-scout/internal/engine"
)

// StoredOpportunity is the read model for a persisted scoring result.
// The scalar columns mirror what query endpoints filter and sort on;
// Analysis carries the full ScoredOpportunity decoded from analysis_json.
type StoredOpportunity struct {
	RunID       string                    `json:"run_id"`
	Make        string                    `json:"make"`
	Model       string                    `json:"model"`
	Year        int                       `json:"year"`
	FuelType    string                    `json:"fuel_type"`
	FinalScore  float64                   `json:"final_recommendation_score"`
	Analysis    *engine.ScoredOpportunity `json:"analysis"`
	GeneratedAt time.Time                 `json:"generated_at"`
}

// MarketSummary aggregates the persisted opportunity set for dashboards.
type MarketSummary struct {
	TotalOpportunities int     `json:"total_opportunities"`
	ProfitableCount    int     `json:"profitable_count"`
	MeanMarginPercent  float64 `json:"mean_margin_percent"`
	MeanFinalScore     float64 `json:"mean_final_score"`
	BestFinalScore     float64 `json:"best_final_score"`
	HighPriorityCount  int     `json:"high_priority_count"`
	LastRunID          string  `json:"last_run_id"`
	LastGeneratedAt    string  `json:"last_generated_at"`
}

// ReplaceAll implements engine.ResultSink. The previous result set is
// deleted and the new one inserted in a single transaction, so readers
// never observe a mix of two runs.
func (d *DB) ReplaceAll(ctx context.Context, runID string, results []engine.ScoredOpportunity) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace opportunities: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM opportunities"); err != nil {
		return fmt.Errorf("clear opportunities: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO opportunities (
			run_id, make, model, year, fuel_type,
			mean_selling_price, mean_landed_cost, gross_profit,
			profit_margin_percent, roi_percent, days_to_sell,
			risk_score, demand_score, overall_score, ml_score,
			final_recommendation_score, recommendation_category,
			priority, confidence_level, analysis_json, generated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare opportunity insert: %w", err)
	}
	defer stmt.Close()

	for i := range results {
		r := &results[i]
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode opportunity %s: %w", r.Key, err)
		}
		_, err = stmt.ExecContext(ctx,
			runID, r.Key.Make, r.Key.Model, r.Key.Year, r.Key.FuelType,
			r.Profit.MeanSellingPrice, r.Profit.MeanLandedCost, r.Profit.GrossProfit,
			r.Profit.ProfitMarginPercent, r.Profit.ROIPercent, r.Profit.DaysToSell,
			r.RiskScore, r.DemandScore, r.OverallScore, r.MLScore,
			r.FinalScore, r.Category, r.Priority, r.Confidence.Level,
			string(payload), r.GeneratedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("insert opportunity %s: %w", r.Key, err)
		}
	}
	return tx.Commit()
}

// TopOpportunities returns the highest-scoring results with a healthy
// margin, best first.
func (d *DB) TopOpportunities(ctx context.Context, limit int) ([]StoredOpportunity, error) {
	return d.queryOpportunities(ctx, `
		SELECT run_id, make, model, year, fuel_type,
			final_recommendation_score, analysis_json, generated_at
		FROM opportunities
		WHERE profit_margin_percent > 10 AND final_recommendation_score > 60
		ORDER BY final_recommendation_score DESC
		LIMIT ?`, limit)
}

// FastMovers returns profitable vehicles that sell quickly, fastest first.
func (d *DB) FastMovers(ctx context.Context, limit int) ([]StoredOpportunity, error) {
	return d.queryOpportunities(ctx, `
		SELECT run_id, make, model, year, fuel_type,
			final_recommendation_score, analysis_json, generated_at
		FROM opportunities
		WHERE days_to_sell < 30 AND profit_margin_percent > 5
		ORDER BY days_to_sell ASC, final_recommendation_score DESC
		LIMIT ?`, limit)
}

// AllOpportunities returns the latest run's full result set, best first.
func (d *DB) AllOpportunities(ctx context.Context, limit int) ([]StoredOpportunity, error) {
	return d.queryOpportunities(ctx, `
		SELECT run_id, make, model, year, fuel_type,
			final_recommendation_score, analysis_json, generated_at
		FROM opportunities
		ORDER BY final_recommendation_score DESC
		LIMIT ?`, limit)
}

// Opportunity returns the stored result for one vehicle key, or
// sql.ErrNoRows when the latest run produced no match for it.
func (d *DB) Opportunity(ctx context.Context, make, model string, year int, fuelType string) (*StoredOpportunity, error) {
	row := d.sql.QueryRowContext(ctx, `
		SELECT run_id, make, model, year, fuel_type,
			final_recommendation_score, analysis_json, generated_at
		FROM opportunities
		WHERE LOWER(make) = LOWER(?) AND LOWER(model) = LOWER(?)
			AND year = ? AND LOWER(fuel_type) = LOWER(?)`,
		make, model, year, fuelType)
	o, err := scanOpportunity(row.Scan)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Summary computes headline statistics over the persisted result set.
func (d *DB) Summary(ctx context.Context) (*MarketSummary, error) {
	s := &MarketSummary{}
	err := d.sql.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN gross_profit > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(profit_margin_percent), 0),
			COALESCE(AVG(final_recommendation_score), 0),
			COALESCE(MAX(final_recommendation_score), 0),
			COALESCE(SUM(CASE WHEN priority = 'High' THEN 1 ELSE 0 END), 0),
			COALESCE(MAX(run_id), ''),
			COALESCE(MAX(generated_at), '')
		FROM opportunities`).Scan(
		&s.TotalOpportunities, &s.ProfitableCount, &s.MeanMarginPercent,
		&s.MeanFinalScore, &s.BestFinalScore, &s.HighPriorityCount,
		&s.LastRunID, &s.LastGeneratedAt)
	if err != nil {
		return nil, fmt.Errorf("query market summary: %w", err)
	}
	return s, nil
}

func (d *DB) queryOpportunities(ctx context.Context, query string, limit int) ([]StoredOpportunity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query opportunities: %w", err)
	}
	defer rows.Close()

	var out []StoredOpportunity
	for rows.Next() {
		o, err := scanOpportunity(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOpportunity(scan func(...any) error) (StoredOpportunity, error) {
	var (
		o         StoredOpportunity
		payload   string
		generated string
	)
	err := scan(&o.RunID, &o.Make, &o.Model, &o.Year, &o.FuelType,
		&o.FinalScore, &payload, &generated)
	if err != nil {
		if err == sql.ErrNoRows {
			return o, err
		}
		return o, fmt.Errorf("scan opportunity: %w", err)
	}
	var analysis engine.ScoredOpportunity
	if err := json.Unmarshal([]byte(payload), &analysis); err != nil {
		return o, fmt.Errorf("decode opportunity %s %s: %w", o.Make, o.Model, err)
	}
	o.Analysis = &analysis
	o.GeneratedAt, err = time.Parse(time.RFC3339, generated)
	if err != nil {
		return o, fmt.Errorf("parse generated_at for %s %s: %w", o.Make, o.Model, err)
	}
	return o, nil
}
