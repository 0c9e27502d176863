// Package repo implements the data persistence layer for domain
// entities, backed by GORM. This file provides small aggregate queries
// used by the command surface to summarize pipeline state after a run.
package repo

import (
	"context"

	"gorm.io/gorm"

	"wpimport/internal/domain"
)

// PostStats aggregates the posts table by categorization status.
type PostStats struct {
	Total     int64
	Pending   int64
	Completed int64
	Failed    int64
	Skipped   int64
}

// CountPostsByStatus returns per-categorization-status counts for all
// posts. Statuses outside the known set are counted in Total only.
func CountPostsByStatus(ctx context.Context, db *gorm.DB) (*PostStats, error) {
	var rows []struct {
		CategorizationStatus string
		N                    int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Post{}).
		Select("categorization_status, COUNT(*) AS n").
		Group("categorization_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &PostStats{}
	for _, r := range rows {
		stats.Total += r.N
		switch r.CategorizationStatus {
		case domain.CategorizationPending:
			stats.Pending = r.N
		case domain.CategorizationCompleted:
			stats.Completed = r.N
		case domain.CategorizationFailed:
			stats.Failed = r.N
		case domain.CategorizationSkipped:
			stats.Skipped = r.N
		}
	}
	return stats, nil
}

// UsageTotals aggregates the api_usage ledger: row count, token sums,
// and total estimated cost.
type UsageTotals struct {
	Calls            int64
	PromptTokens     int64
	CompletionTokens int64
	EstimatedCost    float64
}

// SumAPIUsage returns ledger-wide usage totals across all outcomes.
func SumAPIUsage(ctx context.Context, db *gorm.DB) (*UsageTotals, error) {
	var row struct {
		Calls            int64
		PromptTokens     int64
		CompletionTokens int64
		EstimatedCost    float64
	}
	err := db.WithContext(ctx).
		Model(&domain.APIUsage{}).
		Select("COUNT(*) AS calls, COALESCE(SUM(prompt_tokens),0) AS prompt_tokens, COALESCE(SUM(completion_tokens),0) AS completion_tokens, COALESCE(SUM(estimated_cost),0) AS estimated_cost").
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &UsageTotals{
		Calls:            row.Calls,
		PromptTokens:     row.PromptTokens,
		CompletionTokens: row.CompletionTokens,
		EstimatedCost:    row.EstimatedCost,
	}, nil
}
