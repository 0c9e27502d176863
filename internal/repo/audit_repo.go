// Package repo implements the data persistence layer for domain
// entities, backed by GORM. This file provides the append-only audit
// writers: one APIUsage row per categorization call and one ImportRun
// row per import invocation. Neither table is ever updated in place.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"wpimport/internal/domain"
)

// RecordAPIUsage appends one usage row for a categorization call.
func RecordAPIUsage(ctx context.Context, db *gorm.DB, postID string, promptTokens, completionTokens int, estimatedCost float64, outcome string) (*domain.APIUsage, error) {
	u := &domain.APIUsage{
		ID:               uuid.NewString(),
		PostID:           postID,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		EstimatedCost:    estimatedCost,
		Outcome:          outcome,
		CreatedAt:        time.Now().UTC(),
	}
	return u, db.WithContext(ctx).Create(u).Error
}

// RecordImportRun appends one audit row summarizing an import invocation.
func RecordImportRun(ctx context.Context, db *gorm.DB, sourceFile string, inserted, skipped, failed int, outcome string) (*domain.ImportRun, error) {
	r := &domain.ImportRun{
		ID:         uuid.NewString(),
		SourceFile: sourceFile,
		Inserted:   inserted,
		Skipped:    skipped,
		Failed:     failed,
		Outcome:    outcome,
		CreatedAt:  time.Now().UTC(),
	}
	return r, db.WithContext(ctx).Create(r).Error
}

// ListAPIUsage returns usage rows for a post, oldest first.
func ListAPIUsage(ctx context.Context, db *gorm.DB, postID string) ([]domain.APIUsage, error) {
	var out []domain.APIUsage
	err := db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}
