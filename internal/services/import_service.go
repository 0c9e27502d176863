// Package services – ImportService
//
// This file implements the Import Orchestrator: it reconciles a
// sequence of normalized export records against the record store,
// enforcing idempotency. Each record is processed in its own scoped
// transaction so a post insert and its original category links commit
// together or not at all; one malformed or failing record never aborts
// the run. A single ImportRun audit row is written at the end.
package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"wpimport/internal/domain"
	"wpimport/internal/repo"
	"wpimport/internal/wxr"
)

// ImportSummary reports how the records of one import run fared.
// Inserted counts newly created posts; Skipped counts non-post items
// and already-known posts; Failed counts malformed records and records
// whose transaction rolled back.
type ImportSummary struct {
	SourceFile string
	Total      int
	Inserted   int
	Skipped    int
	Failed     int
}

// ImportService turns normalized export records into durable Post,
// Category, and PostCategory rows.
type ImportService struct {
	DB  *gorm.DB
	Log zerolog.Logger
}

// NewImportService constructs an ImportService with a no-op logger.
func NewImportService(db *gorm.DB) *ImportService {
	return &ImportService{DB: db, Log: zerolog.Nop()}
}

// Run imports records parsed from sourceFile. Without force, a record
// whose identity is already known leaves the stored post untouched;
// with force, content fields are refreshed while categorization state
// and existing associations are preserved. Running the same export
// twice without force creates zero additional rows.
func (s *ImportService) Run(ctx context.Context, records []wxr.Record, sourceFile string, force bool) (*ImportSummary, error) {
	if s.DB == nil {
		return nil, ErrNoDatabase
	}

	sum := &ImportSummary{SourceFile: sourceFile, Total: len(records)}
	for i := range records {
		rec := &records[i]

		if rec.Type != "post" {
			sum.Skipped++
			continue
		}
		if reason := malformed(rec); reason != "" {
			sum.Failed++
			s.Log.Warn().
				Str("url", rec.URL).
				Int64("source_id", rec.SourceID).
				Str("reason", reason).
				Msg("skipping malformed record")
			continue
		}

		created, err := s.importOne(ctx, rec, force)
		if err != nil {
			sum.Failed++
			s.Log.Warn().Err(err).
				Str("url", rec.URL).
				Int64("source_id", rec.SourceID).
				Msg("record import failed")
			continue
		}
		if created {
			sum.Inserted++
		} else {
			sum.Skipped++
		}
	}

	// A run whose every processed record failed is audited as a failure.
	outcome := domain.OutcomeSuccess
	if sum.Failed > 0 && sum.Inserted == 0 && sum.Skipped == 0 {
		outcome = domain.OutcomeFailure
	}
	if _, err := repo.RecordImportRun(ctx, s.DB, sourceFile, sum.Inserted, sum.Skipped, sum.Failed, outcome); err != nil {
		return sum, err
	}

	s.Log.Info().
		Str("source_file", sourceFile).
		Int("inserted", sum.Inserted).
		Int("skipped", sum.Skipped).
		Int("failed", sum.Failed).
		Msg("import run finished")
	return sum, nil
}

// importOne upserts one record and, when the post is new (or force is
// set), links its original categories — all inside one transaction.
func (s *ImportService) importOne(ctx context.Context, rec *wxr.Record, force bool) (created bool, err error) {
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		candidate := &domain.Post{
			URL:         rec.URL,
			SourceID:    rec.SourceID,
			Title:       rec.Title,
			Content:     rec.ContentText,
			Excerpt:     rec.Excerpt,
			Author:      rec.Author,
			Status:      rec.Status,
			PublishedAt: rec.PublishedAt,
		}

		post, isNew, uerr := repo.UpsertPost(ctx, tx, candidate, force)
		if uerr != nil {
			return uerr
		}
		created = isNew

		if !isNew && !force {
			return nil
		}
		for _, ref := range rec.Categories {
			cat, cerr := repo.GetOrCreateCategory(ctx, tx, ref.Name, domain.CategorySourceOriginal)
			if cerr != nil {
				return cerr
			}
			// Original links carry no confidence.
			if _, lerr := repo.LinkPostCategory(ctx, tx, post.ID, cat.ID, nil); lerr != nil {
				return lerr
			}
		}
		return nil
	})
	return created, err
}

// malformed reports why a record cannot be imported, or "" when it can.
// A post needs either a title or content, and some stable identity.
func malformed(rec *wxr.Record) string {
	if strings.TrimSpace(rec.Title) == "" && strings.TrimSpace(rec.ContentText) == "" {
		return "missing both title and content"
	}
	if rec.URL == "" && rec.SourceID == 0 {
		return "no usable identity (URL or source ID)"
	}
	return ""
}
