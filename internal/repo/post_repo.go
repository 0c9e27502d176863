// Package repo implements the data persistence layer for domain
// entities, backed by GORM. This file provides repository functions for
// the Post model.
//
// All functions are context-aware and accept a *gorm.DB handle, making
// them safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only
// CRUD persistence and query composition.
//
// Error semantics:
//   - When a post is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"wpimport/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer.
var ErrNotFound = gorm.ErrRecordNotFound

// findExistingPost resolves a candidate post to its durable row: by
// canonical URL when present, otherwise by source-assigned numeric ID
// among URL-less rows. A stored row that shares the candidate's URL but
// carries a different source ID is a distinct post; the URL is then
// unusable as identity and resolution falls back to the source ID.
// urlOK reports whether the candidate's URL may be persisted as-is.
// Returns ErrNotFound when the post is unseen.
func findExistingPost(ctx context.Context, db *gorm.DB, candidate *domain.Post) (post *domain.Post, urlOK bool, err error) {
	q := db.WithContext(ctx)
	urlOK = true

	if candidate.URL != "" {
		var p domain.Post
		ferr := q.Where("url = ?", candidate.URL).First(&p).Error
		switch {
		case ferr == nil:
			if candidate.SourceID == 0 || p.SourceID == 0 || p.SourceID == candidate.SourceID {
				return &p, true, nil
			}
			// Another post already owns this URL under a different source
			// ID: duplicate-unusable, fall through to the source-ID lookup.
			urlOK = false
		case !errors.Is(ferr, gorm.ErrRecordNotFound):
			return nil, true, ferr
		default:
			return nil, true, ErrNotFound
		}
	}

	if candidate.SourceID == 0 {
		return nil, urlOK, ErrNotFound
	}
	var p domain.Post
	if ferr := q.Where("source_id = ? AND url = ''", candidate.SourceID).First(&p).Error; ferr != nil {
		return nil, urlOK, ferr
	}
	return &p, urlOK, nil
}

// UpsertPost inserts the candidate post if its identity (URL, or source
// ID when the URL is absent or already owned by a different post) is
// unseen and reports created=true.
//
// When the identity is already known:
//   - force=false leaves the row untouched and returns it.
//   - force=true overwrites the content fields (title, content,
//     excerpt, author, status, published_at) while preserving the
//     categorization status, its diagnostic, and all associations.
//
// New posts start with CategorizationStatus pending. A post created
// under the source-ID fallback stores an empty URL so the duplicate
// never collides with its owner.
func UpsertPost(ctx context.Context, db *gorm.DB, candidate *domain.Post, force bool) (*domain.Post, bool, error) {
	existing, urlOK, err := findExistingPost(ctx, db, candidate)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, err
		}
		url := candidate.URL
		if !urlOK {
			url = ""
		}
		p := &domain.Post{
			ID:                   uuid.NewString(),
			URL:                  url,
			SourceID:             candidate.SourceID,
			Title:                candidate.Title,
			Content:              candidate.Content,
			Excerpt:              candidate.Excerpt,
			Author:               candidate.Author,
			Status:               candidate.Status,
			PublishedAt:          candidate.PublishedAt,
			CategorizationStatus: domain.CategorizationPending,
			CreatedAt:            time.Now().UTC(),
		}
		if err := db.WithContext(ctx).Create(p).Error; err != nil {
			return nil, false, err
		}
		return p, true, nil
	}

	if !force {
		return existing, false, nil
	}

	// Content refresh only; categorization state survives a forced
	// re-import. A map is used so zero values overwrite.
	updates := map[string]any{
		"title":        candidate.Title,
		"content":      candidate.Content,
		"excerpt":      candidate.Excerpt,
		"author":       candidate.Author,
		"status":       candidate.Status,
		"published_at": candidate.PublishedAt,
	}
	if err := db.WithContext(ctx).Model(&domain.Post{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
		return nil, false, err
	}
	existing.Title = candidate.Title
	existing.Content = candidate.Content
	existing.Excerpt = candidate.Excerpt
	existing.Author = candidate.Author
	existing.Status = candidate.Status
	existing.PublishedAt = candidate.PublishedAt
	return existing, false, nil
}

// GetPost fetches a post by ID, or ErrNotFound.
func GetPost(ctx context.Context, db *gorm.DB, id string) (*domain.Post, error) {
	var p domain.Post
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPostByURL fetches a post by its canonical source URL, or ErrNotFound.
func GetPostByURL(ctx context.Context, db *gorm.DB, url string) (*domain.Post, error) {
	var p domain.Post
	if err := db.WithContext(ctx).Where("url = ?", url).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// PostsNeedingCategorization returns posts whose categorization status
// is pending or failed, oldest publish date first (posts without a
// publish date sort last), capped at limit when limit > 0. With
// recategorize=true, completed and skipped posts are eligible again.
func PostsNeedingCategorization(ctx context.Context, db *gorm.DB, limit int, recategorize bool) ([]domain.Post, error) {
	statuses := []string{domain.CategorizationPending, domain.CategorizationFailed}
	if recategorize {
		statuses = append(statuses, domain.CategorizationCompleted, domain.CategorizationSkipped)
	}

	var out []domain.Post
	q := db.WithContext(ctx).
		Where("categorization_status IN ?", statuses).
		Order("published_at IS NULL, published_at ASC, created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// SetCategorizationStatus transitions a post's categorization status.
// The diagnostic message is retained only when the new status is
// failed; any other transition clears it. Returns ErrNotFound when the
// post does not exist.
func SetCategorizationStatus(ctx context.Context, db *gorm.DB, postID, status, errMsg string) error {
	if status != domain.CategorizationFailed {
		errMsg = ""
	}
	res := db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("id = ?", postID).
		Updates(map[string]any{
			"categorization_status": status,
			"categorization_error":  errMsg,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
