// Package repo implements the data persistence layer for domain
// entities, backed by GORM. This file provides repository functions for
// categories and post-category associations, the two places where the
// pipeline's idempotency guarantees live.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"wpimport/internal/domain"
)

// ErrDuplicate indicates a unique-constraint violation on insert.
var ErrDuplicate = errors.New("duplicate")

// ErrEmptyCategoryName is returned when a category name normalizes to
// the empty string.
var ErrEmptyCategoryName = errors.New("category name is empty")

// isUniqueViolation detects unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}

// GetOrCreateCategory resolves a category name to its single durable
// row, creating it on first sight. The lookup key is the normalized
// name, so differently cased/whitespaced variants never diverge.
//
// Provenance rules: a new row is tagged with source; an existing
// ai-generated row is promoted to original when an original-provenance
// name arrives (original wins), never the reverse. The display Name of
// an existing row is kept as first seen.
func GetOrCreateCategory(ctx context.Context, db *gorm.DB, name, source string) (*domain.Category, error) {
	norm := domain.NormalizeCategoryName(name)
	if norm == "" {
		return nil, ErrEmptyCategoryName
	}

	var c domain.Category
	err := db.WithContext(ctx).Where("normalized_name = ?", norm).First(&c).Error
	if err == nil {
		if source == domain.CategorySourceOriginal && c.Source == domain.CategorySourceAI {
			if uerr := db.WithContext(ctx).Model(&domain.Category{}).
				Where("id = ?", c.ID).
				Update("source", domain.CategorySourceOriginal).Error; uerr != nil {
				return nil, uerr
			}
			c.Source = domain.CategorySourceOriginal
		}
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	c = domain.Category{
		ID:             uuid.NewString(),
		Name:           strings.Join(strings.Fields(strings.TrimSpace(name)), " "),
		NormalizedName: norm,
		Source:         source,
		CreatedAt:      time.Now().UTC(),
	}
	if cerr := db.WithContext(ctx).Create(&c).Error; cerr != nil {
		// Lost a race on the unique index: fall back to the winner.
		if isUniqueViolation(cerr) {
			var won domain.Category
			if ferr := db.WithContext(ctx).Where("normalized_name = ?", norm).First(&won).Error; ferr == nil {
				return &won, nil
			}
		}
		return nil, cerr
	}
	return &c, nil
}

// LinkPostCategory upserts the (post, category) association. The pair
// is unique: a repeat link overwrites Confidence (latest wins) instead
// of inserting a second row. Original links pass a nil confidence.
func LinkPostCategory(ctx context.Context, db *gorm.DB, postID, categoryID string, confidence *float64) (*domain.PostCategory, error) {
	var pc domain.PostCategory
	err := db.WithContext(ctx).
		Where("post_id = ? AND category_id = ?", postID, categoryID).
		First(&pc).Error
	if err == nil {
		if uerr := db.WithContext(ctx).Model(&domain.PostCategory{}).
			Where("id = ?", pc.ID).
			Update("confidence", confidence).Error; uerr != nil {
			return nil, uerr
		}
		pc.Confidence = confidence
		return &pc, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	pc = domain.PostCategory{
		ID:         uuid.NewString(),
		PostID:     postID,
		CategoryID: categoryID,
		Confidence: confidence,
		CreatedAt:  time.Now().UTC(),
	}
	if cerr := db.WithContext(ctx).Create(&pc).Error; cerr != nil {
		if isUniqueViolation(cerr) {
			return nil, ErrDuplicate
		}
		return nil, cerr
	}
	return &pc, nil
}

// ListPostCategories returns the categories linked to a post together
// with their association rows, ordered by category name for stable output.
func ListPostCategories(ctx context.Context, db *gorm.DB, postID string) ([]domain.Category, []domain.PostCategory, error) {
	var links []domain.PostCategory
	if err := db.WithContext(ctx).
		Where("post_id = ?", postID).
		Find(&links).Error; err != nil {
		return nil, nil, err
	}
	if len(links) == 0 {
		return []domain.Category{}, links, nil
	}

	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.CategoryID)
	}
	var cats []domain.Category
	err := db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("name ASC").
		Find(&cats).Error
	return cats, links, err
}

// OriginalCategoryNames returns the display names of a post's
// original-provenance categories, used as context for the
// categorization request.
func OriginalCategoryNames(ctx context.Context, db *gorm.DB, postID string) ([]string, error) {
	var names []string
	err := db.WithContext(ctx).
		Model(&domain.Category{}).
		Joins("JOIN post_categories ON post_categories.category_id = categories.id").
		Where("post_categories.post_id = ? AND categories.source = ?", postID, domain.CategorySourceOriginal).
		Order("categories.name ASC").
		Pluck("categories.name", &names).Error
	return names, err
}
