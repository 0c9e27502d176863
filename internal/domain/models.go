// Package domain defines the persistence models for imported posts,
// categories, their associations, and the append-only audit tables.
// These types are mapped with GORM and form the core data layer of the
// import-and-categorization pipeline.
package domain

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Categorization status values for Post.CategorizationStatus.
const (
	CategorizationPending   = "pending"
	CategorizationCompleted = "completed"
	CategorizationFailed    = "failed"
	CategorizationSkipped   = "skipped"
)

// Post publication status values.
const (
	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
)

// Category provenance values.
const (
	CategorySourceOriginal = "original"
	CategorySourceAI       = "ai-generated"
)

// Outcome values shared by the APIUsage and ImportRun audit tables.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Post represents one imported blog post. Identity is the canonical
// source URL; posts exported without a usable URL fall back to the
// source-assigned numeric ID (SourceID).
//
// Content fields are written by the import path only; the
// categorization fields are mutated by the categorization path only.
// Posts are never deleted in normal operation.
type Post struct {
	ID       string `json:"id"        gorm:"type:char(36);primaryKey"`
	URL      string `json:"url"       gorm:"type:varchar(2048);uniqueIndex:ux_posts_url,where:url <> ''"`
	SourceID int64  `json:"source_id" gorm:"index:idx_posts_source"`

	Title       string     `json:"title"        gorm:"type:varchar(512);not null"`
	Content     string     `json:"content"      gorm:"type:text"`
	Excerpt     string     `json:"excerpt"      gorm:"type:text"`
	Author      string     `json:"author"       gorm:"type:varchar(255)"`
	Status      string     `json:"status"       gorm:"type:varchar(16);not null;check:status IN ('draft','published')"`
	PublishedAt *time.Time `json:"published_at" gorm:"index"`

	CategorizationStatus string `json:"categorization_status" gorm:"type:varchar(16);not null;default:'pending';index;check:categorization_status IN ('pending','completed','failed','skipped')"`
	CategorizationError  string `json:"categorization_error,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Post.
func (Post) TableName() string { return "posts" }

// Category is a single named category. Identity is the normalized name:
// variants differing only by case or whitespace collapse to one row.
// Source records provenance; when an original and an ai-generated
// proposal collide on the normalized name, original wins.
type Category struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	Name           string    `json:"name"            gorm:"type:varchar(255);not null"`
	NormalizedName string    `json:"normalized_name" gorm:"type:varchar(255);not null;uniqueIndex:ux_categories_norm"`
	Source         string    `json:"source"          gorm:"type:varchar(16);not null;check:source IN ('original','ai-generated')"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for Category.
func (Category) TableName() string { return "categories" }

// PostCategory associates a post with a category. The (post, category)
// pair is unique; repeat links update Confidence instead of inserting.
// Confidence is present only for ai-generated links; original links
// store NULL, meaning "certain".
type PostCategory struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	PostID     string    `json:"post_id"     gorm:"type:char(36);not null;uniqueIndex:ux_post_category,priority:1"`
	CategoryID string    `json:"category_id" gorm:"type:char(36);not null;uniqueIndex:ux_post_category,priority:2"`
	Confidence *float64  `json:"confidence,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Post     Post     `json:"-" gorm:"foreignKey:PostID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Category Category `json:"-" gorm:"foreignKey:CategoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for PostCategory.
func (PostCategory) TableName() string { return "post_categories" }

// APIUsage records one categorization call against the external
// service: token counts, estimated cost, and outcome. Rows are
// append-only and never mutated.
type APIUsage struct {
	ID               string    `json:"id"                gorm:"type:char(36);primaryKey"`
	PostID           string    `json:"post_id"           gorm:"type:char(36);not null;index"`
	PromptTokens     int       `json:"prompt_tokens"     gorm:"not null"`
	CompletionTokens int       `json:"completion_tokens" gorm:"not null"`
	EstimatedCost    float64   `json:"estimated_cost"    gorm:"not null"`
	Outcome          string    `json:"outcome"           gorm:"type:varchar(16);not null;check:outcome IN ('success','failure')"`
	CreatedAt        time.Time `json:"created_at"`

	Post Post `json:"-" gorm:"foreignKey:PostID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for APIUsage.
func (APIUsage) TableName() string { return "api_usage" }

// ImportRun is the append-only audit row written once per import
// invocation: which file was processed and how its records fared.
type ImportRun struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	SourceFile string    `json:"source_file" gorm:"type:varchar(1024);not null"`
	Inserted   int       `json:"inserted"    gorm:"not null"`
	Skipped    int       `json:"skipped"     gorm:"not null"`
	Failed     int       `json:"failed"      gorm:"not null"`
	Outcome    string    `json:"outcome"     gorm:"type:varchar(16);not null;check:outcome IN ('success','failure')"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name for ImportRun.
func (ImportRun) TableName() string { return "import_runs" }

// categoryFolder folds case for normalized category identity.
var categoryFolder = cases.Fold()

// NormalizeCategoryName produces the identity key for a category name:
// Unicode case folding plus whitespace collapsed to single spaces.
// "  Machine   Learning " and "machine learning" normalize identically.
func NormalizeCategoryName(name string) string {
	folded := categoryFolder.String(strings.TrimSpace(name))
	return strings.Join(strings.Fields(folded), " ")
}
