// Package services – CategorizeService
//
// This file implements the Categorization Orchestrator: it selects
// posts needing enrichment, batches them, invokes the categorization
// client with bounded exponential-backoff retries, merges accepted
// suggestions into durable state in a single transaction per post, and
// tracks token cost in the append-only usage ledger. One post's failure
// never aborts the batch or the run.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"wpimport/internal/classify"
	"wpimport/internal/domain"
	"wpimport/internal/repo"
)

// Defaults applied by NewCategorizeService.
const (
	defaultBatchSize       = 10
	defaultContentMaxRunes = 4000
	defaultExcerptRunes    = 280
	defaultMaxCategories   = 6
	defaultMaxAttempts     = 3
	defaultRetryBaseDelay  = 2 * time.Second
	defaultRetryMaxDelay   = 30 * time.Second
)

// CategorizeSummary is the end-of-run report: how many selected posts
// completed, failed, or were left unattempted (run cancelled), plus the
// aggregate token spend.
type CategorizeSummary struct {
	Selected         int
	Completed        int
	Failed           int
	Skipped          int
	PromptTokens     int
	CompletionTokens int
	EstimatedCost    float64
}

// CategorizeService enriches posts lacking AI-derived categories.
type CategorizeService struct {
	DB         *gorm.DB
	Classifier classify.Classifier
	Log        zerolog.Logger

	// Limiter, when set, paces classifier calls (token bucket).
	Limiter *rate.Limiter

	// BatchSize groups posts per batch; selection order is preserved.
	BatchSize int
	// ContentMaxRunes caps the post content sent per request.
	ContentMaxRunes int
	// MaxCategories caps accepted suggestions per post; more is treated
	// as an invalid response.
	MaxCategories int
	// MaxAttempts bounds retries for retriable failures (total tries).
	MaxAttempts int
	// RetryBaseDelay and RetryMaxDelay shape the exponential backoff
	// (base doubles per attempt, capped at max).
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// PromptCostPer1K / CompletionCostPer1K price the token usage.
	PromptCostPer1K     float64
	CompletionCostPer1K float64
}

// NewCategorizeService constructs a CategorizeService with defaults
// suitable for interactive use. Callers override fields as needed.
func NewCategorizeService(db *gorm.DB, c classify.Classifier) *CategorizeService {
	return &CategorizeService{
		DB:              db,
		Classifier:      c,
		Log:             zerolog.Nop(),
		BatchSize:       defaultBatchSize,
		ContentMaxRunes: defaultContentMaxRunes,
		MaxCategories:   defaultMaxCategories,
		MaxAttempts:     defaultMaxAttempts,
		RetryBaseDelay:  defaultRetryBaseDelay,
		RetryMaxDelay:   defaultRetryMaxDelay,
	}
}

// Run categorizes up to limit posts whose status is pending or failed
// (limit <= 0 means all). Posts are processed strictly sequentially;
// the run can be cancelled between posts via ctx.
func (s *CategorizeService) Run(ctx context.Context, limit int) (*CategorizeSummary, error) {
	return s.run(ctx, limit, false)
}

// RunRecategorize is Run with explicit re-categorize intent: completed
// and skipped posts become eligible again.
func (s *CategorizeService) RunRecategorize(ctx context.Context, limit int) (*CategorizeSummary, error) {
	return s.run(ctx, limit, true)
}

func (s *CategorizeService) run(ctx context.Context, limit int, recategorize bool) (*CategorizeSummary, error) {
	if s.DB == nil {
		return nil, ErrNoDatabase
	}
	if s.Classifier == nil {
		return nil, ErrNoClassifier
	}

	posts, err := repo.PostsNeedingCategorization(ctx, s.DB, limit, recategorize)
	if err != nil {
		return nil, err
	}

	sum := &CategorizeSummary{Selected: len(posts)}
	for _, batch := range partition(posts, s.batchSize()) {
		for i := range batch {
			if ctx.Err() != nil {
				sum.Skipped = sum.Selected - sum.Completed - sum.Failed
				return sum, ctx.Err()
			}
			s.categorizeOne(ctx, &batch[i], sum)
		}
	}

	s.Log.Info().
		Int("selected", sum.Selected).
		Int("completed", sum.Completed).
		Int("failed", sum.Failed).
		Int("prompt_tokens", sum.PromptTokens).
		Int("completion_tokens", sum.CompletionTokens).
		Float64("estimated_cost", sum.EstimatedCost).
		Msg("categorization run finished")
	return sum, nil
}

// categorizeOne handles a single post end to end and records its
// outcome in the summary. Errors are absorbed: the post is marked
// failed and the run continues.
func (s *CategorizeService) categorizeOne(ctx context.Context, post *domain.Post, sum *CategorizeSummary) {
	req, err := s.buildRequest(ctx, post)
	if err != nil {
		s.markFailed(ctx, post, fmt.Sprintf("building request: %v", err))
		sum.Failed++
		return
	}

	result, err := s.classifyWithRetry(ctx, *req)
	if err != nil {
		var ce *classify.Error
		if errors.As(err, &ce) {
			// A received-but-rejected response still spent tokens.
			if ce.PromptTokens > 0 || ce.CompletionTokens > 0 {
				s.recordUsage(ctx, post.ID, ce.PromptTokens, ce.CompletionTokens, domain.OutcomeFailure, sum)
			}
			s.markFailed(ctx, post, ce.Error())
		} else {
			s.markFailed(ctx, post, err.Error())
		}
		sum.Failed++
		return
	}

	if reason := s.validateResult(result); reason != "" {
		s.recordUsage(ctx, post.ID, result.PromptTokens, result.CompletionTokens, domain.OutcomeFailure, sum)
		s.markFailed(ctx, post, reason)
		sum.Failed++
		return
	}

	if err := s.merge(ctx, post, result); err != nil {
		s.markFailed(ctx, post, fmt.Sprintf("merging suggestions: %v", err))
		sum.Failed++
		return
	}

	sum.Completed++
	sum.PromptTokens += result.PromptTokens
	sum.CompletionTokens += result.CompletionTokens
	sum.EstimatedCost += s.cost(result.PromptTokens, result.CompletionTokens)
	s.Log.Debug().
		Str("post_id", post.ID).
		Int("categories", len(result.Categories)).
		Msg("post categorized")
}

// buildRequest assembles the classifier request for a post: title,
// excerpt, rune-truncated content, and its original categories as context.
func (s *CategorizeService) buildRequest(ctx context.Context, post *domain.Post) (*classify.Request, error) {
	existing, err := repo.OriginalCategoryNames(ctx, s.DB, post.ID)
	if err != nil {
		return nil, err
	}
	excerpt := post.Excerpt
	if excerpt == "" {
		excerpt = truncateRunes(post.Content, defaultExcerptRunes)
	}
	return &classify.Request{
		Title:              post.Title,
		Excerpt:            excerpt,
		Content:            truncateRunes(post.Content, s.contentMaxRunes()),
		ExistingCategories: existing,
	}, nil
}

// classifyWithRetry invokes the classifier with bounded exponential
// backoff. Only retriable failure kinds (rate limited, timeout) are
// retried; the last error is returned once attempts are exhausted.
func (s *CategorizeService) classifyWithRetry(ctx context.Context, req classify.Request) (*classify.Result, error) {
	maxAttempts := s.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; ; attempt++ {
		if s.Limiter != nil {
			if err := s.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		result, err := s.Classifier.Classify(ctx, req)
		if err == nil {
			return result, nil
		}

		var ce *classify.Error
		if !errors.As(err, &ce) || !ce.Retriable() || attempt >= maxAttempts {
			return nil, err
		}

		delay := s.backoffDelay(attempt)
		s.Log.Debug().
			Str("kind", string(ce.Kind)).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("retrying categorization call")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// backoffDelay computes base * 2^(attempt-1), capped at RetryMaxDelay.
func (s *CategorizeService) backoffDelay(attempt int) time.Duration {
	base := s.RetryBaseDelay
	if base <= 0 {
		base = defaultRetryBaseDelay
	}
	max := s.RetryMaxDelay
	if max <= 0 {
		max = defaultRetryMaxDelay
	}

	delay := base
	for i := 1; i < attempt && delay < max; i++ {
		delay *= 2
	}
	if delay > max {
		delay = max
	}
	return delay
}

// validateResult rejects structurally unusable responses: no
// suggestions at all, or more than the configured cap.
func (s *CategorizeService) validateResult(result *classify.Result) string {
	n := len(result.Categories)
	if n < 1 {
		return "invalid response: no categories suggested"
	}
	if limit := s.maxCategories(); n > limit {
		return fmt.Sprintf("invalid response: %d categories suggested (cap %d)", n, limit)
	}
	return ""
}

// merge commits the accepted suggestions in one transaction: resolve or
// create each category as ai-generated, link it with its confidence,
// append the usage row, and mark the post completed. A failure anywhere
// rolls the whole merge back, so no partial associations survive.
func (s *CategorizeService) merge(ctx context.Context, post *domain.Post, result *classify.Result) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, sug := range result.Categories {
			cat, err := repo.GetOrCreateCategory(ctx, tx, sug.Name, domain.CategorySourceAI)
			if err != nil {
				return err
			}
			confidence := sug.Confidence
			if _, err := repo.LinkPostCategory(ctx, tx, post.ID, cat.ID, &confidence); err != nil {
				return err
			}
		}
		cost := s.cost(result.PromptTokens, result.CompletionTokens)
		if _, err := repo.RecordAPIUsage(ctx, tx, post.ID, result.PromptTokens, result.CompletionTokens, cost, domain.OutcomeSuccess); err != nil {
			return err
		}
		return repo.SetCategorizationStatus(ctx, tx, post.ID, domain.CategorizationCompleted, "")
	})
}

// markFailed transitions the post to failed with a diagnostic message.
func (s *CategorizeService) markFailed(ctx context.Context, post *domain.Post, msg string) {
	s.Log.Warn().Str("post_id", post.ID).Str("reason", msg).Msg("categorization failed")
	if err := repo.SetCategorizationStatus(ctx, s.DB, post.ID, domain.CategorizationFailed, msg); err != nil {
		s.Log.Error().Err(err).Str("post_id", post.ID).Msg("could not persist failed status")
	}
}

// recordUsage appends a usage ledger row outside the merge transaction
// (used for failure outcomes) and folds the spend into the summary.
func (s *CategorizeService) recordUsage(ctx context.Context, postID string, promptTokens, completionTokens int, outcome string, sum *CategorizeSummary) {
	cost := s.cost(promptTokens, completionTokens)
	if _, err := repo.RecordAPIUsage(ctx, s.DB, postID, promptTokens, completionTokens, cost, outcome); err != nil {
		s.Log.Error().Err(err).Str("post_id", postID).Msg("could not record API usage")
		return
	}
	sum.PromptTokens += promptTokens
	sum.CompletionTokens += completionTokens
	sum.EstimatedCost += cost
}

// cost prices token usage with the configured per-1K rates.
func (s *CategorizeService) cost(promptTokens, completionTokens int) float64 {
	return float64(promptTokens)/1000*s.PromptCostPer1K +
		float64(completionTokens)/1000*s.CompletionCostPer1K
}

func (s *CategorizeService) batchSize() int {
	if s.BatchSize > 0 {
		return s.BatchSize
	}
	return defaultBatchSize
}

func (s *CategorizeService) contentMaxRunes() int {
	if s.ContentMaxRunes > 0 {
		return s.ContentMaxRunes
	}
	return defaultContentMaxRunes
}

func (s *CategorizeService) maxCategories() int {
	if s.MaxCategories > 0 {
		return s.MaxCategories
	}
	return defaultMaxCategories
}

// partition splits posts into consecutive batches of size n.
func partition(posts []domain.Post, n int) [][]domain.Post {
	if len(posts) == 0 {
		return nil
	}
	out := make([][]domain.Post, 0, (len(posts)+n-1)/n)
	for start := 0; start < len(posts); start += n {
		end := start + n
		if end > len(posts) {
			end = len(posts)
		}
		out = append(out, posts[start:end])
	}
	return out
}

// truncateRunes clips s to at most n runes.
func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
