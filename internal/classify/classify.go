// Package classify defines the categorization client boundary: the
// request/response shapes exchanged with the external language-model
// service and the exhaustive set of typed failures the orchestrator
// branches on. The OpenAI-backed implementation lives in openai.go;
// tests substitute stubs behind the Classifier interface.
package classify

import (
	"context"
	"fmt"
)

// Request carries the post material sent to the service. Content is
// expected to be pre-truncated by the caller; ExistingCategories are
// the post's original categories, passed as context for better
// suggestions.
type Request struct {
	Title              string
	Excerpt            string
	Content            string
	ExistingCategories []string
}

// Suggestion is one proposed category with its confidence in [0,1].
type Suggestion struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Result is a successful categorization response, including the token
// counts reported by the service for cost accounting.
type Result struct {
	Categories       []Suggestion
	PromptTokens     int
	CompletionTokens int
}

// Classifier is the black-box categorization service. Implementations
// return either a *Result or an *Error whose Kind the caller can
// branch on exhaustively.
type Classifier interface {
	Classify(ctx context.Context, req Request) (*Result, error)
}

// FailureKind names the failure classes of a categorization call.
type FailureKind string

const (
	// RateLimited: the service refused the call due to throttling. Retriable.
	RateLimited FailureKind = "rate_limited"
	// Timeout: the exchange timed out or the service was transiently
	// unavailable. Retriable.
	Timeout FailureKind = "timeout"
	// AuthFailed: credentials rejected. Not retriable.
	AuthFailed FailureKind = "auth_error"
	// BadRequest: the service rejected the request as malformed. Not retriable.
	BadRequest FailureKind = "bad_request"
	// InvalidResponse: the service answered, but not in the expected
	// shape. Not retriable; the tokens were still spent.
	InvalidResponse FailureKind = "invalid_response"
)

// Error is a typed categorization failure. When the HTTP exchange
// itself completed (InvalidResponse), PromptTokens/CompletionTokens
// carry the reported usage so the caller can still account the cost;
// they are zero when the call never produced a response.
type Error struct {
	Kind             FailureKind
	Message          string
	PromptTokens     int
	CompletionTokens int
	Err              error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classify: %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("classify: %s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.Err }

// Retriable reports whether a retry with backoff can succeed.
func (e *Error) Retriable() bool {
	return e.Kind == RateLimited || e.Kind == Timeout
}
