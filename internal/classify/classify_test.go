package classify

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestError_Retriable(t *testing.T) {
	cases := map[FailureKind]bool{
		RateLimited:     true,
		Timeout:         true,
		AuthFailed:      false,
		BadRequest:      false,
		InvalidResponse: false,
	}
	for kind, want := range cases {
		e := &Error{Kind: kind, Message: "m"}
		if got := e.Retriable(); got != want {
			t.Fatalf("Retriable(%s) = %v, want %v", kind, got, want)
		}
	}
}

func TestError_ErrorStringAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	e := &Error{Kind: RateLimited, Message: "throttled", Err: cause}
	if !strings.Contains(e.Error(), "rate_limited") || !strings.Contains(e.Error(), "boom") {
		t.Fatalf("unexpected message: %q", e.Error())
	}
	if !errors.Is(e, cause) {
		t.Fatalf("Unwrap chain broken")
	}

	bare := &Error{Kind: AuthFailed, Message: "no key"}
	if !strings.Contains(bare.Error(), "auth_error") {
		t.Fatalf("unexpected message: %q", bare.Error())
	}
}

func TestMapAPIError_StatusCodes(t *testing.T) {
	cases := []struct {
		status int
		want   FailureKind
	}{
		{http.StatusTooManyRequests, RateLimited},
		{http.StatusUnauthorized, AuthFailed},
		{http.StatusForbidden, AuthFailed},
		{http.StatusRequestTimeout, Timeout},
		{http.StatusInternalServerError, Timeout},
		{http.StatusBadGateway, Timeout},
		{http.StatusBadRequest, BadRequest},
		{http.StatusNotFound, BadRequest},
	}
	for _, c := range cases {
		err := &openai.APIError{HTTPStatusCode: c.status}
		mapped := mapAPIError(err)
		if mapped.Kind != c.want {
			t.Fatalf("status %d mapped to %s, want %s", c.status, mapped.Kind, c.want)
		}
		if !errors.Is(mapped, err) {
			t.Fatalf("status %d: cause not preserved", c.status)
		}
	}
}

func TestMapAPIError_DeadlineIsTimeout(t *testing.T) {
	mapped := mapAPIError(context.DeadlineExceeded)
	if mapped.Kind != Timeout || !mapped.Retriable() {
		t.Fatalf("deadline exceeded mapped to %s", mapped.Kind)
	}
}

func TestMapAPIError_UnknownIsBadRequest(t *testing.T) {
	mapped := mapAPIError(errors.New("mystery"))
	if mapped.Kind != BadRequest || mapped.Retriable() {
		t.Fatalf("unknown error mapped to %s", mapped.Kind)
	}
}

func TestBuildUserPrompt(t *testing.T) {
	got := buildUserPrompt(Request{
		Title:              "Hello",
		Excerpt:            "intro",
		Content:            "body text",
		ExistingCategories: []string{"Tech", "Go"},
	})
	for _, want := range []string{"Title: Hello", "Excerpt: intro", "Existing categories: Tech, Go", "body text"} {
		if !strings.Contains(got, want) {
			t.Fatalf("prompt missing %q:\n%s", want, got)
		}
	}

	minimal := buildUserPrompt(Request{Title: "T", Content: "c"})
	if strings.Contains(minimal, "Excerpt:") || strings.Contains(minimal, "Existing categories:") {
		t.Fatalf("optional sections must be omitted when empty:\n%s", minimal)
	}
}
