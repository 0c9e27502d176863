// Package classify – OpenAI-backed Classifier.
package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = `You are a content categorization assistant for a blog.
Given a post, suggest 2 to 4 categories that describe it.
Respond with a JSON object of the form
{"categories":[{"name":"...","confidence":0.0}]}
where confidence is a number between 0 and 1. Output only the JSON object.`

// OpenAIClassifier implements Classifier against the OpenAI chat
// completions API (or any compatible endpoint via BaseURL).
type OpenAIClassifier struct {
	client *openai.Client
	model  string
}

// NewOpenAIClassifier builds a classifier for the given credentials.
// baseURL may be empty to use the default endpoint; model falls back to
// gpt-4o-mini when blank.
func NewOpenAIClassifier(apiKey, baseURL, model string) *OpenAIClassifier {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClassifier{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Classify sends one post to the service and parses the suggested
// categories. Failures come back as *Error with an exhaustive Kind.
func (c *OpenAIClassifier) Classify(ctx context.Context, req Request) (*Result, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(req)},
		},
	})
	if err != nil {
		return nil, mapAPIError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, &Error{
			Kind:             InvalidResponse,
			Message:          "response contained no choices",
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		}
	}

	var payload struct {
		Categories []Suggestion `json:"categories"`
	}
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	if jerr := json.Unmarshal([]byte(raw), &payload); jerr != nil {
		return nil, &Error{
			Kind:             InvalidResponse,
			Message:          "response is not the expected JSON shape",
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			Err:              jerr,
		}
	}

	out := &Result{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	for _, s := range payload.Categories {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			continue
		}
		if s.Confidence < 0 {
			s.Confidence = 0
		}
		if s.Confidence > 1 {
			s.Confidence = 1
		}
		out.Categories = append(out.Categories, s)
	}
	return out, nil
}

// buildUserPrompt renders the request material into the user message.
func buildUserPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", req.Title)
	if req.Excerpt != "" {
		fmt.Fprintf(&b, "Excerpt: %s\n", req.Excerpt)
	}
	if len(req.ExistingCategories) > 0 {
		fmt.Fprintf(&b, "Existing categories: %s\n", strings.Join(req.ExistingCategories, ", "))
	}
	fmt.Fprintf(&b, "\nContent:\n%s\n", req.Content)
	return b.String()
}

// mapAPIError converts transport and API errors into typed failures.
func mapAPIError(err error) *Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429:
			return &Error{Kind: RateLimited, Message: "rate limited by service", Err: err}
		case apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403:
			return &Error{Kind: AuthFailed, Message: "authentication rejected", Err: err}
		case apiErr.HTTPStatusCode == 408 || apiErr.HTTPStatusCode >= 500:
			return &Error{Kind: Timeout, Message: fmt.Sprintf("service unavailable (HTTP %d)", apiErr.HTTPStatusCode), Err: err}
		default:
			return &Error{Kind: BadRequest, Message: fmt.Sprintf("request rejected (HTTP %d)", apiErr.HTTPStatusCode), Err: err}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: Timeout, Message: "request deadline exceeded", Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: Timeout, Message: "network timeout", Err: err}
	}

	return &Error{Kind: BadRequest, Message: "request failed", Err: err}
}
