package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient calls an OpenAI-compatible Chat Completions API (OpenAI,
// Groq, local gateways).
type OpenAIClient struct {
	http    *http.Client
	apiKey  string
	model   string
	baseURL string
}

// NewOpenAIClient creates a client for baseURL (without the
// /chat/completions suffix). An empty baseURL selects OpenAI.
func NewOpenAIClient(apiKey, model, baseURL string, httpClient *http.Client) (*OpenAIClient, error) {
	if model == "" {
		return nil, errors.New("openai: model is required")
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &OpenAIClient{
		http:    httpClient,
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func (c *OpenAIClient) Name() string { return "OpenAI:" + c.model }
func (c *OpenAIClient) Close() error { return nil }

type chatReq struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int32         `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	msgs := make([]chatMessage, 0, 2)
	if req.System != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.System})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: req.Prompt})

	b, err := json.Marshal(chatReq{
		Model:       c.model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxOutputTokens,
	})
	if err != nil {
		return "", NewPermanentError(err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", NewPermanentError(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &Error{Provider: c.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &Error{
			Provider:    c.Name(),
			Status:      resp.StatusCode,
			RateLimited: resp.StatusCode == http.StatusTooManyRequests,
			RetryAfter:  parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:         fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body))),
		}
	}

	var out chatResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &Error{Provider: c.Name(), Status: resp.StatusCode, Err: err}
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", &Error{Provider: c.Name(), Status: resp.StatusCode, Err: ErrEmptyResponse}
	}
	return out.Choices[0].Message.Content, nil
}

// retryAfter prefers Retry-After and falls back to the x-ratelimit-reset-*
// headers sent by OpenAI and Groq when a quota is exhausted.
func retryAfter(h http.Header) time.Duration {
	if d := parseRetryAfter(h.Get("Retry-After")); d > 0 {
		return d
	}
	remaining := func(key string) (int, bool) {
		n, err := strconv.Atoi(strings.TrimSpace(h.Get(key)))
		return n, err == nil
	}
	reset := func(key string) time.Duration {
		d, err := time.ParseDuration(strings.TrimSpace(h.Get(key)))
		if err != nil || d < 0 {
			return 0
		}
		return d
	}
	if n, ok := remaining("x-ratelimit-remaining-tokens"); ok && n == 0 {
		if d := reset("x-ratelimit-reset-tokens"); d > 0 {
			return d
		}
	}
	if n, ok := remaining("x-ratelimit-remaining-requests"); ok && n == 0 {
		return reset("x-ratelimit-reset-requests")
	}
	return 0
}

func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
