package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// FakeClient returns deterministic text for offline runs and tests. Replies
// are served in order; once exhausted, a canned summary of the prompt is
// returned. Err, when set, fails every call.
type FakeClient struct {
	mu       sync.Mutex
	replies  []string
	Err      error
	requests []Request
}

func NewFakeClient(replies ...string) *FakeClient {
	return &FakeClient{replies: replies}
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.Err != nil {
		return "", f.Err
	}
	if len(f.replies) > 0 {
		out := f.replies[0]
		f.replies = f.replies[1:]
		return out, nil
	}
	first := req.Prompt
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	return fmt.Sprintf("# Generated offline\n\nResponse to: %s\n", strings.TrimSpace(first)), nil
}

// Requests returns a copy of every request received so far.
func (f *FakeClient) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}
