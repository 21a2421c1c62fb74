package llm

import (
	"context"
	"log"
	"time"

	"golang.org/x/time/rate"
)

// Middleware decorates a Client to inject cross-cutting concerns
// (rate limiting, retries, logging, timeouts).
type Middleware func(Client) Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// -------- Rate Limiting --------

// RateLimit paces calls to at most rps per second with the given burst.
// If rps <= 0, the limiter is disabled.
func RateLimit(rps float64, burst int) Middleware {
	return func(next Client) Client {
		if rps <= 0 {
			return next
		}
		if burst <= 0 {
			burst = 1
		}
		return &rateLimited{next: next, rl: rate.NewLimiter(rate.Limit(rps), burst)}
	}
}

type rateLimited struct {
	next Client
	rl   *rate.Limiter
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error { return c.next.Close() }
func (c *rateLimited) Generate(ctx context.Context, req Request) (string, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return "", err
	}
	return c.next.Generate(ctx, req)
}

// -------- Timeout --------

// Timeout bounds every call with its own deadline. d <= 0 disables it.
func Timeout(d time.Duration) Middleware {
	return func(next Client) Client {
		if d <= 0 {
			return next
		}
		return &timed{next: next, d: d}
	}
}

type timed struct {
	next Client
	d    time.Duration
}

func (t *timed) Name() string { return t.next.Name() }
func (t *timed) Close() error { return t.next.Close() }
func (t *timed) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.Generate(ctx, req)
}

// -------- Retry with exponential backoff --------

// Retry retries Generate up to maxAttempts with exponential backoff
// starting at baseDelay. Permanent errors, client errors and rate-limit
// errors are returned immediately, as is context cancellation.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next Client) Client {
		return &retrying{next: next, max: maxAttempts, base: baseDelay}
	}
}

type retrying struct {
	next Client
	max  int
	base time.Duration
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }
func (r *retrying) Generate(ctx context.Context, req Request) (string, error) {
	var last error
	for i := 0; i < r.max; i++ {
		out, err := r.next.Generate(ctx, req)
		if err == nil {
			return out, nil
		}
		if !retryable(err) {
			return "", err
		}
		last = err
		if i == r.max-1 {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.base * time.Duration(1<<i)):
		}
	}
	return "", last
}

// -------- Logging --------

// WithLogging logs request size, latency and errors. Provide a custom
// logger or nil to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next Client) Client {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next Client
	log  *log.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }
func (l *logging) Generate(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	phase := PhaseFrom(ctx)
	l.log.Printf("LLM request (%s, %s): %d bytes", phase, l.next.Name(), len(req.System)+len(req.Prompt))
	out, err := l.next.Generate(ctx, req)
	if err != nil {
		l.log.Printf("LLM error (%s) after %s: %v", phase, time.Since(start).Round(time.Millisecond), err)
		return out, err
	}
	l.log.Printf("LLM response (%s): %d bytes in %s", phase, len(out), time.Since(start).Round(time.Millisecond))
	return out, nil
}
