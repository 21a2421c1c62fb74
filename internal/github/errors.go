package github

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	gogh "github.com/google/go-github/v68/github"
)

// RemoteAPIError is a non-success response from the repository API.
type RemoteAPIError struct {
	Status int
	Body   string
	Err    error
}

func (e *RemoteAPIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 512 {
		body = body[:512]
	}
	if body == "" {
		return fmt.Sprintf("github: unexpected status %d", e.Status)
	}
	return fmt.Sprintf("github: unexpected status %d: %s", e.Status, body)
}

func (e *RemoteAPIError) Unwrap() error { return e.Err }

// RateLimited reports whether the response signals an exhausted quota.
func (e *RemoteAPIError) RateLimited() bool {
	if e == nil {
		return false
	}
	var rl *gogh.RateLimitError
	var abuse *gogh.AbuseRateLimitError
	if errors.As(e.Err, &rl) || errors.As(e.Err, &abuse) {
		return true
	}
	switch e.Status {
	case http.StatusTooManyRequests:
		return true
	case http.StatusForbidden:
		return strings.Contains(strings.ToLower(e.Body), "rate limit")
	}
	return false
}

// IsRateLimited reports whether err carries a rate-limited RemoteAPIError.
func IsRateLimited(err error) bool {
	var apiErr *RemoteAPIError
	if errors.As(err, &apiErr) {
		return apiErr.RateLimited()
	}
	return false
}

// EncodingError reports file content in an encoding other than base64.
type EncodingError struct {
	Path     string
	Encoding string
}

func (e *EncodingError) Error() string {
	enc := e.Encoding
	if enc == "" {
		enc = "<none>"
	}
	return fmt.Sprintf("github: unsupported content encoding %q for %s", enc, e.Path)
}

// asRemoteError converts go-github failures into RemoteAPIError. Transport
// errors without a response are returned unchanged.
func asRemoteError(err error) error {
	if err == nil {
		return nil
	}
	var rl *gogh.RateLimitError
	if errors.As(err, &rl) {
		return &RemoteAPIError{Status: statusOf(rl.Response, http.StatusForbidden), Body: bodyOf(rl.Response, rl.Message), Err: err}
	}
	var abuse *gogh.AbuseRateLimitError
	if errors.As(err, &abuse) {
		return &RemoteAPIError{Status: statusOf(abuse.Response, http.StatusForbidden), Body: bodyOf(abuse.Response, abuse.Message), Err: err}
	}
	var er *gogh.ErrorResponse
	if errors.As(err, &er) {
		return &RemoteAPIError{Status: statusOf(er.Response, 0), Body: bodyOf(er.Response, er.Message), Err: err}
	}
	return err
}

func statusOf(resp *http.Response, fallback int) int {
	if resp == nil {
		return fallback
	}
	return resp.StatusCode
}

// bodyOf reads the response body, which go-github re-populates after
// decoding the error. The decoded message is used when nothing is left.
func bodyOf(resp *http.Response, message string) string {
	if resp != nil && resp.Body != nil {
		raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err == nil && len(raw) > 0 {
			return string(raw)
		}
	}
	return message
}
