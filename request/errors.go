package request

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
)

// ErrInvalidURL is returned before any request is attempted when the
// target does not use an http(s) scheme.
var ErrInvalidURL = errors.New("invalid URL, expected http(s) scheme")

// MaxRetriesError reports an exhausted retry budget for one range
// window or segment. The whole fetch aborts; there is no resume.
type MaxRetriesError struct {
	URL      string
	Attempts int
}

func (e *MaxRetriesError) Error() string {
	return fmt.Sprintf("maximum number of retries exceeded for %s after %d attempts", e.URL, e.Attempts)
}

// PatternNotMatchedError reports that the Segment-Count metadata line
// was never found in a segment-0 body.
type PatternNotMatchedError struct {
	Caller  string
	Pattern string
}

func (e *PatternNotMatchedError) Error() string {
	return fmt.Sprintf("%s: could not find match for %s", e.Caller, e.Pattern)
}

// retryPolicy bounds the attempts for one range window and holds the
// allowlist of error kinds that are swallowed rather than surfaced:
// per-request timeouts and connections closed before the declared
// length was delivered. Everything else is fatal.
type retryPolicy struct {
	maxAttempts int
}

func newRetryPolicy(maxRetries int) retryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return retryPolicy{maxAttempts: 1 + maxRetries}
}

func (p retryPolicy) exhausted(failures int) bool {
	return failures >= p.maxAttempts
}

func (p retryPolicy) retryable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	return false
}
