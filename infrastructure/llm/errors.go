package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ahrav/go-quorum/internal/ports"
)

// Provider-agnostic errors surfaced by this package.
var (
	// ErrEmptyResponse indicates the provider returned no usable content.
	ErrEmptyResponse = errors.New("provider returned empty response")

	// ErrCircuitOpen indicates the circuit breaker rejected a request
	// without reaching the provider.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// classifyProviderError maps raw provider failures onto the ports error
// taxonomy so callers can branch with errors.Is regardless of provider.
// status is the HTTP status when the provider exposes one; zero means
// unknown and falls through to message sniffing.
func classifyProviderError(provider, operation string, status int, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %v", ports.ErrTimeout, err)
		return ports.NewToolError(provider, operation, err)
	}

	switch {
	case status == 401 || status == 403:
		err = fmt.Errorf("%w: %v", ports.ErrAuthenticationFailed, err)
	case status == 429:
		err = fmt.Errorf("%w: %v", ports.ErrRateLimited, err)
	case status >= 500:
		err = fmt.Errorf("%w: %v", ports.ErrServiceUnavailable, err)
	case status == 0:
		msg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(msg, "rate limit"), strings.Contains(msg, "quota"):
			err = fmt.Errorf("%w: %v", ports.ErrRateLimited, err)
		case strings.Contains(msg, "unavailable"), strings.Contains(msg, "overloaded"):
			err = fmt.Errorf("%w: %v", ports.ErrServiceUnavailable, err)
		case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
			err = fmt.Errorf("%w: %v", ports.ErrTimeout, err)
		}
	}
	return ports.NewToolError(provider, operation, err)
}
