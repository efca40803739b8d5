package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// passthrough embeds the wrapped CoreLLM so middleware only overrides
// DoRequest.
type passthrough struct{ next CoreLLM }

func (p passthrough) GetModel() string  { return p.next.GetModel() }
func (p passthrough) SetModel(m string) { p.next.SetModel(m) }

// TimeoutMiddleware bounds each request with a deadline so a stalled
// provider cannot hold a contest round open.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &timeoutLLM{passthrough{next}, timeout}
	}
}

type timeoutLLM struct {
	passthrough
	timeout time.Duration
}

func (t *timeoutLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.DoRequest(ctx, prompt, opts)
}

// RetryMiddleware retries transient failures with exponential backoff
// and jitter. It does not retry past an open circuit or a canceled
// context.
func RetryMiddleware(maxRetries int, baseDelay, maxDelay time.Duration) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &retryLLM{passthrough{next}, maxRetries, baseDelay, maxDelay}
	}
}

type retryLLM struct {
	passthrough
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func (r *retryLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		response, tokensIn, tokensOut, err := r.next.DoRequest(ctx, prompt, opts)
		if err == nil {
			return response, tokensIn, tokensOut, nil
		}
		lastErr = err

		if errors.Is(err, ErrCircuitOpen) || ctx.Err() != nil || attempt == r.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return "", 0, 0, ctx.Err()
		case <-time.After(r.backoff(attempt)):
		}
	}
	return "", 0, 0, fmt.Errorf("request failed after %d attempts: %w", r.maxRetries+1, lastErr)
}

func (r *retryLLM) backoff(attempt int) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	delay := r.baseDelay << uint(attempt)
	// ±25% jitter so synchronized retries from a contest pool spread out.
	jitter := time.Duration(rand.Float64() * float64(delay) * 0.5)
	delay = delay + jitter - delay/4
	if delay > r.maxDelay {
		delay = r.maxDelay
	}
	return delay
}

// RateLimitMiddleware paces requests with a shared token bucket so a
// full contest pool stays inside the provider's rate limit.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)
	return func(next CoreLLM) CoreLLM {
		return &rateLimitedLLM{passthrough{next}, limiter}
	}
}

type rateLimitedLLM struct {
	passthrough
	limiter *rate.Limiter
}

func (r *rateLimitedLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", 0, 0, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.DoRequest(ctx, prompt, opts)
}

// CircuitBreakerMiddleware fails fast once a provider has produced
// maxFailures consecutive errors, then probes recovery after the
// cooldown elapses.
func CircuitBreakerMiddleware(maxFailures int, cooldown time.Duration) Middleware {
	cb := &circuitBreaker{maxFailures: maxFailures, cooldown: cooldown}
	return func(next CoreLLM) CoreLLM {
		return &circuitBreakedLLM{passthrough{next}, cb}
	}
}

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

type circuitBreaker struct {
	mu          sync.Mutex
	state       breakerState
	failures    int
	maxFailures int
	cooldown    time.Duration
	lastFailure time.Time
}

func (cb *circuitBreaker) call(fn func() error) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == stateOpen {
		if time.Since(cb.lastFailure) < cb.cooldown {
			return ErrCircuitOpen
		}
		cb.state = stateHalfOpen
	}

	err := fn()
	if err != nil {
		cb.failures++
		cb.lastFailure = time.Now()
		// A half-open probe failure reopens immediately.
		if cb.state == stateHalfOpen || cb.failures >= cb.maxFailures {
			cb.state = stateOpen
		}
		return err
	}
	cb.failures = 0
	cb.state = stateClosed
	return nil
}

type circuitBreakedLLM struct {
	passthrough
	cb *circuitBreaker
}

func (c *circuitBreakedLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	var response string
	var tokensIn, tokensOut int
	err := c.cb.call(func() error {
		var err error
		response, tokensIn, tokensOut, err = c.next.DoRequest(ctx, prompt, opts)
		return err
	})
	return response, tokensIn, tokensOut, err
}
