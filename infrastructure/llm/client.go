// Package llm provides a unified client for the LLM providers that back
// the contest engine's task executors, with cross-cutting concerns
// (timeouts, retries, rate limiting, circuit breaking, metrics) composed
// as middleware around a minimal provider interface.
//
// Providers register themselves through RegisterProviderFactory; the
// package ships OpenAI, Anthropic, and Google implementations. Client
// satisfies ports.LLMClient so executors never see provider detail.
//
// Basic usage:
//
//	client, err := llm.NewClient("anthropic", llm.ClientConfig{
//	    APIKey: os.Getenv("ANTHROPIC_API_KEY"),
//	    Model:  "claude-3-5-sonnet-20241022",
//	    Middleware: []llm.Middleware{
//	        llm.TimeoutMiddleware(30 * time.Second),
//	        llm.RetryMiddleware(3, time.Second, 30*time.Second),
//	        llm.RateLimitMiddleware(10, 20),
//	    },
//	})
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ahrav/go-quorum/internal/ports"
)

// CoreLLM is the minimal interface a provider must implement. Middleware
// wraps any conforming implementation.
type CoreLLM interface {
	// DoRequest sends a prompt and returns the response text plus input
	// and output token counts. The opts map carries provider-tunable
	// parameters such as "temperature", "max_tokens", and "model".
	DoRequest(ctx context.Context, prompt string, opts map[string]any) (response string, tokensIn, tokensOut int, err error)

	// GetModel returns the currently configured model name.
	GetModel() string

	// SetModel switches the model for subsequent requests.
	SetModel(model string)
}

// TokenEstimator approximates token counts for prompt budgeting when the
// provider has not reported exact usage.
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// Middleware wraps a CoreLLM to add cross-cutting behavior. Middleware in
// ClientConfig applies in order, first entry outermost.
type Middleware func(CoreLLM) CoreLLM

// ClientConfig holds everything needed to build a provider-backed client.
type ClientConfig struct {
	// APIKey authenticates with the provider.
	APIKey string

	// Model selects the provider model; empty picks the provider default.
	Model string

	// BaseURL overrides the provider endpoint when set.
	BaseURL string

	// Timeout bounds individual requests at the transport layer.
	// Zero disables it; prefer TimeoutMiddleware for request deadlines.
	Timeout time.Duration

	// TokenEstimator overrides the default character-based estimator.
	TokenEstimator TokenEstimator

	// Middleware composes additional behavior around the provider.
	Middleware []Middleware
}

// Client implements ports.LLMClient over a middleware-wrapped provider.
type Client struct {
	core      CoreLLM
	estimator TokenEstimator
}

var _ ports.LLMClient = (*Client)(nil)

// NewClient builds a client for the named provider, applying the
// configured middleware chain.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: missing API key", ports.ErrAuthenticationFailed)
	}

	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", providerType)
	}
	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("create %s provider: %w", providerType, err)
	}

	// Reverse application keeps the first configured middleware outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	estimator := config.TokenEstimator
	if estimator == nil {
		estimator = charEstimator{}
	}
	return &Client{core: core, estimator: estimator}, nil
}

// Complete sends a prompt and returns the response text.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	response, _, _, err := c.core.DoRequest(ctx, prompt, options)
	return response, err
}

// CompleteWithUsage sends a prompt and returns response text with token
// usage, for callers that budget prompts.
func (c *Client) CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, int, int, error) {
	return c.core.DoRequest(ctx, prompt, options)
}

// EstimateTokens approximates the token count of a text.
func (c *Client) EstimateTokens(text string) (int, error) {
	return c.estimator.EstimateTokens(text), nil
}

// GetModel returns the underlying provider's configured model.
func (c *Client) GetModel() string { return c.core.GetModel() }

// charEstimator assumes roughly four characters per token, adequate for
// budgeting English prompts without a provider round trip.
type charEstimator struct{}

func (charEstimator) EstimateTokens(text string) int { return (len(text) + 3) / 4 }

// ProviderFactory builds a CoreLLM from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var providerFactories = map[string]ProviderFactory{}

// RegisterProviderFactory registers a provider under a name, letting
// deployments add providers without touching this package.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	providerFactories[providerType] = factory
}
