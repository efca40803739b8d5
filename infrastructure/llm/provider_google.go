package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"github.com/ahrav/go-quorum/internal/ports"
)

// GoogleDefaultModel is the model used when the configuration names none.
const GoogleDefaultModel = "gemini-2.0-flash"

func init() {
	RegisterProviderFactory("google", newGoogleProvider)
}

// googleProvider adapts Google's Gemini API to CoreLLM.
type googleProvider struct {
	client    *genai.Client
	model     string
	estimator TokenEstimator
}

func newGoogleProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ports.ErrAuthenticationFailed
	}
	model := config.Model
	if model == "" {
		model = GoogleDefaultModel
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create google client: %w", err)
	}

	return &googleProvider{
		client:    client,
		model:     model,
		estimator: charEstimator{},
	}, nil
}

// DoRequest sends one prompt through the Gemini generate-content API.
// Gemini has no separate system role here, so any system prompt is
// prepended to the user prompt.
func (p *googleProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	options := parseRequestOptions(opts, p.model)

	finalPrompt := prompt
	if options.system != "" {
		finalPrompt = fmt.Sprintf("System: %s\n\nUser: %s", options.system, prompt)
	}
	contents := []*genai.Content{genai.NewContentFromText(finalPrompt, genai.RoleUser)}

	genConfig := &genai.GenerateContentConfig{}
	if options.maxTokens > 0 {
		genConfig.MaxOutputTokens = int32(options.maxTokens)
	}
	if options.temperature != nil {
		genConfig.Temperature = genai.Ptr(float32(*options.temperature))
	}

	resp, err := p.client.Models.GenerateContent(ctx, options.model, contents, genConfig)
	if err != nil {
		return "", 0, 0, classifyProviderError("google", "generate.content", googleStatus(err), err)
	}

	content := resp.Text()
	if content == "" {
		return "", 0, 0, ErrEmptyResponse
	}

	tokensIn := p.estimator.EstimateTokens(finalPrompt)
	tokensOut := p.estimator.EstimateTokens(content)
	if usage := resp.UsageMetadata; usage != nil {
		if usage.PromptTokenCount > 0 {
			tokensIn = int(usage.PromptTokenCount)
		}
		if usage.CandidatesTokenCount > 0 {
			tokensOut = int(usage.CandidatesTokenCount)
		}
	}
	return content, tokensIn, tokensOut, nil
}

// googleStatus extracts the HTTP status from an SDK error, zero when the
// failure never reached the API.
func googleStatus(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

func (p *googleProvider) GetModel() string  { return p.model }
func (p *googleProvider) SetModel(m string) { p.model = m }
