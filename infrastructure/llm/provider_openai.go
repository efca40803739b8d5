package llm

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ahrav/go-quorum/internal/ports"
)

// OpenAIDefaultModel is the model used when the configuration names none.
const OpenAIDefaultModel = "gpt-4o-mini"

func init() {
	RegisterProviderFactory("openai", newOpenAIProvider)
}

// openAIProvider adapts OpenAI's chat completion API to CoreLLM. It also
// serves OpenAI-compatible endpoints through the BaseURL override.
type openAIProvider struct {
	client    *openai.Client
	model     string
	estimator TokenEstimator
}

func newOpenAIProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ports.ErrAuthenticationFailed
	}
	model := config.Model
	if model == "" {
		model = OpenAIDefaultModel
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}
	}

	return &openAIProvider{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     model,
		estimator: charEstimator{},
	}, nil
}

// DoRequest sends one prompt as a chat completion.
func (p *openAIProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	options := parseRequestOptions(opts, p.model)

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if options.system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: options.system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:     options.model,
		Messages:  messages,
		MaxTokens: options.maxTokens,
	}
	if options.temperature != nil {
		req.Temperature = float32(*options.temperature)
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", 0, 0, classifyProviderError("openai", "chat.completion", openAIStatus(err), err)
	}
	if len(resp.Choices) == 0 {
		return "", 0, 0, ErrEmptyResponse
	}

	content := resp.Choices[0].Message.Content
	tokensIn := resp.Usage.PromptTokens
	if tokensIn == 0 {
		tokensIn = p.estimator.EstimateTokens(prompt)
	}
	tokensOut := resp.Usage.CompletionTokens
	if tokensOut == 0 {
		tokensOut = p.estimator.EstimateTokens(content)
	}
	return content, tokensIn, tokensOut, nil
}

// openAIStatus extracts the HTTP status from an SDK error, zero when the
// failure never reached the API.
func openAIStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func (p *openAIProvider) GetModel() string  { return p.model }
func (p *openAIProvider) SetModel(m string) { p.model = m }
