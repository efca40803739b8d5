package llm

// DefaultMaxTokens caps response length when the caller did not specify.
const DefaultMaxTokens = 2048

// requestOptions holds the per-request parameters shared by all providers.
type requestOptions struct {
	model       string
	maxTokens   int
	temperature *float64
	system      string
}

// parseRequestOptions extracts common request parameters from the opts map,
// falling back to the provider's defaults for anything absent or invalid.
func parseRequestOptions(opts map[string]any, defaultModel string) requestOptions {
	parsed := requestOptions{model: defaultModel, maxTokens: DefaultMaxTokens}
	if opts == nil {
		return parsed
	}
	if model, ok := opts["model"].(string); ok && model != "" {
		parsed.model = model
	}
	if maxTokens, ok := opts["max_tokens"].(int); ok && maxTokens > 0 {
		parsed.maxTokens = maxTokens
	}
	if temp, ok := opts["temperature"].(float64); ok && temp >= 0 && temp <= 2 {
		parsed.temperature = &temp
	}
	if system, ok := opts["system"].(string); ok {
		parsed.system = system
	}
	return parsed
}
