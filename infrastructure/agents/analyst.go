package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

const analystSystemPrompt = `You are a market data analyst. Distill the raw
observations you are given into one structured factor. Respond with exactly
one <factor> block:

<factor>
<summary>what the data says, in a few sentences</summary>
<evidence_list>
<evidence>observation text<time>2006-01-02 15:04:05</time><from_source>source name</from_source></evidence>
</evidence_list>
<predictions>
<prediction><symbol_code>CODE</symbol_code><action>buy|sell|hold</action><probability>0.0-1.0</probability></prediction>
</predictions>
</factor>

Include a prediction only when the data supports a checkable directional
claim; the predictions block may be empty.`

// AnalystExecutor runs data-stage tasks: it prompts an LLM with the task's
// source material and parses the response into a Factor.
type AnalystExecutor struct {
	client  ports.LLMClient
	options map[string]any
}

var _ ports.TaskExecutor = (*AnalystExecutor)(nil)

// NewAnalystExecutor builds a data-stage executor over the given client.
// The options map is passed through to every completion request.
func NewAnalystExecutor(client ports.LLMClient, options map[string]any) *AnalystExecutor {
	return &AnalystExecutor{client: client, options: options}
}

// Execute prompts the model and parses its factor block. A response with
// no parseable <factor> block is a validation error, which the round
// runner records as a malformed abstention.
func (e *AnalystExecutor) Execute(ctx context.Context, task domain.Task) (domain.CandidateOutput, error) {
	prompt := e.buildPrompt(task)
	options := withSystem(e.options, analystSystemPrompt)

	response, err := e.client.Complete(ctx, prompt, options)
	if err != nil {
		return domain.CandidateOutput{}, fmt.Errorf("analyst completion: %w", err)
	}

	factor, err := parseFactor(response)
	if err != nil {
		return domain.CandidateOutput{}, err
	}
	return domain.CandidateOutput{Stage: domain.StageData, Factor: factor}, nil
}

func (e *AnalystExecutor) buildPrompt(task domain.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Observation time: %s\n", task.TriggerTime.Format("2006-01-02 15:04:05"))
	if task.Belief != "" {
		fmt.Fprintf(&b, "Analysis focus: %s\n", task.Belief)
	}
	b.WriteString("\nRaw observations:\n")
	b.WriteString(task.Context)
	return b.String()
}

// parseFactor extracts the first <factor> block from a model response.
func parseFactor(response string) (*domain.Factor, error) {
	block := tagText(factorBlockRe, response)
	if block == "" {
		return nil, domain.NewValidationError("factor response").
			WithError("no <factor> block in response")
	}

	summary := tagText(summaryRe, block)
	if summary == "" {
		return nil, domain.NewValidationError("factor response").
			WithError("factor block has no summary")
	}

	factor := &domain.Factor{
		Summary:  summary,
		Evidence: parseEvidenceList(block),
	}

	if predBlock := tagText(predictionsRe, block); predBlock != "" {
		for _, m := range predictionRe.FindAllStringSubmatch(predBlock, -1) {
			item := m[1]
			symbol := tagText(symbolCodeRe, item)
			action, actionOK := parseAction(item)
			probability, probOK := parseProbability(item)
			if symbol == "" || !actionOK || !probOK {
				continue
			}
			factor.Predictions = append(factor.Predictions, domain.Prediction{
				Symbol:     symbol,
				Action:     action,
				Confidence: probability,
			})
		}
	}
	return factor, nil
}

// withSystem copies the options map with the system prompt set, leaving
// the shared map untouched.
func withSystem(options map[string]any, system string) map[string]any {
	merged := make(map[string]any, len(options)+1)
	for k, v := range options {
		merged[k] = v
	}
	merged["system"] = system
	return merged
}
