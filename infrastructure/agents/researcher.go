package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

// maxSignalsPerResponse bounds how many signal blocks a single response
// may contribute; anything past the cap is ignored.
const maxSignalsPerResponse = 5

const researcherSystemPrompt = `You are a trading researcher. Using your
assigned belief and the supplied analyst factors, decide whether there is a
tradable opportunity. Respond with one or more <signal> blocks:

<signal>
<has_opportunity>yes|no</has_opportunity>
<action>buy|sell|hold</action>
<symbol_code>CODE</symbol_code>
<symbol_name>display name</symbol_name>
<evidence_list>
<evidence>supporting observation<time>2006-01-02 15:04:05</time><from_source>source name</from_source></evidence>
</evidence_list>
<limitations>
<limitation>a caveat</limitation>
</limitations>
<probability>0.0-1.0</probability>
</signal>

If you see no opportunity, return a single signal with
<has_opportunity>no</has_opportunity> and omit the other fields.`

// ResearcherExecutor runs research-stage tasks: it prompts an LLM with the
// agent's belief plus the admitted factors and parses the signal blocks
// into a Proposal.
type ResearcherExecutor struct {
	client  ports.LLMClient
	options map[string]any
}

var _ ports.TaskExecutor = (*ResearcherExecutor)(nil)

// NewResearcherExecutor builds a research-stage executor over the given
// client. The options map is passed through to every completion request.
func NewResearcherExecutor(client ports.LLMClient, options map[string]any) *ResearcherExecutor {
	return &ResearcherExecutor{client: client, options: options}
}

// Execute prompts the model and converts its best signal into a proposal.
// A response whose signals all declare no opportunity maps to
// ports.ErrDeclined, which the round runner records as a declined
// abstention; a response with no parseable signal at all is a validation
// error and records as malformed.
func (e *ResearcherExecutor) Execute(ctx context.Context, task domain.Task) (domain.CandidateOutput, error) {
	prompt := e.buildPrompt(task)
	options := withSystem(e.options, researcherSystemPrompt)

	response, err := e.client.Complete(ctx, prompt, options)
	if err != nil {
		return domain.CandidateOutput{}, fmt.Errorf("researcher completion: %w", err)
	}

	proposal, err := parseBestSignal(response)
	if err != nil {
		return domain.CandidateOutput{}, err
	}
	return domain.CandidateOutput{Stage: domain.StageResearch, Proposal: proposal}, nil
}

func (e *ResearcherExecutor) buildPrompt(task domain.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Observation time: %s\n", task.TriggerTime.Format("2006-01-02 15:04:05"))
	if task.Belief != "" {
		fmt.Fprintf(&b, "Your belief: %s\n", task.Belief)
	}
	b.WriteString("\n")
	b.WriteString(task.Context)
	return b.String()
}

// parseBestSignal extracts the signal blocks from a response and returns
// the opportunity with the highest declared probability.
func parseBestSignal(response string) (*domain.Proposal, error) {
	blocks := signalBlockRe.FindAllStringSubmatch(response, -1)
	if len(blocks) == 0 {
		return nil, domain.NewValidationError("signal response").
			WithError("no <signal> block in response")
	}
	if len(blocks) > maxSignalsPerResponse {
		blocks = blocks[:maxSignalsPerResponse]
	}

	var (
		best      *domain.Proposal
		declined  bool
		parseErrs int
	)
	for _, m := range blocks {
		block := m[1]
		if !strings.EqualFold(tagText(opportunityRe, block), "yes") {
			declined = true
			continue
		}
		proposal, ok := parseSignal(block)
		if !ok {
			parseErrs++
			continue
		}
		if best == nil || proposal.Confidence > best.Confidence {
			best = proposal
		}
	}

	switch {
	case best != nil:
		return best, nil
	case declined:
		return nil, ports.ErrDeclined
	default:
		return nil, domain.NewValidationError("signal response").
			WithError(fmt.Sprintf("%d signal block(s), none parseable", parseErrs))
	}
}

// parseSignal converts one opportunity-bearing signal block into a
// proposal. Blocks missing a symbol, action, or probability are skipped.
func parseSignal(block string) (*domain.Proposal, bool) {
	symbol := tagText(symbolCodeRe, block)
	action, actionOK := parseAction(block)
	probability, probOK := parseProbability(block)
	if symbol == "" || !actionOK || !probOK {
		return nil, false
	}
	return &domain.Proposal{
		Symbol:      symbol,
		SymbolName:  tagText(symbolNameRe, block),
		Action:      action,
		Confidence:  probability,
		Evidence:    parseEvidenceList(block),
		Limitations: parseLimitations(block),
	}, true
}
