// Package agents provides the LLM-backed task executors for both contest
// stages: analysts that distill data sources into factors and researchers
// that turn admitted factors into trade proposals.
//
// Both executors prompt their model for tagged blocks (<factor>, <signal>)
// and parse them with tolerant regular expressions, since models reliably
// reproduce delimiters but not strict JSON.
package agents

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ahrav/go-quorum/internal/domain"
)

var (
	factorBlockRe   = regexp.MustCompile(`(?s)<factor>(.*?)</factor>`)
	signalBlockRe   = regexp.MustCompile(`(?s)<signal>(.*?)</signal>`)
	evidenceListRe  = regexp.MustCompile(`(?s)<evidence_list>(.*?)</evidence_list>`)
	evidenceItemRe  = regexp.MustCompile(`(?s)<evidence>(.*?)</evidence>`)
	evidenceTimeRe  = regexp.MustCompile(`(?s)<time>(.*?)</time>`)
	evidenceFromRe  = regexp.MustCompile(`(?s)<from_source>(.*?)</from_source>`)
	limitationsRe   = regexp.MustCompile(`(?s)<limitations>(.*?)</limitations>`)
	limitationRe    = regexp.MustCompile(`(?s)<limitation>(.*?)</limitation>`)
	predictionsRe   = regexp.MustCompile(`(?s)<predictions>(.*?)</predictions>`)
	predictionRe    = regexp.MustCompile(`(?s)<prediction>(.*?)</prediction>`)
	summaryRe       = regexp.MustCompile(`(?s)<summary>(.*?)</summary>`)
	opportunityRe   = regexp.MustCompile(`(?s)<has_opportunity>(.*?)</has_opportunity>`)
	actionRe        = regexp.MustCompile(`(?s)<action>(.*?)</action>`)
	symbolCodeRe    = regexp.MustCompile(`(?s)<symbol_code>(.*?)</symbol_code>`)
	symbolNameRe    = regexp.MustCompile(`(?s)<symbol_name>(.*?)</symbol_name>`)
	probabilityRe   = regexp.MustCompile(`(?s)<probability>(.*?)</probability>`)
	evidenceTimeFmt = "2006-01-02 15:04:05"
)

// tagText extracts the first match of re inside block, trimmed.
// Returns "" when the tag is absent.
func tagText(re *regexp.Regexp, block string) string {
	m := re.FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// parseEvidenceList extracts the <evidence> items from a tagged block.
// Missing <time> or <from_source> sub-tags are tolerated; a time that
// does not parse is dropped rather than failing the whole block.
func parseEvidenceList(block string) []domain.Evidence {
	listBlock := tagText(evidenceListRe, block)
	if listBlock == "" {
		return nil
	}

	var out []domain.Evidence
	for _, m := range evidenceItemRe.FindAllStringSubmatch(listBlock, -1) {
		item := m[1]
		ev := domain.Evidence{
			Source: tagText(evidenceFromRe, item),
		}
		if raw := tagText(evidenceTimeRe, item); raw != "" && raw != "N/A" {
			if ts, err := time.Parse(evidenceTimeFmt, raw); err == nil {
				ev.Time = ts
			}
		}
		// The description is the item text with the sub-tags removed.
		desc := evidenceTimeRe.ReplaceAllString(item, "")
		desc = evidenceFromRe.ReplaceAllString(desc, "")
		ev.Description = strings.TrimSpace(desc)
		if ev.Description == "" {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// parseLimitations extracts <limitation> items, if any.
func parseLimitations(block string) []string {
	listBlock := tagText(limitationsRe, block)
	if listBlock == "" {
		return nil
	}
	var out []string
	for _, m := range limitationRe.FindAllStringSubmatch(listBlock, -1) {
		if l := strings.TrimSpace(m[1]); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// parseProbability reads a probability tag as a float in [0,1].
// Values given as percentages ("70%") are normalized.
func parseProbability(block string) (float64, bool) {
	raw := tagText(probabilityRe, block)
	if raw == "" {
		return 0, false
	}
	percent := strings.HasSuffix(raw, "%")
	raw = strings.TrimSuffix(raw, "%")
	p, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	if percent || p > 1 {
		p /= 100
	}
	if p < 0 || p > 1 {
		return 0, false
	}
	return p, true
}

// parseAction maps the model's action text onto the action taxonomy.
func parseAction(block string) (domain.Action, bool) {
	action := domain.Action(strings.ToLower(tagText(actionRe, block)))
	return action, action.Valid()
}
