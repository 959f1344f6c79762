package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/doclantern/doclantern/internal/docs"
	"github.com/doclantern/doclantern/internal/schema"
	"github.com/doclantern/doclantern/internal/shared/textutils"
)

// DecisionKind tags the outcome of the classification step.
type DecisionKind int

const (
	// DirectAnswer: the question needs no external documentation.
	DirectAnswer DecisionKind = iota
	// NeedsLookup: the question concerns a specific library/framework and
	// Query carries the extracted reference.
	NeedsLookup
)

// Decision is the tagged variant produced by the classification step.
type Decision struct {
	Kind  DecisionKind
	Query docs.LibraryQuery
}

const decidePrompt = `You route questions for a documentation assistant.
Decide whether the user's question is about a SPECIFIC software library,
framework or SDK whose documentation should be looked up.

Reply with ONLY a JSON object, no prose:
  {"action":"lookup","library":"<name as the user wrote it>","version":"<version hint or empty>"}
or
  {"action":"direct"}

Question: %s`

// decide classifies the question via the LLM, falling back to a keyword
// heuristic when the model is unreachable or returns garbage. Keeping the
// result a plain tagged value makes the routing testable without any model.
func (o *Orchestrator) decide(ctx context.Context, question string) Decision {
	msgs := schema.NewMessages(
		schema.NewUserMessage(fmt.Sprintf(decidePrompt, question)),
	)
	opts := schema.NewChatOptions(o.settings.Model, 200, 0)

	raw, err := o.provider.Chat(ctx, msgs, opts)
	if err != nil {
		slog.Warn("decision LLM unavailable, using heuristic", "err", err)
		return heuristicDecide(question)
	}

	if d, ok := parseDecision(raw); ok {
		return d
	}
	slog.Warn("unparseable decision output, using heuristic",
		"raw", textutils.Truncate(raw, 120))
	return heuristicDecide(question)
}

// parseDecision extracts the decision JSON from the model output.
func parseDecision(raw string) (Decision, bool) {
	obj, err := extractJSON(textutils.StripThink(raw))
	if err != nil {
		return Decision{}, false
	}
	action, _ := obj["action"].(string)
	switch strings.ToLower(action) {
	case "direct":
		return Decision{Kind: DirectAnswer}, true
	case "lookup":
		name, _ := obj["library"].(string)
		if strings.TrimSpace(name) == "" {
			return Decision{}, false
		}
		version, _ := obj["version"].(string)
		return Decision{
			Kind:  NeedsLookup,
			Query: docs.LibraryQuery{Name: strings.TrimSpace(name), Version: strings.TrimSpace(version)},
		}, true
	}
	return Decision{}, false
}

// extractJSON unmarshals the first JSON object found in raw, tolerating
// surrounding prose and code fences that some models emit.
func extractJSON(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)

	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		return out, nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(raw[start:end+1]), &out); err == nil {
			return out, nil
		}
	}
	return nil, fmt.Errorf("no JSON object in %q", textutils.Truncate(raw, 80))
}

// ---------------------------------------------------------------------------
// Heuristic fallback
// ---------------------------------------------------------------------------

var (
	// "the requests library", "cobra package", "react framework"
	reNameBeforeKind = regexp.MustCompile(`(?i)\b([A-Za-z][\w.-]*)\s+(?:library|package|framework|sdk|module)\b`)
	// "library called requests", "the package cobra"
	reNameAfterKind = regexp.MustCompile(`(?i)\b(?:library|package|framework|sdk|module)\s+(?:called\s+|named\s+)?([A-Za-z][\w.-]*)\b`)
	// "requests docs", "documentation for gin"
	reDocsFor = regexp.MustCompile(`(?i)\b(?:docs?|documentation)\s+(?:for|of|on)\s+([A-Za-z][\w.-]*)\b`)
)

var heuristicStopwords = map[string]bool{
	"a": true, "an": true, "the": true, "this": true, "that": true,
	"any": true, "some": true, "my": true, "your": true, "which": true,
	"what": true, "standard": true, "third-party": true,
	"should": true, "would": true, "could": true, "can": true, "will": true,
	"do": true, "does": true, "is": true, "are": true, "was": true,
	"i": true, "you": true, "we": true, "it": true, "to": true, "in": true,
	"for": true, "of": true, "on": true, "with": true, "and": true, "or": true,
}

// heuristicDecide is the no-LLM classifier: it looks for a library name next
// to a library-ish keyword. Anything else answers directly.
func heuristicDecide(question string) Decision {
	for _, re := range []*regexp.Regexp{reNameBeforeKind, reDocsFor, reNameAfterKind} {
		if m := re.FindStringSubmatch(question); m != nil {
			name := strings.TrimSpace(m[1])
			if !heuristicStopwords[strings.ToLower(name)] {
				return Decision{Kind: NeedsLookup, Query: docs.LibraryQuery{Name: name}}
			}
		}
	}
	return Decision{Kind: DirectAnswer}
}
