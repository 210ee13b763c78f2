package agents

import (
	"context"
	"fmt"
	"strings"

	"chem-solver/internal/clients"
	"chem-solver/internal/config"
	"chem-solver/internal/personas"
)

// reasoningExcerptLimit bounds how much of each agent's reasoning makes it
// into the consensus prompt, keeping the prompt size predictable.
const reasoningExcerptLimit = 500

// ConsensusSynthesizer is the arbiter agent of the second debate round.
// It receives every successful round-1 analysis as additional context and
// produces a single arbitrated response through the same retry-wrapped
// analysis path as any other agent.
type ConsensusSynthesizer struct {
	*Agent
}

// NewConsensusSynthesizer creates the arbiter agent
func NewConsensusSynthesizer(client clients.InferenceClient, cfg config.AgentConfig) *ConsensusSynthesizer {
	return &ConsensusSynthesizer{
		Agent: NewAgent(personas.Arbiter, client, cfg),
	}
}

// Synthesize builds a digest of all successful agent analyses and runs the
// arbiter over the original problem with that digest as extra context. Its
// failure is reported like any agent failure.
func (s *ConsensusSynthesizer) Synthesize(ctx context.Context, results []AgentResponse, image []byte) AgentResponse {
	return s.Analyze(ctx, image, buildDigest(results))
}

// buildDigest enumerates each successful agent's name, answer, confidence
// and a bounded excerpt of its reasoning
func buildDigest(results []AgentResponse) string {
	var sb strings.Builder
	sb.WriteString("EXPERT AGENT ANALYSES:\n\n")

	for _, result := range results {
		if !result.Success {
			continue
		}
		sb.WriteString(strings.Repeat("=", 50))
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s:\n", result.AgentName))
		sb.WriteString(fmt.Sprintf("Answer: %s\n", result.Answer))
		sb.WriteString(fmt.Sprintf("Confidence: %d%%\n", result.Confidence))
		sb.WriteString(fmt.Sprintf("Key reasoning:\n%s...\n\n", excerpt(result.Reasoning, reasoningExcerptLimit)))
	}

	return sb.String()
}

// excerpt truncates text to at most maxLength bytes
func excerpt(text string, maxLength int) string {
	if len(text) <= maxLength {
		return text
	}
	return text[:maxLength]
}
