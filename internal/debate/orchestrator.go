package debate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chem-solver/internal/agents"
	"chem-solver/internal/clients"
	"chem-solver/internal/config"
	"chem-solver/internal/extract"
	"chem-solver/internal/logger"
	"chem-solver/internal/personas"

	"github.com/sirupsen/logrus"
)

// Mode identifies how the final answer of a debate was resolved
type Mode string

const (
	ModeSingleAgent  Mode = "single_agent"
	ModeUnanimous    Mode = "unanimous"
	ModeConsensus    Mode = "consensus"
	ModeMajorityVote Mode = "majority_vote"
)

// allFailedReasoning is the canonical explanation when no agent produced a
// usable analysis.
const allFailedReasoning = "All agents failed to analyze"

// majorityFallbackReasoning explains a majority-vote outcome after a failed
// consensus round.
const majorityFallbackReasoning = "Consensus agent failed. Using majority vote from expert agents."

// Outcome is the terminal artifact of one orchestrator invocation. It is
// fully constructed before being returned; callers always receive one,
// never an error, once the orchestrator itself is validly configured.
type Outcome struct {
	Mode              Mode                   `json:"mode"`
	Answer            string                 `json:"answer"`
	Confidence        int                    `json:"confidence"`
	Reasoning         string                 `json:"reasoning"`
	AgentsUsed        int                    `json:"agents_used"`
	Success           bool                   `json:"success"`
	Votes             VoteTally              `json:"votes,omitempty"`
	AgentBreakdown    []agents.AgentResponse `json:"agent_breakdown,omitempty"`
	ConsensusAnalysis *agents.AgentResponse  `json:"consensus_analysis,omitempty"`
	Error             string                 `json:"error,omitempty"`
}

// ConfigurationError indicates the orchestrator cannot run at all. It is
// fatal and never retried.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("debate configuration error: %s", e.Message)
}

// Orchestrator drives the two-round debate protocol: parallel fan-out,
// unanimity check, consensus synthesis, and the majority-vote fallback.
// It holds no mutable state across invocations and is safe for concurrent
// use.
type Orchestrator struct {
	agents        []*agents.Agent
	consensus     *agents.ConsensusSynthesizer
	debateTimeout time.Duration
	logger        *logrus.Logger
}

// NewOrchestrator builds an orchestrator from explicit configuration.
// It fails with a ConfigurationError when no personas or no credentials
// are configured.
func NewOrchestrator(cfg *config.Config, client clients.InferenceClient, debaters []personas.Persona) (*Orchestrator, error) {
	if len(cfg.GeminiAPIKeys) == 0 {
		return nil, &ConfigurationError{Message: "at least one API credential is required"}
	}
	if len(debaters) == 0 {
		return nil, &ConfigurationError{Message: "at least one agent persona is required"}
	}

	debateAgents := make([]*agents.Agent, 0, len(debaters))
	for _, persona := range debaters {
		debateAgents = append(debateAgents, agents.NewAgent(persona, client, cfg.Agent))
	}

	logger.Log.WithFields(map[string]interface{}{
		"agents":      len(debateAgents),
		"credentials": len(cfg.GeminiAPIKeys),
	}).Info("Debate orchestrator initialized")

	return &Orchestrator{
		agents:        debateAgents,
		consensus:     agents.NewConsensusSynthesizer(client, cfg.Agent),
		debateTimeout: cfg.DebateTimeout,
		logger:        logger.Log,
	}, nil
}

// AnalyzeProblem runs the debate protocol over a problem image. With
// enableDebate false it takes the single-agent fast path, trading accuracy
// for turnaround time.
func (o *Orchestrator) AnalyzeProblem(ctx context.Context, image []byte, enableDebate bool) Outcome {
	if o.debateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.debateTimeout)
		defer cancel()
	}

	if !enableDebate {
		return o.singleAgentMode(ctx, image)
	}

	correlationID := getCorrelationID(ctx)
	o.logger.WithFields(map[string]interface{}{
		"correlation_id": correlationID,
		"agents":         len(o.agents),
	}).Info("Initiating multi-agent debate")

	// Round 1: parallel independent analysis
	breakdown := o.runParallelAnalysis(ctx, image)
	successes := successfulOnly(breakdown)

	if len(successes) == 0 {
		o.logger.WithField("correlation_id", correlationID).Error("All agents failed")
		return Outcome{
			Mode:           ModeSingleAgent,
			Answer:         extract.UnknownAnswer,
			Confidence:     0,
			Reasoning:      allFailedReasoning,
			AgentsUsed:     0,
			Success:        false,
			AgentBreakdown: breakdown,
			Error:          "all agents failed",
		}
	}

	o.logger.WithFields(map[string]interface{}{
		"correlation_id": correlationID,
		"responded":      len(successes),
		"configured":     len(o.agents),
	}).Info("Round 1 complete")

	votes := Tally(successes)
	if len(votes) == 1 {
		return o.handleUnanimous(successes, breakdown, votes, correlationID)
	}

	o.logger.WithFields(map[string]interface{}{
		"correlation_id": correlationID,
		"votes":          votes,
	}).Info("Agents disagree, running consensus round")

	return o.handleDisagreement(ctx, successes, breakdown, votes, image, correlationID)
}

// singleAgentMode runs only the first configured agent
func (o *Orchestrator) singleAgentMode(ctx context.Context, image []byte) Outcome {
	result := o.agents[0].Analyze(ctx, image, "")

	agentsUsed := 0
	if result.Success {
		agentsUsed = 1
	}

	return Outcome{
		Mode:           ModeSingleAgent,
		Answer:         result.Answer,
		Confidence:     result.Confidence,
		Reasoning:      result.Reasoning,
		AgentsUsed:     agentsUsed,
		Success:        result.Success,
		AgentBreakdown: []agents.AgentResponse{result},
		Error:          result.Error,
	}
}

// runParallelAnalysis fans out to every agent concurrently. Each slot in
// the returned slice matches the configured agent order, so the result is
// reproducible regardless of completion order. A slow or failing agent
// cannot delay its siblings beyond its own retry budget.
func (o *Orchestrator) runParallelAnalysis(ctx context.Context, image []byte) []agents.AgentResponse {
	results := make([]agents.AgentResponse, len(o.agents))

	var wg sync.WaitGroup
	for i, agent := range o.agents {
		wg.Add(1)
		go func(i int, agent *agents.Agent) {
			defer wg.Done()
			results[i] = agent.Analyze(ctx, image, "")
		}(i, agent)
	}
	wg.Wait()

	return results
}

// handleUnanimous short-circuits the debate when all successful agents
// agree, using the highest-confidence reasoning as the canonical
// explanation. Confidence ties resolve to the earliest response.
func (o *Orchestrator) handleUnanimous(successes, breakdown []agents.AgentResponse, votes VoteTally, correlationID string) Outcome {
	best := successes[0]
	for _, response := range successes[1:] {
		if response.Confidence > best.Confidence {
			best = response
		}
	}

	o.logger.WithFields(map[string]interface{}{
		"correlation_id": correlationID,
		"answer":         best.Answer,
		"confidence":     best.Confidence,
	}).Info("Unanimous agreement reached")

	return Outcome{
		Mode:           ModeUnanimous,
		Answer:         best.Answer,
		Confidence:     best.Confidence,
		Reasoning:      best.Reasoning,
		AgentsUsed:     len(successes),
		Success:        true,
		Votes:          votes,
		AgentBreakdown: breakdown,
	}
}

// handleDisagreement runs the consensus round and falls back to a majority
// vote if synthesis fails
func (o *Orchestrator) handleDisagreement(ctx context.Context, successes, breakdown []agents.AgentResponse, votes VoteTally, image []byte, correlationID string) Outcome {
	consensusResult := o.consensus.Synthesize(ctx, successes, image)

	if consensusResult.Success {
		o.logger.WithFields(map[string]interface{}{
			"correlation_id": correlationID,
			"answer":         consensusResult.Answer,
			"confidence":     consensusResult.Confidence,
		}).Info("Consensus reached")

		return Outcome{
			Mode:              ModeConsensus,
			Answer:            consensusResult.Answer,
			Confidence:        consensusResult.Confidence,
			Reasoning:         consensusResult.Reasoning,
			AgentsUsed:        len(successes) + 1,
			Success:           true,
			Votes:             votes,
			AgentBreakdown:    breakdown,
			ConsensusAnalysis: &consensusResult,
		}
	}

	o.logger.WithFields(map[string]interface{}{
		"correlation_id": correlationID,
		"error":          consensusResult.Error,
	}).Warn("Consensus agent failed, using majority vote")

	return Outcome{
		Mode:           ModeMajorityVote,
		Answer:         Majority(votes, successes),
		Confidence:     AverageConfidence(successes),
		Reasoning:      majorityFallbackReasoning,
		AgentsUsed:     len(successes),
		Success:        true,
		Votes:          votes,
		AgentBreakdown: breakdown,
	}
}

// successfulOnly filters to successful responses, preserving order
func successfulOnly(responses []agents.AgentResponse) []agents.AgentResponse {
	successes := make([]agents.AgentResponse, 0, len(responses))
	for _, response := range responses {
		if response.Success {
			successes = append(successes, response)
		}
	}
	return successes
}

// getCorrelationID extracts correlation ID from context
func getCorrelationID(ctx context.Context) string {
	if id := ctx.Value("correlation_id"); id != nil {
		if correlationID, ok := id.(string); ok {
			return correlationID
		}
	}
	return ""
}
