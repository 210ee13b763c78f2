package debate

import (
	"testing"

	"chem-solver/internal/agents"

	"github.com/stretchr/testify/assert"
)

func response(name, answer string, confidence int, success bool) agents.AgentResponse {
	return agents.AgentResponse{
		AgentName:  name,
		Answer:     answer,
		Confidence: confidence,
		Success:    success,
	}
}

func TestTally_CountsOnlySuccesses(t *testing.T) {
	responses := []agents.AgentResponse{
		response("agent-1", "A", 90, true),
		response("agent-2", "A", 85, true),
		response("agent-3", "Unknown", 0, false),
		response("agent-4", "B", 70, true),
	}

	votes := Tally(responses)

	assert.Equal(t, VoteTally{"A": 2, "B": 1}, votes)
}

func TestTally_EmptyInput(t *testing.T) {
	votes := Tally(nil)
	assert.Empty(t, votes)
}

func TestMajority_ClearWinner(t *testing.T) {
	responses := []agents.AgentResponse{
		response("agent-1", "A", 90, true),
		response("agent-2", "A", 85, true),
		response("agent-3", "B", 70, true),
		response("agent-4", "A", 95, true),
	}

	winner := Majority(Tally(responses), responses)

	assert.Equal(t, "A", winner)
}

func TestMajority_TieBrokenByCumulativeConfidence(t *testing.T) {
	responses := []agents.AgentResponse{
		response("agent-1", "A", 60, true),
		response("agent-2", "B", 95, true),
		response("agent-3", "A", 60, true),
		response("agent-4", "B", 90, true),
	}

	// 2 votes each; B carries 185 cumulative confidence vs A's 120.
	winner := Majority(Tally(responses), responses)

	assert.Equal(t, "B", winner)
}

func TestMajority_FullTieBrokenByFirstSeen(t *testing.T) {
	responses := []agents.AgentResponse{
		response("agent-1", "C", 80, true),
		response("agent-2", "D", 80, true),
		response("agent-3", "C", 80, true),
		response("agent-4", "D", 80, true),
	}

	// Votes and confidence both tie; C appeared first.
	winner := Majority(Tally(responses), responses)

	assert.Equal(t, "C", winner)
}

func TestMajority_IgnoresFailedResponses(t *testing.T) {
	responses := []agents.AgentResponse{
		response("agent-1", "A", 90, true),
		response("agent-2", "B", 100, false),
		response("agent-3", "B", 100, false),
	}

	winner := Majority(Tally(responses), responses)

	assert.Equal(t, "A", winner)
}

func TestAverageConfidence(t *testing.T) {
	tests := []struct {
		name      string
		responses []agents.AgentResponse
		expected  int
	}{
		{
			name: "integer mean over successes",
			responses: []agents.AgentResponse{
				response("agent-1", "A", 90, true),
				response("agent-2", "A", 85, true),
				response("agent-3", "B", 70, true),
				response("agent-4", "A", 95, true),
			},
			expected: 85,
		},
		{
			name: "failures excluded",
			responses: []agents.AgentResponse{
				response("agent-1", "A", 80, true),
				response("agent-2", "Unknown", 0, false),
			},
			expected: 80,
		},
		{
			name:      "empty set yields zero",
			responses: nil,
			expected:  0,
		},
		{
			name: "all failed yields zero",
			responses: []agents.AgentResponse{
				response("agent-1", "Unknown", 0, false),
			},
			expected: 0,
		},
		{
			name: "truncating division",
			responses: []agents.AgentResponse{
				response("agent-1", "A", 80, true),
				response("agent-2", "A", 85, true),
			},
			expected: 82,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AverageConfidence(tt.responses))
		})
	}
}
