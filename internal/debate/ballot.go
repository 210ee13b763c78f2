package debate

import (
	"chem-solver/internal/agents"
)

// VoteTally maps answer labels to vote counts. Derived from a set of
// responses, never stored.
type VoteTally map[string]int

// Tally counts votes per answer label over successful responses only
func Tally(responses []agents.AgentResponse) VoteTally {
	votes := make(VoteTally)
	for _, response := range responses {
		if response.Success {
			votes[response.Answer]++
		}
	}
	return votes
}

// Majority returns the answer label with the highest vote count. Ties are
// broken deterministically: highest cumulative confidence among the tied
// labels wins, and if that also ties, the label whose first vote appears
// earliest in the response order wins.
func Majority(tally VoteTally, responses []agents.AgentResponse) string {
	cumulative := make(map[string]int)
	firstSeen := make(map[string]int)

	for i, response := range responses {
		if !response.Success {
			continue
		}
		cumulative[response.Answer] += response.Confidence
		if _, ok := firstSeen[response.Answer]; !ok {
			firstSeen[response.Answer] = i
		}
	}

	var winner string
	for label, count := range tally {
		if winner == "" {
			winner = label
			continue
		}
		if count != tally[winner] {
			if count > tally[winner] {
				winner = label
			}
			continue
		}
		if cumulative[label] != cumulative[winner] {
			if cumulative[label] > cumulative[winner] {
				winner = label
			}
			continue
		}
		if firstSeen[label] < firstSeen[winner] {
			winner = label
		}
	}

	return winner
}

// AverageConfidence returns the integer mean confidence over successful
// responses. Returns 0 for an empty or all-failed set.
func AverageConfidence(responses []agents.AgentResponse) int {
	sum := 0
	count := 0
	for _, response := range responses {
		if response.Success {
			sum += response.Confidence
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / count
}
