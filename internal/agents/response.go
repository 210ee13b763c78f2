package agents

// AgentResponse is the structured outcome of a single analysis attempt.
// It is a value object: constructed once, never mutated.
//
// A failed response always carries Answer "Unknown" and Confidence 0.
type AgentResponse struct {
	AgentName  string `json:"agent"`
	Answer     string `json:"answer"`
	Confidence int    `json:"confidence"`
	Reasoning  string `json:"reasoning"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}
