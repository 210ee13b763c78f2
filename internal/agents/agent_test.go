package agents

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"chem-solver/internal/config"
	"chem-solver/internal/extract"
	"chem-solver/internal/logger"
	"chem-solver/internal/personas"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestMain(m *testing.M) {
	logger.Log.SetOutput(io.Discard)
	m.Run()
}

// MockInferenceClient mocks the vision inference client
type MockInferenceClient struct {
	mock.Mock
}

func (m *MockInferenceClient) GenerateVision(ctx context.Context, agentName, prompt string, image []byte) (string, error) {
	args := m.Called(ctx, agentName, prompt, image)
	return args.String(0), args.Error(1)
}

func testAgentConfig() config.AgentConfig {
	return config.AgentConfig{
		RequestTimeout:  time.Second,
		MaxRetries:      3,
		RetryDelay:      time.Millisecond,
		Temperature:     0.7,
		MaxOutputTokens: 2048,
		Model:           "test-model",
	}
}

func TestNewAgent(t *testing.T) {
	client := &MockInferenceClient{}
	agent := NewAgent(personas.Systematic, client, testAgentConfig())

	assert.NotNil(t, agent)
	assert.Equal(t, "Systematic Agent", agent.Name())
}

func TestAgent_Analyze_Success(t *testing.T) {
	client := &MockInferenceClient{}
	client.On("GenerateVision", mock.Anything, "Systematic Agent", mock.Anything, mock.Anything).
		Return("Step 1: analysis\nANSWER: (B)\nCONFIDENCE: 92%", nil).Once()

	agent := NewAgent(personas.Systematic, client, testAgentConfig())
	result := agent.Analyze(context.Background(), []byte("image-bytes"), "")

	assert.True(t, result.Success)
	assert.Equal(t, "Systematic Agent", result.AgentName)
	assert.Equal(t, "B", result.Answer)
	assert.Equal(t, 92, result.Confidence)
	assert.Contains(t, result.Reasoning, "Step 1")
	assert.Empty(t, result.Error)
	client.AssertExpectations(t)
}

func TestAgent_Analyze_RetriesThenSucceeds(t *testing.T) {
	client := &MockInferenceClient{}
	client.On("GenerateVision", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("upstream hiccup")).Twice()
	client.On("GenerateVision", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("ANSWER: A\nCONFIDENCE: 75%", nil).Once()

	agent := NewAgent(personas.KeyDifference, client, testAgentConfig())
	result := agent.Analyze(context.Background(), []byte("image"), "")

	assert.True(t, result.Success)
	assert.Equal(t, "A", result.Answer)
	assert.Equal(t, 75, result.Confidence)
	client.AssertNumberOfCalls(t, "GenerateVision", 3)
}

func TestAgent_Analyze_ExhaustsRetries(t *testing.T) {
	client := &MockInferenceClient{}
	client.On("GenerateVision", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("persistent failure"))

	agent := NewAgent(personas.Mechanism, client, testAgentConfig())
	result := agent.Analyze(context.Background(), []byte("image"), "")

	assert.False(t, result.Success)
	assert.Equal(t, extract.UnknownAnswer, result.Answer)
	assert.Equal(t, 0, result.Confidence)
	assert.Contains(t, result.Error, "persistent failure")
	client.AssertNumberOfCalls(t, "GenerateVision", 3)
}

func TestAgent_Analyze_StopsOnExpiredContext(t *testing.T) {
	client := &MockInferenceClient{}
	client.On("GenerateVision", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", context.DeadlineExceeded)

	agent := NewAgent(personas.DevilsAdvocate, client, testAgentConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := agent.Analyze(ctx, []byte("image"), "")

	// An expired deadline abandons the analysis without spending the
	// remaining retry budget.
	assert.False(t, result.Success)
	assert.Equal(t, extract.UnknownAnswer, result.Answer)
	assert.Equal(t, 0, result.Confidence)
	client.AssertNumberOfCalls(t, "GenerateVision", 1)
}

func TestAgent_Analyze_UnparsableOutputStillSucceeds(t *testing.T) {
	client := &MockInferenceClient{}
	client.On("GenerateVision", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("rambling prose with no structured conclusion", nil).Once()

	agent := NewAgent(personas.Systematic, client, testAgentConfig())
	result := agent.Analyze(context.Background(), []byte("image"), "")

	// A response the extractor cannot parse is still a successful call;
	// it just carries the Unknown label and the default confidence.
	assert.True(t, result.Success)
	assert.Equal(t, extract.UnknownAnswer, result.Answer)
	assert.Equal(t, extract.DefaultConfidence, result.Confidence)
}

func TestAgent_Analyze_ExtraContextInPrompt(t *testing.T) {
	var capturedPrompt string
	client := &MockInferenceClient{}
	client.On("GenerateVision", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			capturedPrompt = args.String(2)
		}).
		Return("ANSWER: C", nil).Once()

	agent := NewAgent(personas.Systematic, client, testAgentConfig())
	agent.Analyze(context.Background(), []byte("image"), "prior round digest")

	assert.Contains(t, capturedPrompt, personas.Systematic.Instructions)
	assert.Contains(t, capturedPrompt, "ADDITIONAL CONTEXT:")
	assert.Contains(t, capturedPrompt, "prior round digest")
}

func TestAgent_Analyze_NoExtraContext(t *testing.T) {
	var capturedPrompt string
	client := &MockInferenceClient{}
	client.On("GenerateVision", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			capturedPrompt = args.String(2)
		}).
		Return("ANSWER: C", nil).Once()

	agent := NewAgent(personas.Systematic, client, testAgentConfig())
	agent.Analyze(context.Background(), []byte("image"), "")

	assert.Equal(t, personas.Systematic.Instructions, capturedPrompt)
	assert.NotContains(t, capturedPrompt, "ADDITIONAL CONTEXT")
}

func TestErrorDetail(t *testing.T) {
	assert.Equal(t, "max retries exceeded", errorDetail(nil))
	assert.Equal(t, "boom", errorDetail(errors.New("boom")))
}
