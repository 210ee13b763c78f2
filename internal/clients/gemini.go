package clients

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"chem-solver/internal/config"
	"chem-solver/internal/logger"

	"github.com/sirupsen/logrus"
)

// InferenceClient defines the interface for the vision-capable inference service
type InferenceClient interface {
	GenerateVision(ctx context.Context, agentName, prompt string, image []byte) (string, error)
}

// GeminiClient handles communication with the Gemini API. It makes exactly
// one attempt per call; retry policy belongs to the caller.
type GeminiClient struct {
	apiKeys         []string
	keyIndex        atomic.Uint64
	model           string
	baseURL         string
	temperature     float64
	maxOutputTokens int
	httpClient      *http.Client
	logger          *logrus.Logger
}

// GeminiRequest represents a generateContent request payload
type GeminiRequest struct {
	Contents         []GeminiContent  `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

// GeminiContent represents a content block in the request
type GeminiContent struct {
	Parts []GeminiPart `json:"parts"`
}

// GeminiPart represents a single part (text or inline image data)
type GeminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *GeminiInlineData `json:"inline_data,omitempty"`
}

// GeminiInlineData carries a base64-encoded image payload
type GeminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// GenerationConfig holds generation parameters
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// GeminiResponse represents a generateContent response
type GeminiResponse struct {
	Candidates []GeminiCandidate `json:"candidates"`
}

// GeminiCandidate represents a single generated candidate
type GeminiCandidate struct {
	Content GeminiContentResponse `json:"content"`
}

// GeminiContentResponse represents the content of a candidate
type GeminiContentResponse struct {
	Parts []GeminiPartResponse `json:"parts"`
	Role  string               `json:"role"`
}

// GeminiPartResponse represents a text part of a candidate
type GeminiPartResponse struct {
	Text string `json:"text"`
}

// NewGeminiClient creates a new Gemini API client
func NewGeminiClient(cfg *config.Config) *GeminiClient {
	return &GeminiClient{
		apiKeys:         cfg.GeminiAPIKeys,
		model:           cfg.Agent.Model,
		baseURL:         cfg.GeminiBaseURL,
		temperature:     cfg.Agent.Temperature,
		maxOutputTokens: cfg.Agent.MaxOutputTokens,
		httpClient: &http.Client{
			Timeout: cfg.Agent.RequestTimeout,
		},
		logger: logger.Log,
	}
}

// nextKey rotates through API keys for load balancing and rate limit
// avoidance. Safe under concurrent use; selection never blocks.
func (c *GeminiClient) nextKey() string {
	idx := c.keyIndex.Add(1) - 1
	return c.apiKeys[idx%uint64(len(c.apiKeys))]
}

// GenerateVision makes a single request to the Gemini API with a prompt and
// an optional image payload
func (c *GeminiClient) GenerateVision(ctx context.Context, agentName, prompt string, image []byte) (string, error) {
	start := time.Now()

	request := c.buildGeminiRequest(prompt, image)

	correlationID := getCorrelationIDFromContext(ctx)
	c.logger.WithFields(map[string]interface{}{
		"agent":          agentName,
		"correlation_id": correlationID,
		"model":          c.model,
		"prompt_length":  len(prompt),
		"has_image":      len(image) > 0,
	}).Info("Making Gemini API call")

	requestBody, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.nextKey())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", classifyTransportError(ctx, err)
	}
	defer response.Body.Close()

	responseText, err := c.parseGeminiResponse(response)
	if err != nil {
		return "", err
	}

	duration := time.Since(start)
	c.logger.WithFields(map[string]interface{}{
		"agent":           agentName,
		"correlation_id":  correlationID,
		"duration_ms":     duration.Milliseconds(),
		"response_length": len(responseText),
	}).Info("Gemini API response received")

	return responseText, nil
}

// buildGeminiRequest constructs the request payload for the Gemini API
func (c *GeminiClient) buildGeminiRequest(prompt string, image []byte) GeminiRequest {
	parts := []GeminiPart{{Text: prompt}}

	if len(image) > 0 {
		parts = append(parts, GeminiPart{
			InlineData: &GeminiInlineData{
				MimeType: "image/jpeg",
				Data:     base64.StdEncoding.EncodeToString(image),
			},
		})
	}

	return GeminiRequest{
		Contents: []GeminiContent{{Parts: parts}},
		GenerationConfig: GenerationConfig{
			Temperature:     c.temperature,
			MaxOutputTokens: c.maxOutputTokens,
		},
	}
}

// parseGeminiResponse parses the response from the Gemini API
func (c *GeminiClient) parseGeminiResponse(response *http.Response) (string, error) {
	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return "", &TransportError{Cause: fmt.Errorf("failed to read response body: %w", err)}
	}

	if response.StatusCode != http.StatusOK {
		return "", &ServiceError{
			StatusCode: response.StatusCode,
			Message:    truncateBody(string(responseBody), 500),
		}
	}

	var geminiResp GeminiResponse
	if err := json.Unmarshal(responseBody, &geminiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response content")
	}

	responseText := geminiResp.Candidates[0].Content.Parts[0].Text
	if responseText == "" {
		return "", fmt.Errorf("empty response text")
	}

	return responseText, nil
}

// classifyTransportError converts low-level HTTP failures into the typed
// error taxonomy
func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Cause: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Cause: err}
	}

	return &TransportError{Cause: err}
}

// truncateBody truncates an error body for logging and error messages
func truncateBody(body string, maxLength int) string {
	if len(body) <= maxLength {
		return body
	}
	return body[:maxLength] + "..."
}

// getCorrelationIDFromContext extracts correlation ID from context
func getCorrelationIDFromContext(ctx context.Context) string {
	if id := ctx.Value("correlation_id"); id != nil {
		if correlationID, ok := id.(string); ok {
			return correlationID
		}
	}
	return ""
}
