package agents

import (
	"context"
	"fmt"
	"time"

	"chem-solver/internal/clients"
	"chem-solver/internal/config"
	"chem-solver/internal/extract"
	"chem-solver/internal/logger"
	"chem-solver/internal/personas"

	"github.com/sirupsen/logrus"
)

// Agent binds a persona to the inference client and wraps a single analysis
// call with bounded retry and exponential backoff. Analyze never returns an
// error: every failure is captured in the returned AgentResponse, so a
// failing agent can never take down its siblings.
type Agent struct {
	persona   personas.Persona
	client    clients.InferenceClient
	cfg       config.AgentConfig
	extractor *extract.Extractor
	logger    *logrus.Logger
}

// NewAgent creates an agent for the given persona
func NewAgent(persona personas.Persona, client clients.InferenceClient, cfg config.AgentConfig) *Agent {
	return &Agent{
		persona:   persona,
		client:    client,
		cfg:       cfg,
		extractor: extract.NewExtractor(),
		logger:    logger.Log,
	}
}

// Name returns the agent's persona name
func (a *Agent) Name() string {
	return a.persona.Name
}

// Analyze runs one analysis of the problem image from this agent's
// perspective, retrying up to cfg.MaxRetries times with exponential backoff.
// extraContext, when non-empty, is appended to the prompt as a delimited
// section (used by the consensus round).
func (a *Agent) Analyze(ctx context.Context, image []byte, extraContext string) AgentResponse {
	start := time.Now()
	correlationID := getCorrelationID(ctx)
	prompt := a.buildPrompt(extraContext)

	a.logger.WithFields(map[string]interface{}{
		"agent":          a.persona.Name,
		"correlation_id": correlationID,
		"image_bytes":    len(image),
		"has_context":    extraContext != "",
	}).Info("Agent analysis started")

	var lastErr error
	for attempt := 0; attempt < a.cfg.MaxRetries; attempt++ {
		text, err := a.client.GenerateVision(ctx, a.persona.Name, prompt, image)
		if err == nil {
			answer, confidence := a.extractor.Extract(text)

			a.logger.WithFields(map[string]interface{}{
				"agent":          a.persona.Name,
				"correlation_id": correlationID,
				"answer":         answer,
				"confidence":     confidence,
				"attempt":        attempt + 1,
				"duration_ms":    time.Since(start).Milliseconds(),
			}).Info("Agent analysis complete")

			return AgentResponse{
				AgentName:  a.persona.Name,
				Answer:     answer,
				Confidence: confidence,
				Reasoning:  text,
				Success:    true,
			}
		}

		lastErr = err
		a.logger.WithFields(map[string]interface{}{
			"agent":          a.persona.Name,
			"correlation_id": correlationID,
			"attempt":        attempt + 1,
			"max_attempts":   a.cfg.MaxRetries,
			"error":          err.Error(),
		}).Warn("Agent attempt failed")

		// An elapsed overall deadline means the call was abandoned: report
		// the failure without burning the remaining retry budget.
		if ctx.Err() != nil {
			break
		}

		if attempt < a.cfg.MaxRetries-1 {
			if err := a.waitBackoff(ctx, attempt); err != nil {
				lastErr = err
				break
			}
		}
	}

	a.logger.WithFields(map[string]interface{}{
		"agent":          a.persona.Name,
		"correlation_id": correlationID,
		"duration_ms":    time.Since(start).Milliseconds(),
	}).Error("Agent failed after all retries")

	return AgentResponse{
		AgentName:  a.persona.Name,
		Answer:     extract.UnknownAnswer,
		Confidence: 0,
		Success:    false,
		Error:      errorDetail(lastErr),
	}
}

// waitBackoff sleeps for RetryDelay * 2^attempt, aborting early if the
// context is cancelled
func (a *Agent) waitBackoff(ctx context.Context, attempt int) error {
	wait := a.cfg.RetryDelay * time.Duration(1<<uint(attempt))

	a.logger.WithFields(map[string]interface{}{
		"agent":        a.persona.Name,
		"attempt":      attempt + 1,
		"wait_seconds": wait.Seconds(),
	}).Warn("Backing off before retry")

	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// buildPrompt combines the persona instructions with optional extra context
func (a *Agent) buildPrompt(extraContext string) string {
	if extraContext == "" {
		return a.persona.Instructions
	}
	return fmt.Sprintf("%s\n\nADDITIONAL CONTEXT:\n%s", a.persona.Instructions, extraContext)
}

// errorDetail formats the terminal error for the failed response
func errorDetail(err error) string {
	if err == nil {
		return "max retries exceeded"
	}
	return err.Error()
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
