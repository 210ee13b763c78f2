package services

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"chem-solver/internal/debate"
	"chem-solver/internal/logger"

	"github.com/google/uuid"
)

// DebateRunner abstracts the orchestrator for the worker
type DebateRunner interface {
	AnalyzeProblem(ctx context.Context, image []byte, enableDebate bool) debate.Outcome
}

// SolveRunner processes queued solve jobs: it loads the problem image,
// runs the debate orchestrator, and persists the outcome.
type SolveRunner struct {
	orchestrator DebateRunner
	problems     ProblemServiceInterface
	solves       SolveServiceInterface
}

func NewSolveRunner(orchestrator DebateRunner, problems ProblemServiceInterface, solves SolveServiceInterface) *SolveRunner {
	return &SolveRunner{
		orchestrator: orchestrator,
		problems:     problems,
		solves:       solves,
	}
}

// ProcessJob runs one solve job end to end
func (r *SolveRunner) ProcessJob(ctx context.Context, message SolveJobMessage) (retErr error) {
	correlationID := uuid.New().String()
	ctx = context.WithValue(ctx, "correlation_id", correlationID)
	log := logger.WithCorrelationID(correlationID)

	// Panic recovery for this job only
	defer func() {
		if rec := recover(); rec != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			logger.Log.WithFields(map[string]interface{}{
				"panic":          rec,
				"stack_trace":    string(buf[:n]),
				"job_id":         message.JobID,
				"correlation_id": correlationID,
			}).Error("Solve job panicked")
			r.solves.UpdateJobStatus(message.JobID, "failed", fmt.Sprintf("Job panicked: %v", rec))
			retErr = fmt.Errorf("solve job panicked: %v", rec)
		}
	}()

	log.WithFields(map[string]interface{}{
		"job_id":        message.JobID,
		"problem_id":    message.ProblemID,
		"enable_debate": message.EnableDebate,
	}).Info("Worker picked up solve job")

	if err := r.solves.UpdateJobStatus(message.JobID, "processing", ""); err != nil {
		return fmt.Errorf("failed to update job status to processing: %w", err)
	}

	problem, err := r.problems.GetProblem(message.ProblemID)
	if err != nil {
		errorMsg := fmt.Sprintf("Problem not found: %s", message.ProblemID)
		r.solves.UpdateJobStatus(message.JobID, "failed", errorMsg)
		return fmt.Errorf("%s: %w", errorMsg, err)
	}

	image, err := r.problems.ReadProblemImage(problem)
	if err != nil {
		errorMsg := fmt.Sprintf("Failed to read problem image from %s", problem.FilePath)
		r.solves.UpdateJobStatus(message.JobID, "failed", errorMsg)
		return fmt.Errorf("%s: %w", errorMsg, err)
	}

	log.WithFields(map[string]interface{}{
		"job_id":      message.JobID,
		"image_bytes": len(image),
	}).Info("Debate starting")

	startTime := time.Now()
	outcome := r.orchestrator.AnalyzeProblem(ctx, image, message.EnableDebate)
	duration := time.Since(startTime)

	log.WithFields(map[string]interface{}{
		"job_id":      message.JobID,
		"mode":        outcome.Mode,
		"answer":      outcome.Answer,
		"confidence":  outcome.Confidence,
		"agents_used": outcome.AgentsUsed,
		"success":     outcome.Success,
		"duration_ms": duration.Milliseconds(),
	}).Info("Debate finished")

	if err := r.solves.SaveOutcome(message.JobID, outcome, correlationID); err != nil {
		r.solves.UpdateJobStatus(message.JobID, "failed", "Failed to save debate outcome")
		return err
	}

	return nil
}
