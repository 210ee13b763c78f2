package services

import (
	"encoding/json"
	"fmt"
	"time"

	"chem-solver/internal/agents"
	"chem-solver/internal/config"
	"chem-solver/internal/debate"
	"chem-solver/internal/logger"
	"chem-solver/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SolveServiceInterface defines the interface for solve job operations
type SolveServiceInterface interface {
	CreateSolveJob(req *SolveJobRequest, correlationID string) (*SolveJobResponse, error)
	GetJobStatus(jobID uuid.UUID, correlationID string) (*JobStatusResponse, error)
	ListDebateResults(page, perPage int) ([]*DebateResultResponse, int64, error)
	GetDebateResult(debateID uuid.UUID, correlationID string) (*DebateResultResponse, error)
	UpdateJobStatus(jobID uuid.UUID, status string, errorMessage string) error
	SaveOutcome(jobID uuid.UUID, outcome debate.Outcome, correlationID string) error
}

// KafkaServiceInterface defines the interface for Kafka operations
type KafkaServiceInterface interface {
	PublishSolveJob(message interface{}) error
	Close() error
}

type SolveService struct {
	db           *gorm.DB
	config       *config.Config
	kafkaService KafkaServiceInterface
}

func NewSolveService(db *gorm.DB, cfg *config.Config, kafkaService KafkaServiceInterface) *SolveService {
	return &SolveService{
		db:           db,
		config:       cfg,
		kafkaService: kafkaService,
	}
}

// SolveJobRequest represents the request to start a debate
type SolveJobRequest struct {
	ProblemID    uuid.UUID `json:"problem_id" binding:"required"`
	EnableDebate bool      `json:"enable_debate"`
}

// SolveJobResponse represents the job creation response
type SolveJobResponse struct {
	JobID        uuid.UUID `json:"job_id"`
	ProblemID    uuid.UUID `json:"problem_id"`
	EnableDebate bool      `json:"enable_debate"`
	Status       string    `json:"status"`
	Message      string    `json:"message"`
}

// JobStatusResponse represents the job status polling response
type JobStatusResponse struct {
	JobID        uuid.UUID  `json:"job_id"`
	ProblemID    uuid.UUID  `json:"problem_id"`
	Status       string     `json:"status"` // pending, processing, completed, failed
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
}

// AgentOpinionResponse represents a single agent's opinion in API responses
type AgentOpinionResponse struct {
	AgentName    string  `json:"agent_name"`
	Answer       string  `json:"answer"`
	Confidence   int     `json:"confidence"`
	Success      bool    `json:"success"`
	IsConsensus  bool    `json:"is_consensus"`
	ErrorMessage *string `json:"error_message,omitempty"`
}

// DebateResultResponse represents complete debate results
type DebateResultResponse struct {
	ID           uuid.UUID              `json:"id"`
	JobID        uuid.UUID              `json:"job_id"`
	ProblemID    uuid.UUID              `json:"problem_id"`
	Status       string                 `json:"status"`
	Mode         *string                `json:"mode,omitempty"`
	Answer       *string                `json:"answer,omitempty"`
	Confidence   *int                   `json:"confidence,omitempty"`
	Reasoning    *string                `json:"reasoning,omitempty"`
	AgentsUsed   int                    `json:"agents_used"`
	Votes        map[string]int         `json:"votes,omitempty"`
	Opinions     []AgentOpinionResponse `json:"opinions"`
	CreatedAt    time.Time              `json:"created_at"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
	ErrorMessage *string                `json:"error_message,omitempty"`
}

// SolveJobMessage represents the message sent to Kafka
type SolveJobMessage struct {
	JobID        uuid.UUID `json:"job_id"`
	ProblemID    uuid.UUID `json:"problem_id"`
	EnableDebate bool      `json:"enable_debate"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateSolveJob creates a new solve job and publishes it to Kafka
func (s *SolveService) CreateSolveJob(req *SolveJobRequest, correlationID string) (*SolveJobResponse, error) {
	log := logger.WithCorrelationID(correlationID)

	// Verify problem exists
	var problem models.Problem
	if err := s.db.Where("id = ?", req.ProblemID).First(&problem).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			log.WithField("problem_id", req.ProblemID).Error("Problem not found for solving")
			return nil, fmt.Errorf("problem %s not found", req.ProblemID)
		}
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"problem_id": req.ProblemID,
			"operation":  "find_problem_for_solving",
		})
		return nil, fmt.Errorf("failed to find problem: %w", err)
	}

	// Create debate record
	record := &models.DebateRecord{
		ID:           uuid.New(),
		ProblemID:    req.ProblemID,
		JobID:        uuid.New(),
		Status:       "pending",
		EnableDebate: req.EnableDebate,
		CreatedAt:    time.Now(),
	}
	if err := s.db.Create(record).Error; err != nil {
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"problem_id": req.ProblemID,
			"operation":  "create_debate_record",
		})
		return nil, fmt.Errorf("failed to create debate record: %w", err)
	}

	// Publish job to Kafka
	message := SolveJobMessage{
		JobID:        record.JobID,
		ProblemID:    req.ProblemID,
		EnableDebate: req.EnableDebate,
		CreatedAt:    time.Now(),
	}
	if err := s.kafkaService.PublishSolveJob(message); err != nil {
		s.UpdateJobStatus(record.JobID, "failed", "Failed to queue solve job")
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"job_id":    record.JobID,
			"operation": "publish_solve_job",
		})
		return nil, fmt.Errorf("failed to queue solve job: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"job_id":        record.JobID,
		"problem_id":    req.ProblemID,
		"enable_debate": req.EnableDebate,
	}).Info("Solve job created")

	return &SolveJobResponse{
		JobID:        record.JobID,
		ProblemID:    req.ProblemID,
		EnableDebate: req.EnableDebate,
		Status:       "pending",
		Message:      "Solve job queued",
	}, nil
}

// GetJobStatus returns the status of a solve job
func (s *SolveService) GetJobStatus(jobID uuid.UUID, correlationID string) (*JobStatusResponse, error) {
	var record models.DebateRecord
	if err := s.db.Where("job_id = ?", jobID).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("job %s not found", jobID)
		}
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"job_id":    jobID,
			"operation": "find_job_status",
		})
		return nil, fmt.Errorf("failed to find job: %w", err)
	}

	return &JobStatusResponse{
		JobID:        record.JobID,
		ProblemID:    record.ProblemID,
		Status:       record.Status,
		CreatedAt:    record.CreatedAt,
		CompletedAt:  record.CompletedAt,
		ErrorMessage: record.ErrorMessage,
	}, nil
}

// UpdateJobStatus updates the status of a solve job
func (s *SolveService) UpdateJobStatus(jobID uuid.UUID, status string, errorMessage string) error {
	updates := map[string]interface{}{"status": status}
	if errorMessage != "" {
		updates["error_message"] = errorMessage
	}
	if status == "completed" || status == "failed" {
		now := time.Now()
		updates["completed_at"] = &now
	}

	result := s.db.Model(&models.DebateRecord{}).Where("job_id = ?", jobID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update job status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("job %s not found", jobID)
	}
	return nil
}

// SaveOutcome persists a debate outcome and its per-agent breakdown
func (s *SolveService) SaveOutcome(jobID uuid.UUID, outcome debate.Outcome, correlationID string) error {
	var record models.DebateRecord
	if err := s.db.Where("job_id = ?", jobID).First(&record).Error; err != nil {
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"job_id":    jobID,
			"operation": "find_debate_record",
		})
		return fmt.Errorf("failed to find debate record: %w", err)
	}

	mode := string(outcome.Mode)
	record.Mode = &mode
	record.Answer = &outcome.Answer
	record.Confidence = &outcome.Confidence
	record.Reasoning = &outcome.Reasoning
	record.AgentsUsed = outcome.AgentsUsed
	now := time.Now()
	record.CompletedAt = &now
	if outcome.Success {
		record.Status = "completed"
	} else {
		record.Status = "failed"
		if outcome.Error != "" {
			record.ErrorMessage = &outcome.Error
		}
	}

	if len(outcome.Votes) > 0 {
		votesJSON, err := json.Marshal(outcome.Votes)
		if err != nil {
			return fmt.Errorf("failed to serialize votes: %w", err)
		}
		record.Votes = votesJSON
	}

	if err := s.db.Save(&record).Error; err != nil {
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"job_id":    jobID,
			"operation": "save_debate_record",
		})
		return fmt.Errorf("failed to save debate record: %w", err)
	}

	s.saveOpinions(record.ID, outcome, correlationID)

	logger.WithCorrelationID(correlationID).WithFields(map[string]interface{}{
		"job_id":      jobID,
		"mode":        outcome.Mode,
		"answer":      outcome.Answer,
		"agents_used": outcome.AgentsUsed,
	}).Info("Debate outcome saved")

	return nil
}

// saveOpinions persists the per-agent breakdown and any consensus analysis.
// Individual failures are logged and skipped so the outcome itself survives.
func (s *SolveService) saveOpinions(debateID uuid.UUID, outcome debate.Outcome, correlationID string) {
	persist := func(response agents.AgentResponse, isConsensus bool) {
		opinion := &models.AgentOpinion{
			ID:          uuid.New(),
			DebateID:    debateID,
			AgentName:   response.AgentName,
			Answer:      response.Answer,
			Confidence:  response.Confidence,
			Reasoning:   response.Reasoning,
			Success:     response.Success,
			IsConsensus: isConsensus,
			RecordedAt:  time.Now(),
		}
		if response.Error != "" {
			opinion.ErrorMessage = &response.Error
		}
		if err := s.db.Create(opinion).Error; err != nil {
			logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
				"debate_id": debateID,
				"agent":     response.AgentName,
				"operation": "save_agent_opinion",
			})
		}
	}

	for _, response := range outcome.AgentBreakdown {
		persist(response, false)
	}
	if outcome.ConsensusAnalysis != nil {
		persist(*outcome.ConsensusAnalysis, true)
	}
}

// ListDebateResults returns a paginated list of debate results
func (s *SolveService) ListDebateResults(page, perPage int) ([]*DebateResultResponse, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	var total int64
	if err := s.db.Model(&models.DebateRecord{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count debate records: %w", err)
	}

	var records []models.DebateRecord
	offset := (page - 1) * perPage
	if err := s.db.Preload("Opinions").Order("created_at DESC").Offset(offset).Limit(perPage).Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list debate records: %w", err)
	}

	responses := make([]*DebateResultResponse, 0, len(records))
	for i := range records {
		response, err := s.toDebateResultResponse(&records[i])
		if err != nil {
			return nil, 0, err
		}
		responses = append(responses, response)
	}

	return responses, total, nil
}

// GetDebateResult returns a single debate result by ID
func (s *SolveService) GetDebateResult(debateID uuid.UUID, correlationID string) (*DebateResultResponse, error) {
	var record models.DebateRecord
	if err := s.db.Preload("Opinions").Where("id = ?", debateID).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("debate result %s not found", debateID)
		}
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"debate_id": debateID,
			"operation": "find_debate_result",
		})
		return nil, fmt.Errorf("failed to find debate result: %w", err)
	}

	return s.toDebateResultResponse(&record)
}

// toDebateResultResponse converts a debate record to its API representation
func (s *SolveService) toDebateResultResponse(record *models.DebateRecord) (*DebateResultResponse, error) {
	response := &DebateResultResponse{
		ID:           record.ID,
		JobID:        record.JobID,
		ProblemID:    record.ProblemID,
		Status:       record.Status,
		Mode:         record.Mode,
		Answer:       record.Answer,
		Confidence:   record.Confidence,
		Reasoning:    record.Reasoning,
		AgentsUsed:   record.AgentsUsed,
		Opinions:     make([]AgentOpinionResponse, 0, len(record.Opinions)),
		CreatedAt:    record.CreatedAt,
		CompletedAt:  record.CompletedAt,
		ErrorMessage: record.ErrorMessage,
	}

	if len(record.Votes) > 0 {
		votes := make(map[string]int)
		if err := json.Unmarshal(record.Votes, &votes); err != nil {
			return nil, fmt.Errorf("failed to parse stored votes: %w", err)
		}
		response.Votes = votes
	}

	for _, opinion := range record.Opinions {
		response.Opinions = append(response.Opinions, AgentOpinionResponse{
			AgentName:    opinion.AgentName,
			Answer:       opinion.Answer,
			Confidence:   opinion.Confidence,
			Success:      opinion.Success,
			IsConsensus:  opinion.IsConsensus,
			ErrorMessage: opinion.ErrorMessage,
		})
	}

	return response, nil
}
