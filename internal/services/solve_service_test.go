package services

import (
	"errors"
	"io"
	"testing"
	"time"

	"chem-solver/internal/agents"
	"chem-solver/internal/config"
	"chem-solver/internal/debate"
	"chem-solver/internal/logger"
	"chem-solver/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	logger.Log.SetOutput(io.Discard)
	m.Run()
}

// MockKafkaService mocks the Kafka publisher
type MockKafkaService struct {
	mock.Mock
}

func (m *MockKafkaService) PublishSolveJob(message interface{}) error {
	args := m.Called(message)
	return args.Error(0)
}

func (m *MockKafkaService) Close() error {
	args := m.Called()
	return args.Error(0)
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	return db
}

func setupTestConfig(t *testing.T) *config.Config {
	return &config.Config{
		GeminiAPIKeys: []string{"test-key"},
		StoragePath:   t.TempDir(),
		MaxFileSize:   10 * 1024 * 1024,
		AllowedExts:   []string{".jpg", ".jpeg", ".png"},
		ServerPort:    "8000",
		LogLevel:      "DEBUG",
	}
}

func createTestProblem(t *testing.T, db *gorm.DB) *models.Problem {
	problem := &models.Problem{
		ID:          uuid.New(),
		Filename:    "problem.jpg",
		FilePath:    "/tmp/problem.jpg",
		ContentHash: uuid.New().String(),
		ImageSize:   1024,
		UploadedAt:  time.Now(),
	}
	require.NoError(t, db.Create(problem).Error)
	return problem
}

func TestSolveService_CreateSolveJob(t *testing.T) {
	db := setupTestDB(t)
	problem := createTestProblem(t, db)

	kafka := &MockKafkaService{}
	kafka.On("PublishSolveJob", mock.AnythingOfType("services.SolveJobMessage")).Return(nil).Once()

	service := NewSolveService(db, setupTestConfig(t), kafka)

	response, err := service.CreateSolveJob(&SolveJobRequest{
		ProblemID:    problem.ID,
		EnableDebate: true,
	}, "test-correlation")

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, response.JobID)
	assert.Equal(t, problem.ID, response.ProblemID)
	assert.True(t, response.EnableDebate)
	assert.Equal(t, "pending", response.Status)

	var record models.DebateRecord
	require.NoError(t, db.Where("job_id = ?", response.JobID).First(&record).Error)
	assert.Equal(t, "pending", record.Status)
	assert.True(t, record.EnableDebate)
	kafka.AssertExpectations(t)
}

func TestSolveService_CreateSolveJob_ProblemNotFound(t *testing.T) {
	db := setupTestDB(t)
	kafka := &MockKafkaService{}
	service := NewSolveService(db, setupTestConfig(t), kafka)

	response, err := service.CreateSolveJob(&SolveJobRequest{
		ProblemID:    uuid.New(),
		EnableDebate: true,
	}, "test-correlation")

	assert.Nil(t, response)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	kafka.AssertNotCalled(t, "PublishSolveJob")
}

func TestSolveService_CreateSolveJob_PublishFailure(t *testing.T) {
	db := setupTestDB(t)
	problem := createTestProblem(t, db)

	kafka := &MockKafkaService{}
	kafka.On("PublishSolveJob", mock.Anything).Return(errors.New("broker unavailable")).Once()

	service := NewSolveService(db, setupTestConfig(t), kafka)

	response, err := service.CreateSolveJob(&SolveJobRequest{ProblemID: problem.ID}, "test-correlation")

	assert.Nil(t, response)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to queue solve job")

	// The record is marked failed rather than left dangling in pending.
	var record models.DebateRecord
	require.NoError(t, db.Where("problem_id = ?", problem.ID).First(&record).Error)
	assert.Equal(t, "failed", record.Status)
}

func TestSolveService_GetJobStatus(t *testing.T) {
	db := setupTestDB(t)
	problem := createTestProblem(t, db)

	kafka := &MockKafkaService{}
	kafka.On("PublishSolveJob", mock.Anything).Return(nil)
	service := NewSolveService(db, setupTestConfig(t), kafka)

	created, err := service.CreateSolveJob(&SolveJobRequest{ProblemID: problem.ID, EnableDebate: true}, "test-correlation")
	require.NoError(t, err)

	status, err := service.GetJobStatus(created.JobID, "test-correlation")
	require.NoError(t, err)
	assert.Equal(t, created.JobID, status.JobID)
	assert.Equal(t, problem.ID, status.ProblemID)
	assert.Equal(t, "pending", status.Status)
	assert.Nil(t, status.CompletedAt)
}

func TestSolveService_GetJobStatus_NotFound(t *testing.T) {
	db := setupTestDB(t)
	service := NewSolveService(db, setupTestConfig(t), &MockKafkaService{})

	status, err := service.GetJobStatus(uuid.New(), "test-correlation")

	assert.Nil(t, status)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSolveService_UpdateJobStatus(t *testing.T) {
	db := setupTestDB(t)
	problem := createTestProblem(t, db)

	kafka := &MockKafkaService{}
	kafka.On("PublishSolveJob", mock.Anything).Return(nil)
	service := NewSolveService(db, setupTestConfig(t), kafka)

	created, err := service.CreateSolveJob(&SolveJobRequest{ProblemID: problem.ID}, "test-correlation")
	require.NoError(t, err)

	require.NoError(t, service.UpdateJobStatus(created.JobID, "processing", ""))

	status, err := service.GetJobStatus(created.JobID, "test-correlation")
	require.NoError(t, err)
	assert.Equal(t, "processing", status.Status)
	assert.Nil(t, status.CompletedAt)

	require.NoError(t, service.UpdateJobStatus(created.JobID, "failed", "something broke"))

	status, err = service.GetJobStatus(created.JobID, "test-correlation")
	require.NoError(t, err)
	assert.Equal(t, "failed", status.Status)
	require.NotNil(t, status.ErrorMessage)
	assert.Equal(t, "something broke", *status.ErrorMessage)
	assert.NotNil(t, status.CompletedAt)
}

func TestSolveService_UpdateJobStatus_UnknownJob(t *testing.T) {
	db := setupTestDB(t)
	service := NewSolveService(db, setupTestConfig(t), &MockKafkaService{})

	err := service.UpdateJobStatus(uuid.New(), "processing", "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSolveService_SaveOutcome(t *testing.T) {
	db := setupTestDB(t)
	problem := createTestProblem(t, db)

	kafka := &MockKafkaService{}
	kafka.On("PublishSolveJob", mock.Anything).Return(nil)
	service := NewSolveService(db, setupTestConfig(t), kafka)

	created, err := service.CreateSolveJob(&SolveJobRequest{ProblemID: problem.ID, EnableDebate: true}, "test-correlation")
	require.NoError(t, err)

	consensus := agents.AgentResponse{
		AgentName:  "Consensus Agent",
		Answer:     "B",
		Confidence: 88,
		Reasoning:  "synthesized decision",
		Success:    true,
	}
	outcome := debate.Outcome{
		Mode:       debate.ModeConsensus,
		Answer:     "B",
		Confidence: 88,
		Reasoning:  "synthesized decision",
		AgentsUsed: 5,
		Success:    true,
		Votes:      debate.VoteTally{"A": 2, "B": 2},
		AgentBreakdown: []agents.AgentResponse{
			{AgentName: "Systematic Agent", Answer: "A", Confidence: 90, Reasoning: "r1", Success: true},
			{AgentName: "MS Chouhan Agent", Answer: "B", Confidence: 85, Reasoning: "r2", Success: true},
			{AgentName: "Paula Bruice Agent", Answer: "A", Confidence: 70, Reasoning: "r3", Success: true},
			{AgentName: "Devil's Advocate", Answer: "B", Confidence: 95, Reasoning: "r4", Success: true},
		},
		ConsensusAnalysis: &consensus,
	}

	require.NoError(t, service.SaveOutcome(created.JobID, outcome, "test-correlation"))

	result, err := service.GetDebateResult(getDebateID(t, db, created.JobID), "test-correlation")
	require.NoError(t, err)

	assert.Equal(t, "completed", result.Status)
	require.NotNil(t, result.Mode)
	assert.Equal(t, "consensus", *result.Mode)
	require.NotNil(t, result.Answer)
	assert.Equal(t, "B", *result.Answer)
	require.NotNil(t, result.Confidence)
	assert.Equal(t, 88, *result.Confidence)
	assert.Equal(t, 5, result.AgentsUsed)
	assert.Equal(t, map[string]int{"A": 2, "B": 2}, result.Votes)
	assert.NotNil(t, result.CompletedAt)

	// Four expert opinions plus the flagged consensus row.
	require.Len(t, result.Opinions, 5)
	consensusRows := 0
	for _, opinion := range result.Opinions {
		if opinion.IsConsensus {
			consensusRows++
			assert.Equal(t, "Consensus Agent", opinion.AgentName)
		}
	}
	assert.Equal(t, 1, consensusRows)
}

func TestSolveService_SaveOutcome_Failure(t *testing.T) {
	db := setupTestDB(t)
	problem := createTestProblem(t, db)

	kafka := &MockKafkaService{}
	kafka.On("PublishSolveJob", mock.Anything).Return(nil)
	service := NewSolveService(db, setupTestConfig(t), kafka)

	created, err := service.CreateSolveJob(&SolveJobRequest{ProblemID: problem.ID, EnableDebate: true}, "test-correlation")
	require.NoError(t, err)

	outcome := debate.Outcome{
		Mode:       debate.ModeSingleAgent,
		Answer:     "Unknown",
		Confidence: 0,
		Reasoning:  "All agents failed to analyze",
		AgentsUsed: 0,
		Success:    false,
		Error:      "all agents failed",
	}

	require.NoError(t, service.SaveOutcome(created.JobID, outcome, "test-correlation"))

	status, err := service.GetJobStatus(created.JobID, "test-correlation")
	require.NoError(t, err)
	assert.Equal(t, "failed", status.Status)
	require.NotNil(t, status.ErrorMessage)
	assert.Equal(t, "all agents failed", *status.ErrorMessage)
}

func TestSolveService_ListDebateResults_Pagination(t *testing.T) {
	db := setupTestDB(t)
	problem := createTestProblem(t, db)

	kafka := &MockKafkaService{}
	kafka.On("PublishSolveJob", mock.Anything).Return(nil)
	service := NewSolveService(db, setupTestConfig(t), kafka)

	for i := 0; i < 5; i++ {
		_, err := service.CreateSolveJob(&SolveJobRequest{ProblemID: problem.ID}, "test-correlation")
		require.NoError(t, err)
	}

	results, total, err := service.ListDebateResults(1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, results, 3)

	results, total, err = service.ListDebateResults(2, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, results, 2)
}

func TestSolveService_GetDebateResult_NotFound(t *testing.T) {
	db := setupTestDB(t)
	service := NewSolveService(db, setupTestConfig(t), &MockKafkaService{})

	result, err := service.GetDebateResult(uuid.New(), "test-correlation")

	assert.Nil(t, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func getDebateID(t *testing.T, db *gorm.DB, jobID uuid.UUID) uuid.UUID {
	t.Helper()
	var record models.DebateRecord
	require.NoError(t, db.Where("job_id = ?", jobID).First(&record).Error)
	return record.ID
}
