package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chem-solver/internal/config"
	"chem-solver/internal/logger"
	"chem-solver/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProblemServiceInterface defines the interface for problem storage operations
type ProblemServiceInterface interface {
	UploadProblem(req *UploadProblemRequest, correlationID string) (*UploadProblemResponse, error)
	GetProblems(page, perPage int) ([]*models.Problem, int64, error)
	GetProblem(id uuid.UUID) (*models.Problem, error)
	DeleteProblem(id uuid.UUID, correlationID string) error
	ReadProblemImage(problem *models.Problem) ([]byte, error)
}

type ProblemService struct {
	db     *gorm.DB
	config *config.Config
}

func NewProblemService(db *gorm.DB, cfg *config.Config) *ProblemService {
	return &ProblemService{
		db:     db,
		config: cfg,
	}
}

// UploadProblemRequest represents the upload request
type UploadProblemRequest struct {
	File *multipart.FileHeader
}

// UploadProblemResponse represents the upload response
type UploadProblemResponse struct {
	ProblemID uuid.UUID `json:"problem_id"`
	Filename  string    `json:"filename"`
	ImageSize int64     `json:"image_size"`
	Message   string    `json:"message"`
}

// UploadProblem handles problem image upload and validation
func (s *ProblemService) UploadProblem(req *UploadProblemRequest, correlationID string) (*UploadProblemResponse, error) {
	log := logger.WithCorrelationID(correlationID)

	// Validate file extension
	ext := strings.ToLower(filepath.Ext(req.File.Filename))
	isValidExt := false
	for _, allowedExt := range s.config.AllowedExts {
		if ext == allowedExt {
			isValidExt = true
			break
		}
	}
	if !isValidExt {
		return nil, fmt.Errorf("invalid file extension: %s. Allowed: %v", ext, s.config.AllowedExts)
	}

	// Validate file size
	if req.File.Size > s.config.MaxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes. Maximum: %d bytes", req.File.Size, s.config.MaxFileSize)
	}

	// Open and read file
	file, err := req.File.Open()
	if err != nil {
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"filename":  req.File.Filename,
			"operation": "open_upload_file",
		})
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"filename":  req.File.Filename,
			"operation": "read_file_content",
		})
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	// Calculate content hash
	hash := sha256.Sum256(content)
	contentHash := hex.EncodeToString(hash[:])

	// Check for duplicates
	var existingProblem models.Problem
	if err := s.db.Where("content_hash = ?", contentHash).First(&existingProblem).Error; err == nil {
		log.WithField("existing_id", existingProblem.ID).Info("Duplicate problem image detected")
		return nil, fmt.Errorf("duplicate problem already exists with ID: %s", existingProblem.ID)
	}

	// Store image on disk
	problemID := uuid.New()
	filePath, err := s.storeImage(problemID, ext, content)
	if err != nil {
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"filename":  req.File.Filename,
			"operation": "store_image",
		})
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	// Create problem record
	problem := &models.Problem{
		ID:          problemID,
		Filename:    req.File.Filename,
		FilePath:    filePath,
		ContentHash: contentHash,
		ImageSize:   int64(len(content)),
		UploadedAt:  time.Now(),
	}

	if err := s.db.Create(problem).Error; err != nil {
		// Clean up the stored file on database failure
		os.Remove(filePath)
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"problem_id": problemID,
			"operation":  "create_problem_record",
		})
		return nil, fmt.Errorf("failed to save problem: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"problem_id": problem.ID,
		"filename":   problem.Filename,
		"image_size": problem.ImageSize,
	}).Info("Problem uploaded successfully")

	return &UploadProblemResponse{
		ProblemID: problem.ID,
		Filename:  problem.Filename,
		ImageSize: problem.ImageSize,
		Message:   "Problem uploaded successfully",
	}, nil
}

// storeImage writes the image bytes under the configured storage path
func (s *ProblemService) storeImage(problemID uuid.UUID, ext string, content []byte) (string, error) {
	if err := os.MkdirAll(s.config.StoragePath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}

	filePath := filepath.Join(s.config.StoragePath, problemID.String()+ext)
	if err := os.WriteFile(filePath, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	return filePath, nil
}

// GetProblems returns a paginated list of problems
func (s *ProblemService) GetProblems(page, perPage int) ([]*models.Problem, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	var total int64
	if err := s.db.Model(&models.Problem{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count problems: %w", err)
	}

	var problems []*models.Problem
	offset := (page - 1) * perPage
	if err := s.db.Order("uploaded_at DESC").Offset(offset).Limit(perPage).Find(&problems).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list problems: %w", err)
	}

	return problems, total, nil
}

// GetProblem returns a single problem by ID
func (s *ProblemService) GetProblem(id uuid.UUID) (*models.Problem, error) {
	var problem models.Problem
	if err := s.db.Where("id = ?", id).First(&problem).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("problem %s not found", id)
		}
		return nil, fmt.Errorf("failed to find problem: %w", err)
	}
	return &problem, nil
}

// DeleteProblem removes a problem record and its stored image
func (s *ProblemService) DeleteProblem(id uuid.UUID, correlationID string) error {
	problem, err := s.GetProblem(id)
	if err != nil {
		return err
	}

	if err := s.db.Delete(&models.Problem{}, "id = ?", id).Error; err != nil {
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"problem_id": id,
			"operation":  "delete_problem_record",
		})
		return fmt.Errorf("failed to delete problem: %w", err)
	}

	if err := os.Remove(problem.FilePath); err != nil && !os.IsNotExist(err) {
		logger.WithCorrelationID(correlationID).WithFields(map[string]interface{}{
			"problem_id": id,
			"file_path":  problem.FilePath,
			"error":      err.Error(),
		}).Warn("Failed to remove stored image file")
	}

	return nil
}

// ReadProblemImage loads the stored image bytes for a problem
func (s *ProblemService) ReadProblemImage(problem *models.Problem) ([]byte, error) {
	content, err := os.ReadFile(problem.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read problem image from %s: %w", problem.FilePath, err)
	}
	return content, nil
}
