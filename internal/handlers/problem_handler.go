package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"chem-solver/internal/logger"
	"chem-solver/internal/services"

	"github.com/gin-gonic/gin"
)

type ProblemHandler struct {
	problemService services.ProblemServiceInterface
}

func NewProblemHandler(problemService services.ProblemServiceInterface) *ProblemHandler {
	return &ProblemHandler{
		problemService: problemService,
	}
}

// UploadProblem accepts a multipart problem image upload
func (h *ProblemHandler) UploadProblem(c *gin.Context) {
	correlationID := getCorrelationID(c)

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("MISSING_IMAGE", "An 'image' file field is required", correlationID))
		return
	}

	logger.Log.WithFields(map[string]interface{}{
		"correlation_id": correlationID,
		"filename":       file.Filename,
		"size":           file.Size,
	}).Info("Problem upload request received")

	response, err := h.problemService.UploadProblem(&services.UploadProblemRequest{File: file}, correlationID)
	if err != nil {
		statusCode := http.StatusBadRequest
		errorCode := "UPLOAD_ERROR"
		if strings.Contains(err.Error(), "duplicate") {
			statusCode = http.StatusConflict
			errorCode = "DUPLICATE_PROBLEM"
		}

		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"filename":   file.Filename,
			"error_code": errorCode,
			"operation":  "problem_upload",
		})

		c.JSON(statusCode, errorResponse(errorCode, err.Error(), correlationID))
		return
	}

	c.JSON(http.StatusCreated, response)
}

// GetProblems lists uploaded problems with pagination
func (h *ProblemHandler) GetProblems(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	problems, total, err := h.problemService.GetProblems(page, perPage)
	if err != nil {
		correlationID := getCorrelationID(c)
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"operation": "list_problems",
		})
		c.JSON(http.StatusInternalServerError, errorResponse("LIST_ERROR", "Failed to list problems", correlationID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"problems": problems,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// GetProblem returns a single problem by ID
func (h *ProblemHandler) GetProblem(c *gin.Context) {
	correlationID := getCorrelationID(c)

	problemID, err := parseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("INVALID_UUID", "Invalid problem ID format", correlationID))
		return
	}

	problem, err := h.problemService.GetProblem(problemID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, errorResponse("PROBLEM_NOT_FOUND", err.Error(), correlationID))
			return
		}
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"problem_id": problemID,
			"operation":  "get_problem",
		})
		c.JSON(http.StatusInternalServerError, errorResponse("GET_ERROR", "Failed to fetch problem", correlationID))
		return
	}

	c.JSON(http.StatusOK, problem)
}

// DeleteProblem removes a problem and its stored image
func (h *ProblemHandler) DeleteProblem(c *gin.Context) {
	correlationID := getCorrelationID(c)

	problemID, err := parseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("INVALID_UUID", "Invalid problem ID format", correlationID))
		return
	}

	if err := h.problemService.DeleteProblem(problemID, correlationID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, errorResponse("PROBLEM_NOT_FOUND", err.Error(), correlationID))
			return
		}
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"problem_id": problemID,
			"operation":  "delete_problem",
		})
		c.JSON(http.StatusInternalServerError, errorResponse("DELETE_ERROR", "Failed to delete problem", correlationID))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Problem deleted"})
}
