package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"chem-solver/internal/logger"
	"chem-solver/internal/services"

	"github.com/gin-gonic/gin"
)

type SolveHandler struct {
	solveService services.SolveServiceInterface
}

func NewSolveHandler(solveService services.SolveServiceInterface) *SolveHandler {
	return &SolveHandler{
		solveService: solveService,
	}
}

// StartSolve queues a debate for a problem. The enable_debate query
// parameter (default true) selects the full debate or the single-agent
// fast path.
func (h *SolveHandler) StartSolve(c *gin.Context) {
	correlationID := getCorrelationID(c)

	problemID, err := parseUUIDParam(c, "problem_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("INVALID_UUID", "Invalid problem ID format", correlationID))
		return
	}

	enableDebate := true
	if raw := c.Query("enable_debate"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("INVALID_FLAG", "enable_debate must be a boolean", correlationID))
			return
		}
		enableDebate = parsed
	}

	logger.Log.WithFields(map[string]interface{}{
		"correlation_id": correlationID,
		"problem_id":     problemID,
		"enable_debate":  enableDebate,
	}).Info("Solve job request received")

	response, err := h.solveService.CreateSolveJob(&services.SolveJobRequest{
		ProblemID:    problemID,
		EnableDebate: enableDebate,
	}, correlationID)
	if err != nil {
		statusCode := http.StatusBadRequest
		errorCode := "SOLVE_CREATION_ERROR"
		if strings.Contains(err.Error(), "not found") {
			statusCode = http.StatusNotFound
			errorCode = "PROBLEM_NOT_FOUND"
		}

		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"problem_id": problemID,
			"error_code": errorCode,
			"operation":  "solve_job_creation",
		})

		c.JSON(statusCode, errorResponse(errorCode, err.Error(), correlationID))
		return
	}

	c.JSON(http.StatusAccepted, response)
}

// GetJobStatus returns the status of a solve job
func (h *SolveHandler) GetJobStatus(c *gin.Context) {
	correlationID := getCorrelationID(c)

	jobID, err := parseUUIDParam(c, "job_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("INVALID_UUID", "Invalid job ID format", correlationID))
		return
	}

	status, err := h.solveService.GetJobStatus(jobID, correlationID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, errorResponse("JOB_NOT_FOUND", err.Error(), correlationID))
			return
		}
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"job_id":    jobID,
			"operation": "get_job_status",
		})
		c.JSON(http.StatusInternalServerError, errorResponse("STATUS_ERROR", "Failed to fetch job status", correlationID))
		return
	}

	c.JSON(http.StatusOK, status)
}

// ListDebateResults lists debate results with pagination
func (h *SolveHandler) ListDebateResults(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	results, total, err := h.solveService.ListDebateResults(page, perPage)
	if err != nil {
		correlationID := getCorrelationID(c)
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"operation": "list_debate_results",
		})
		c.JSON(http.StatusInternalServerError, errorResponse("LIST_ERROR", "Failed to list results", correlationID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results":  results,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// GetDebateResult returns a single debate result by ID
func (h *SolveHandler) GetDebateResult(c *gin.Context) {
	correlationID := getCorrelationID(c)

	debateID, err := parseUUIDParam(c, "debate_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("INVALID_UUID", "Invalid debate ID format", correlationID))
		return
	}

	result, err := h.solveService.GetDebateResult(debateID, correlationID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, errorResponse("RESULT_NOT_FOUND", err.Error(), correlationID))
			return
		}
		logger.LogErrorWithStackAndCorrelation(err, correlationID, map[string]interface{}{
			"debate_id": debateID,
			"operation": "get_debate_result",
		})
		c.JSON(http.StatusInternalServerError, errorResponse("RESULT_ERROR", "Failed to fetch debate result", correlationID))
		return
	}

	c.JSON(http.StatusOK, result)
}
