package handlers

import (
	"errors"
	"net/http"

	"github.com/SAP-F-2025/mastery-service/internal/services"
	"github.com/SAP-F-2025/mastery-service/internal/utils"
	"github.com/SAP-F-2025/mastery-service/internal/validator"
	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
	validator      *validator.Validator
}

func NewSessionHandler(
	sessionService services.SessionService,
	v *validator.Validator,
	logger utils.Logger,
) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
		validator:      v,
	}
}

// StartSession starts a new mastery session
// @Summary Start mastery session
// @Description Starts a mastery session for a user, composing a quiz from the subject and weakness profile unless questions are supplied directly
// @Tags sessions
// @Accept json
// @Produce json
// @Param session body services.StartSessionRequest true "Session data"
// @Success 201 {object} services.SessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /sessions [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	h.LogRequest(c, "Starting mastery session")

	var req services.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	session, err := h.sessionService.Start(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// GetSession returns the current state of a session
// @Summary Get session
// @Description Returns the session's phase and the view matching it: questions during a quiz, gate state during remediation, the result once mastered
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.SessionResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	session, err := h.sessionService.Get(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// SubmitAnswer records one answer during the quiz phase
// @Summary Submit answer
// @Description Records a single answer; resubmitting overwrites the previous answer for that question
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param answer body services.SubmitAnswerRequest true "Answer data"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/answers [post]
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	var req services.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.sessionService.SubmitAnswer(c.Request.Context(), sessionID, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Answer recorded"})
}

// SubmitQuiz scores the current attempt
// @Summary Submit quiz
// @Description Scores the attempt; a passing score masters the session, a failing one enters the remediation gate
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.SessionResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/submit [post]
func (h *SessionHandler) SubmitQuiz(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	h.LogRequest(c, "Submitting quiz", "session_id", sessionID)

	session, err := h.sessionService.SubmitQuiz(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// AdvanceRemediation tries to move the remediation gate forward
// @Summary Advance remediation
// @Description Advances the gate when the stage's dwell has elapsed; before that the call is a no-op and returns the remaining wait
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.SessionResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/advance [post]
func (h *SessionHandler) AdvanceRemediation(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	session, err := h.sessionService.AdvanceRemediation(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// RetryGeneration refires a failed content-generation request
// @Summary Retry content generation
// @Description Retries the generator request for the current remediation stage after a transport failure
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/retry-generation [post]
func (h *SessionHandler) RetryGeneration(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	if err := h.sessionService.RetryGeneration(c.Request.Context(), sessionID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Generation retried"})
}

// GetReport returns the detailed assessment report of a mastered session
// @Summary Get session report
// @Description Returns the detailed report; 202 while generation is still in flight
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.AssessmentReport
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /sessions/{id}/report [get]
func (h *SessionHandler) GetReport(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	report, err := h.sessionService.Report(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, services.ErrReportPending) {
			c.JSON(http.StatusAccepted, SuccessResponse{
				Message: "Report is still being generated",
			})
			return
		}
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// AbandonSession discards an in-progress session
// @Summary Abandon session
// @Description Discards the session without touching the weakness profile
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [delete]
func (h *SessionHandler) AbandonSession(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	h.LogRequest(c, "Abandoning mastery session", "session_id", sessionID)

	if err := h.sessionService.Abandon(c.Request.Context(), sessionID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Session abandoned"})
}

// handleServiceError maps service errors to HTTP responses
func (h *SessionHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: businessRuleError.Message,
			Details: map[string]interface{}{
				"rule":    businessRuleError.Rule,
				"context": businessRuleError.Context,
			},
		})
		return
	}

	switch {
	case services.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Session not found",
		})
	case services.IsConflict(err):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: err.Error(),
		})
	case services.IsInvalidSubmission(err):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Submission rejected",
			Details: err.Error(),
		})
	case services.IsRetryableGeneration(err):
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Message: "Content generator unavailable",
			Details: err.Error(),
			Code:    "generation_retryable",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
