package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/SAP-F-2025/mastery-service/internal/models"
	"github.com/SAP-F-2025/mastery-service/internal/services"
	"github.com/SAP-F-2025/mastery-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	BaseHandler
	profileService services.ProfileService
}

func NewProfileHandler(profileService services.ProfileService, logger utils.Logger) *ProfileHandler {
	return &ProfileHandler{
		BaseHandler:    NewBaseHandler(logger),
		profileService: profileService,
	}
}

// GetProfile returns a user's weakness profile
// @Summary Get weakness profile
// @Description Returns every per-topic record for the user, worst score first; optionally filtered to one subject
// @Tags profiles
// @Produce json
// @Param user_id path string true "User ID"
// @Param subject query string false "Restrict to one subject"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /profiles/{user_id} [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID := ParseStringIDParam(c, "user_id")
	if userID == "" {
		return
	}

	var records []*models.WeaknessRecord
	var err error
	if subject := c.Query("subject"); subject != "" {
		records, err = h.profileService.SnapshotBySubject(c.Request.Context(), userID, subject)
	} else {
		records, err = h.profileService.Snapshot(c.Request.Context(), userID)
	}
	if err != nil {
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to load weakness profile", err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Weakness profile retrieved",
		Data:    records,
	})
}

// GetWeakTopics returns the user's weakest topics
// @Summary Get weak topics
// @Description Returns up to max_count topic names below the score cutoff, worst first
// @Tags profiles
// @Produce json
// @Param user_id path string true "User ID"
// @Param max_count query int false "Maximum topics returned" default(5)
// @Param score_below query int false "Score cutoff, 0 for the configured default"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /profiles/{user_id}/weak-topics [get]
func (h *ProfileHandler) GetWeakTopics(c *gin.Context) {
	userID := ParseStringIDParam(c, "user_id")
	if userID == "" {
		return
	}

	maxCount := ParseIntQuery(c, "max_count", 5)
	scoreBelow := ParseIntQuery(c, "score_below", 0)

	topics, err := h.profileService.WeakTopics(c.Request.Context(), userID, maxCount, scoreBelow)
	if err != nil {
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to load weak topics", err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Weak topics retrieved",
		Data:    topics,
	})
}

// ExportProfile downloads the weakness profile as an Excel workbook
// @Summary Export weakness profile
// @Description Streams the user's weakness profile as an xlsx file
// @Tags profiles
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param user_id path string true "User ID"
// @Success 200 {file} binary
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /profiles/{user_id}/export [get]
func (h *ProfileHandler) ExportProfile(c *gin.Context) {
	userID := ParseStringIDParam(c, "user_id")
	if userID == "" {
		return
	}

	h.LogRequest(c, "Exporting weakness profile", "user_id", userID)

	data, err := h.profileService.ExportToExcel(c.Request.Context(), userID)
	if err != nil {
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to export weakness profile", err)
		return
	}

	filename := fmt.Sprintf("weakness-profile-%s-%s.xlsx", userID, time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
