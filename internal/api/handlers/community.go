package handlers

import (
	"errors"
	"net/http"

	"github.com/digitalkrishi/backend/internal/models"
	"github.com/digitalkrishi/backend/internal/services"
	"github.com/digitalkrishi/backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type CommunityHandler struct {
	communityService *services.CommunityService
	logger           *logrus.Logger
}

func NewCommunityHandler(communityService *services.CommunityService, logger *logrus.Logger) *CommunityHandler {
	return &CommunityHandler{
		communityService: communityService,
		logger:           logger,
	}
}

// HandleCreateGroup creates a discussion group.
func (h *CommunityHandler) HandleCreateGroup(c *gin.Context) {
	var req models.GroupCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	group, err := h.communityService.CreateGroup(req)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create group")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to create group", err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Group created", group)
}

// HandleListGroups lists active groups.
func (h *CommunityHandler) HandleListGroups(c *gin.Context) {
	offset := parseIntQuery(c, "offset", 0, 0, 10000)
	limit := parseIntQuery(c, "limit", 20, 1, 100)

	groups, err := h.communityService.ListGroups(c.Query("crop_type"), c.Query("location"), offset, limit)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list groups", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Groups retrieved", groups)
}

// HandleGetGroup returns one active group.
func (h *CommunityHandler) HandleGetGroup(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	group, err := h.communityService.GetGroup(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Group not found", nil)
			return
		}
		utils.ErrorResponse(c, http.StatusNotFound, "Group not available", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Group retrieved", group)
}

// HandleUpdateGroup updates a group's metadata.
func (h *CommunityHandler) HandleUpdateGroup(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req models.GroupUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	group, err := h.communityService.UpdateGroup(id, req)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Group not found", nil)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to update group", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Group updated", group)
}

// HandleDeleteGroup soft-deletes a group.
func (h *CommunityHandler) HandleDeleteGroup(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.communityService.DeleteGroup(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Group not found", nil)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to delete group", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Group deleted", nil)
}

// HandlePostMessage posts a message to a group after moderation.
func (h *CommunityHandler) HandlePostMessage(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	groupID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req models.GroupMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	message, err := h.communityService.PostMessage(c.Request.Context(), groupID, userID, req)
	if err != nil {
		if errors.Is(err, services.ErrMessageRejected) {
			utils.ErrorResponse(c, http.StatusUnprocessableEntity, "Message rejected by moderation", nil)
			return
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Group not found", nil)
			return
		}
		h.logger.WithError(err).Error("Failed to post message")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to post message", err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Message posted", message)
}

// HandleListMessages returns a group's messages, newest first.
func (h *CommunityHandler) HandleListMessages(c *gin.Context) {
	groupID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	offset := parseIntQuery(c, "offset", 0, 0, 10000)
	limit := parseIntQuery(c, "limit", 50, 1, 200)

	messages, err := h.communityService.ListMessages(groupID, offset, limit)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Group not found", nil)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list messages", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Messages retrieved", messages)
}
