package handlers

import (
	"errors"
	"net/http"

	"github.com/digitalkrishi/backend/internal/middleware"
	"github.com/digitalkrishi/backend/internal/models"
	"github.com/digitalkrishi/backend/internal/services"
	"github.com/digitalkrishi/backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ChatHandler struct {
	chatService *services.ChatService
	logger      *logrus.Logger
}

func NewChatHandler(chatService *services.ChatService, logger *logrus.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      logger,
	}
}

func requireUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "User identity required", nil)
		return uuid.Nil, false
	}
	return userID, true
}

// HandleSendMessage answers a farmer's message and records the exchange.
func (h *ChatHandler) HandleSendMessage(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	message, err := h.chatService.SendMessage(c.Request.Context(), userID, req)
	if err != nil {
		h.logger.WithError(err).Error("Failed to process chat message")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to process message", err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Message processed", message)
}

// HandleHistory returns the caller's chat history, newest first.
func (h *ChatHandler) HandleHistory(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	offset := parseIntQuery(c, "offset", 0, 0, 10000)
	limit := parseIntQuery(c, "limit", 20, 1, 100)

	messages, err := h.chatService.History(userID, offset, limit)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get chat history", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "History retrieved", messages)
}

// HandleGetMessage returns one of the caller's messages.
func (h *ChatHandler) HandleGetMessage(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	message, err := h.chatService.GetMessage(id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Message not found", nil)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get message", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Message retrieved", message)
}

// HandleDeleteMessage removes one of the caller's messages.
func (h *ChatHandler) HandleDeleteMessage(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.chatService.DeleteMessage(id, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Message not found", nil)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to delete message", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Message deleted", nil)
}

// HandleClearHistory removes all of the caller's messages.
func (h *ChatHandler) HandleClearHistory(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.chatService.ClearHistory(userID); err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to clear history", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "History cleared", nil)
}
