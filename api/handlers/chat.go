package handlers

import (
	"net/http"

	"matchlink/api/middleware"
	"matchlink/services"

	"github.com/gin-gonic/gin"
)

var chatService = services.NewChatService(services.NewUserService())

type SendMessageRequest struct {
	ReceiverID int64  `json:"receiver_id" binding:"required"`
	Content    string `json:"content" binding:"required"`
}

// SendMessage - отправка сообщения через REST. В отличие от ws-пути
// доставка в живые сессии здесь не выполняется.
func SendMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	view, err := chatService.SendMessage(c.Request.Context(), userID, req.ReceiverID, req.Content)
	if err != nil {
		middleware.RecordChatMessage("rest", "error", ServiceName)
		abortWithError(c, err)
		return
	}

	middleware.RecordChatMessage("rest", "ok", ServiceName)
	c.JSON(http.StatusCreated, gin.H{"message": view})
}

// GetConversation - переписка с другим пользователем, старые сообщения первыми
func GetConversation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	otherUserID, ok := paramInt64(c, "user_id")
	if !ok {
		return
	}

	messages, err := chatService.GetConversation(c.Request.Context(), userID, otherUserID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// GetCounters - счетчики текущего пользователя
func GetCounters(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	counters, err := services.GetCounterService().GetAll(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get counters"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":  userID,
		"counters": counters,
	})
}
