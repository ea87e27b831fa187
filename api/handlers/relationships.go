package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"matchlink/api/middleware"
	"matchlink/models"
	"matchlink/services"

	"github.com/gin-gonic/gin"
)

var relationshipService = services.NewRelationshipService()

// publishRelationshipEvent отправляет push-уведомление второй стороне через
// брокер. Сбой брокера не влияет на результат REST-операции.
func publishRelationshipEvent(ctx context.Context, event string, recipientID int64, from *models.UserView) {
	ev := services.RelationshipEvent{
		UserID:    recipientID,
		Event:     event,
		CreatedAt: time.Now(),
	}
	if from != nil {
		ev.FromID = from.ID
		ev.FromName = from.Name
	}
	if err := services.PublishRelationshipEvent(ctx, ev); err != nil {
		log.Println("Failed to publish relationship event:", err)
	}
}

// SendRequest - отправка заявки в друзья
func SendRequest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	receiverID, ok := paramInt64(c, "user_id")
	if !ok {
		return
	}

	view, err := relationshipService.SendRequest(c.Request.Context(), userID, receiverID)
	if err != nil {
		middleware.RecordRelationshipOperation("send_request", "error", ServiceName)
		abortWithError(c, err)
		return
	}

	middleware.RecordRelationshipOperation("send_request", "ok", ServiceName)
	_ = services.GetCounterService().Increment(c.Request.Context(), receiverID, services.CounterFriendRequests)
	publishRelationshipEvent(c.Request.Context(), "friend_request", receiverID, view.Sender)

	c.JSON(http.StatusCreated, gin.H{"request": view})
}

// AcceptRequest - подтверждение входящей заявки
func AcceptRequest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	requestID, ok := paramInt64(c, "id")
	if !ok {
		return
	}

	view, err := relationshipService.AcceptRequest(c.Request.Context(), requestID, userID)
	if err != nil {
		middleware.RecordRelationshipOperation("accept_request", "error", ServiceName)
		abortWithError(c, err)
		return
	}

	middleware.RecordRelationshipOperation("accept_request", "ok", ServiceName)
	_ = services.GetCounterService().Decrement(c.Request.Context(), userID, services.CounterFriendRequests)
	publishRelationshipEvent(c.Request.Context(), "request_accepted", view.SenderID, view.Receiver)

	c.JSON(http.StatusOK, gin.H{"request": view})
}

// RejectRequest - отклонение входящей заявки
func RejectRequest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	requestID, ok := paramInt64(c, "id")
	if !ok {
		return
	}

	view, err := relationshipService.RejectRequest(c.Request.Context(), requestID, userID)
	if err != nil {
		middleware.RecordRelationshipOperation("reject_request", "error", ServiceName)
		abortWithError(c, err)
		return
	}

	middleware.RecordRelationshipOperation("reject_request", "ok", ServiceName)
	_ = services.GetCounterService().Decrement(c.Request.Context(), userID, services.CounterFriendRequests)

	c.JSON(http.StatusOK, gin.H{"request": view})
}

// CancelRequest - отмена собственной заявки
func CancelRequest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	requestID, ok := paramInt64(c, "id")
	if !ok {
		return
	}

	if err := relationshipService.CancelRequest(c.Request.Context(), requestID, userID); err != nil {
		middleware.RecordRelationshipOperation("cancel_request", "error", ServiceName)
		abortWithError(c, err)
		return
	}

	middleware.RecordRelationshipOperation("cancel_request", "ok", ServiceName)
	c.JSON(http.StatusOK, gin.H{"message": "Request cancelled"})
}

// BlockUser - блокировка пользователя
func BlockUser(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	targetID, ok := paramInt64(c, "user_id")
	if !ok {
		return
	}

	view, err := relationshipService.BlockUser(c.Request.Context(), userID, targetID)
	if err != nil {
		middleware.RecordRelationshipOperation("block_user", "error", ServiceName)
		abortWithError(c, err)
		return
	}

	middleware.RecordRelationshipOperation("block_user", "ok", ServiceName)
	c.JSON(http.StatusOK, gin.H{"relationship": view})
}

// UnblockUser - снятие собственной блокировки
func UnblockUser(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	targetID, ok := paramInt64(c, "user_id")
	if !ok {
		return
	}

	if err := relationshipService.UnblockUser(c.Request.Context(), userID, targetID); err != nil {
		middleware.RecordRelationshipOperation("unblock_user", "error", ServiceName)
		abortWithError(c, err)
		return
	}

	middleware.RecordRelationshipOperation("unblock_user", "ok", ServiceName)
	c.JSON(http.StatusOK, gin.H{"message": "User unblocked"})
}

// RemoveFriend - удаление из друзей
func RemoveFriend(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	targetID, ok := paramInt64(c, "user_id")
	if !ok {
		return
	}

	if err := relationshipService.RemoveFriend(c.Request.Context(), userID, targetID); err != nil {
		middleware.RecordRelationshipOperation("remove_friend", "error", ServiceName)
		abortWithError(c, err)
		return
	}

	middleware.RecordRelationshipOperation("remove_friend", "ok", ServiceName)
	c.JSON(http.StatusOK, gin.H{"message": "Friend removed"})
}

// ListFriends - список друзей
func ListFriends(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	friends, err := relationshipService.ListFriends(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

// ListPendingRequests - входящие заявки
func ListPendingRequests(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	requests, err := relationshipService.ListPendingReceived(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// ListSentRequests - исходящие заявки
func ListSentRequests(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	requests, err := relationshipService.ListSentPending(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// ListBlockedUsers - кого заблокировал текущий пользователь
func ListBlockedUsers(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	blocked, err := relationshipService.ListBlockedByMe(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocked": blocked})
}
