package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"matchlink/db"
	"matchlink/models"
)

// ChatService - отправка и чтение личных сообщений. Доставка в realtime -
// ответственность вызывающего (ws-обработчика), сервис только валидирует,
// сохраняет и денормализует.
type ChatService struct {
	users *UserService
}

func NewChatService(users *UserService) *ChatService {
	return &ChatService{users: users}
}

// SendMessage сохраняет сообщение и возвращает его с именами участников.
// Отправитель приходит из аутентифицированной сессии, но перепроверяется.
func (s *ChatService) SendMessage(ctx context.Context, senderID, receiverID int64, content string) (*models.MessageView, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: message content is empty", ErrInvalidOperation)
	}

	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	receiver, err := s.users.GetByID(ctx, receiverID)
	if err != nil {
		return nil, err
	}

	msg := models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  time.Now(),
	}
	if err := db.GetWriteDB(ctx).Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	// Счетчик непрочитанных - best effort, отправку не ломает
	_ = GetCounterService().Increment(ctx, receiverID, CounterUnreadMessages)

	return &models.MessageView{
		ID:           msg.ID,
		Content:      msg.Content,
		SenderID:     sender.ID,
		SenderName:   sender.Name,
		ReceiverID:   receiver.ID,
		ReceiverName: receiver.Name,
		CreatedAt:    msg.CreatedAt,
	}, nil
}

// GetConversation возвращает переписку двух пользователей, старые сообщения
// первыми (в отличие от списков связей, которые отдаются свежими первыми)
func (s *ChatService) GetConversation(ctx context.Context, userID, otherUserID int64) ([]models.MessageView, error) {
	var messages []models.Message
	err := db.GetReadOnlyDB(ctx).Where(
		"(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
		userID, otherUserID, otherUserID, userID,
	).Order("created_at ASC, id ASC").Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	names := make(map[int64]string, 2)
	var users []models.User
	if err := db.GetReadOnlyDB(ctx).Where("id IN ?", []int64{userID, otherUserID}).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	for i := range users {
		names[users[i].ID] = users[i].Name
	}

	_ = GetCounterService().Reset(ctx, userID, CounterUnreadMessages)

	views := make([]models.MessageView, 0, len(messages))
	for i := range messages {
		m := messages[i]
		views = append(views, models.MessageView{
			ID:           m.ID,
			Content:      m.Content,
			SenderID:     m.SenderID,
			SenderName:   names[m.SenderID],
			ReceiverID:   m.ReceiverID,
			ReceiverName: names[m.ReceiverID],
			CreatedAt:    m.CreatedAt,
		})
	}
	return views, nil
}
