package services

import (
	"context"
	"errors"
	"fmt"

	"matchlink/db"
	"matchlink/models"

	"gorm.io/gorm"
)

// RelationshipService - машина состояний связей между пользователями.
// Таблица переходов (актор -> событие):
//
//	(нет)    -> send    (sender)        -> pending
//	pending  -> accept  (receiver)      -> accepted
//	pending  -> reject  (receiver)      -> rejected
//	pending  -> cancel  (sender)        -> удаление
//	любой    -> block   (любая сторона) -> blocked, блокирующий становится sender
//	accepted -> remove  (любая сторона) -> удаление
//	blocked  -> unblock (только blocker)-> удаление
//	rejected -> send    (любая сторона) -> pending, запись переиспользуется
type RelationshipService struct{}

func NewRelationshipService() *RelationshipService {
	return &RelationshipService{}
}

type relationshipEvent string

const (
	eventAccept  relationshipEvent = "accept"
	eventReject  relationshipEvent = "reject"
	eventCancel  relationshipEvent = "cancel"
	eventRemove  relationshipEvent = "remove"
	eventUnblock relationshipEvent = "unblock"
)

// canTransition сверяет событие и актора с таблицей переходов. Все мутации
// проходят через эту проверку, чтобы правила ролей не расползались по коду.
func canTransition(rel *models.Relationship, actorID int64, event relationshipEvent) error {
	switch event {
	case eventAccept, eventReject:
		if rel.ReceiverID != actorID {
			return fmt.Errorf("%w: only the receiver can %s a friend request", ErrForbidden, event)
		}
		if rel.Status != models.RelationshipPending {
			return fmt.Errorf("%w: request is not pending", ErrInvalidOperation)
		}
	case eventCancel:
		if rel.SenderID != actorID {
			return fmt.Errorf("%w: only the sender can cancel a friend request", ErrForbidden)
		}
		if rel.Status != models.RelationshipPending {
			return fmt.Errorf("%w: request is not pending", ErrInvalidOperation)
		}
	case eventRemove:
		if rel.SenderID != actorID && rel.ReceiverID != actorID {
			return fmt.Errorf("%w: not a participant of this friendship", ErrForbidden)
		}
		if rel.Status != models.RelationshipAccepted {
			return fmt.Errorf("%w: users are not friends", ErrInvalidOperation)
		}
	case eventUnblock:
		// Блокирующий всегда записан как sender (нормализация в BlockUser)
		if rel.SenderID != actorID {
			return fmt.Errorf("%w: only the blocker can unblock", ErrForbidden)
		}
		if rel.Status != models.RelationshipBlocked {
			return fmt.Errorf("%w: user is not blocked", ErrInvalidOperation)
		}
	default:
		return fmt.Errorf("%w: unknown event %q", ErrInvalidOperation, event)
	}
	return nil
}

// findBetween возвращает связь между парой пользователей в любом направлении
func (s *RelationshipService) findBetween(tx *gorm.DB, userID, otherID int64) (*models.Relationship, error) {
	var rel models.Relationship
	err := tx.Where(
		"(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
		userID, otherID, otherID, userID,
	).First(&rel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// SendRequest создает заявку в друзья
func (s *RelationshipService) SendRequest(ctx context.Context, senderID, receiverID int64) (*models.RelationshipView, error) {
	if senderID == receiverID {
		return nil, fmt.Errorf("%w: cannot send friend request to yourself", ErrInvalidOperation)
	}

	var receiverCount int64
	err := db.GetReadOnlyDB(ctx).Model(&models.User{}).Where("id = ?", receiverID).Count(&receiverCount).Error
	if err != nil {
		return nil, fmt.Errorf("error checking receiver: %w", err)
	}
	if receiverCount == 0 {
		return nil, fmt.Errorf("%w: user not found", ErrNotFound)
	}

	existing, err := s.findBetween(db.GetWriteDB(ctx), senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		switch existing.Status {
		case models.RelationshipPending:
			return nil, fmt.Errorf("%w: friend request already exists", ErrConflict)
		case models.RelationshipAccepted:
			return nil, fmt.Errorf("%w: users are already friends", ErrConflict)
		case models.RelationshipBlocked:
			return nil, fmt.Errorf("%w: cannot send friend request to blocked user", ErrForbidden)
		case models.RelationshipRejected:
			// Отклоненную запись переиспользуем: пара уже занимает слот
			// уникального индекса, новая строка его нарушила бы
			existing.Status = models.RelationshipPending
			existing.SenderID = senderID
			existing.ReceiverID = receiverID
			if err := db.GetWriteDB(ctx).Save(existing).Error; err != nil {
				return nil, fmt.Errorf("failed to renew friend request: %w", err)
			}
			return s.toView(ctx, existing)
		}
	}

	rel := models.Relationship{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     models.RelationshipPending,
	}
	if err := db.GetWriteDB(ctx).Create(&rel).Error; err != nil {
		// Гонка встречных запросов: индекс по паре сработал первым
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: friend request already exists", ErrConflict)
		}
		return nil, fmt.Errorf("failed to create friend request: %w", err)
	}
	return s.toView(ctx, &rel)
}

// AcceptRequest подтверждает входящую заявку
func (s *RelationshipService) AcceptRequest(ctx context.Context, requestID, userID int64) (*models.RelationshipView, error) {
	return s.answerRequest(ctx, requestID, userID, eventAccept, models.RelationshipAccepted)
}

// RejectRequest отклоняет входящую заявку
func (s *RelationshipService) RejectRequest(ctx context.Context, requestID, userID int64) (*models.RelationshipView, error) {
	return s.answerRequest(ctx, requestID, userID, eventReject, models.RelationshipRejected)
}

func (s *RelationshipService) answerRequest(ctx context.Context, requestID, userID int64, event relationshipEvent, to models.RelationshipStatus) (*models.RelationshipView, error) {
	var rel models.Relationship
	err := db.GetWriteDB(ctx).First(&rel, requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: friend request not found", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if err := canTransition(&rel, userID, event); err != nil {
		return nil, err
	}

	rel.Status = to
	if err := db.GetWriteDB(ctx).Save(&rel).Error; err != nil {
		return nil, fmt.Errorf("failed to update friend request: %w", err)
	}
	return s.toView(ctx, &rel)
}

// CancelRequest удаляет собственную неподтвержденную заявку
func (s *RelationshipService) CancelRequest(ctx context.Context, requestID, userID int64) error {
	var rel models.Relationship
	err := db.GetWriteDB(ctx).First(&rel, requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: friend request not found", ErrNotFound)
	}
	if err != nil {
		return err
	}

	if err := canTransition(&rel, userID, eventCancel); err != nil {
		return err
	}
	return db.GetWriteDB(ctx).Delete(&rel).Error
}

// BlockUser блокирует пользователя. Существующая связь переводится в blocked
// с нормализацией направления: блокирующий всегда записывается как sender,
// иначе выборка "кого я заблокировал" по sender_id его не увидит.
func (s *RelationshipService) BlockUser(ctx context.Context, userID, targetID int64) (*models.RelationshipView, error) {
	if userID == targetID {
		return nil, fmt.Errorf("%w: cannot block yourself", ErrInvalidOperation)
	}

	var targetCount int64
	err := db.GetReadOnlyDB(ctx).Model(&models.User{}).Where("id = ?", targetID).Count(&targetCount).Error
	if err != nil {
		return nil, fmt.Errorf("error checking target user: %w", err)
	}
	if targetCount == 0 {
		return nil, fmt.Errorf("%w: user not found", ErrNotFound)
	}

	rel, err := s.findBetween(db.GetWriteDB(ctx), userID, targetID)
	if err != nil {
		return nil, err
	}
	if rel != nil {
		rel.Status = models.RelationshipBlocked
		if rel.ReceiverID == userID {
			rel.SenderID = userID
			rel.ReceiverID = targetID
		}
		if err := db.GetWriteDB(ctx).Save(rel).Error; err != nil {
			return nil, fmt.Errorf("failed to block user: %w", err)
		}
		return s.toView(ctx, rel)
	}

	rel = &models.Relationship{
		SenderID:   userID,
		ReceiverID: targetID,
		Status:     models.RelationshipBlocked,
	}
	if err := db.GetWriteDB(ctx).Create(rel).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: relationship already exists", ErrConflict)
		}
		return nil, fmt.Errorf("failed to block user: %w", err)
	}
	return s.toView(ctx, rel)
}

// UnblockUser снимает собственную блокировку. Запись ищется строго в
// направлении blocker -> target: получатель блокировки снять ее не может.
func (s *RelationshipService) UnblockUser(ctx context.Context, userID, targetID int64) error {
	var rel models.Relationship
	err := db.GetWriteDB(ctx).Where(
		"sender_id = ? AND receiver_id = ? AND status = ?",
		userID, targetID, models.RelationshipBlocked,
	).First(&rel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: blocked relationship not found", ErrNotFound)
	}
	if err != nil {
		return err
	}

	if err := canTransition(&rel, userID, eventUnblock); err != nil {
		return err
	}
	return db.GetWriteDB(ctx).Delete(&rel).Error
}

// RemoveFriend разрывает подтвержденную дружбу в любом направлении
func (s *RelationshipService) RemoveFriend(ctx context.Context, userID, targetID int64) error {
	var rel models.Relationship
	err := db.GetWriteDB(ctx).Where(
		"((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)) AND status = ?",
		userID, targetID, targetID, userID, models.RelationshipAccepted,
	).First(&rel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: friendship not found", ErrNotFound)
	}
	if err != nil {
		return err
	}

	if err := canTransition(&rel, userID, eventRemove); err != nil {
		return err
	}
	return db.GetWriteDB(ctx).Delete(&rel).Error
}

// ListFriends возвращает подтвержденные связи пользователя, свежие первыми
func (s *RelationshipService) ListFriends(ctx context.Context, userID int64) ([]models.RelationshipView, error) {
	var rels []models.Relationship
	err := db.GetReadOnlyDB(ctx).Where(
		"(sender_id = ? OR receiver_id = ?) AND status = ?",
		userID, userID, models.RelationshipAccepted,
	).Order("updated_at DESC").Find(&rels).Error
	if err != nil {
		return nil, err
	}
	return s.toViews(ctx, rels)
}

// ListPendingReceived возвращает входящие заявки, свежие первыми
func (s *RelationshipService) ListPendingReceived(ctx context.Context, userID int64) ([]models.RelationshipView, error) {
	var rels []models.Relationship
	err := db.GetReadOnlyDB(ctx).Where(
		"receiver_id = ? AND status = ?", userID, models.RelationshipPending,
	).Order("created_at DESC").Find(&rels).Error
	if err != nil {
		return nil, err
	}
	return s.toViews(ctx, rels)
}

// ListSentPending возвращает исходящие неподтвержденные заявки
func (s *RelationshipService) ListSentPending(ctx context.Context, userID int64) ([]models.RelationshipView, error) {
	var rels []models.Relationship
	err := db.GetReadOnlyDB(ctx).Where(
		"sender_id = ? AND status = ?", userID, models.RelationshipPending,
	).Order("created_at DESC").Find(&rels).Error
	if err != nil {
		return nil, err
	}
	return s.toViews(ctx, rels)
}

// ListBlockedByMe возвращает пользователей, заблокированных актором
func (s *RelationshipService) ListBlockedByMe(ctx context.Context, userID int64) ([]models.RelationshipView, error) {
	var rels []models.Relationship
	err := db.GetReadOnlyDB(ctx).Where(
		"sender_id = ? AND status = ?", userID, models.RelationshipBlocked,
	).Order("updated_at DESC").Find(&rels).Error
	if err != nil {
		return nil, err
	}
	return s.toViews(ctx, rels)
}

func (s *RelationshipService) toView(ctx context.Context, rel *models.Relationship) (*models.RelationshipView, error) {
	views, err := s.toViews(ctx, []models.Relationship{*rel})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// toViews денормализует участников связей одним запросом к справочнику
func (s *RelationshipService) toViews(ctx context.Context, rels []models.Relationship) ([]models.RelationshipView, error) {
	idSet := make(map[int64]struct{}, len(rels)*2)
	for i := range rels {
		idSet[rels[i].SenderID] = struct{}{}
		idSet[rels[i].ReceiverID] = struct{}{}
	}
	ids := make([]int64, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	byID := make(map[int64]models.UserView, len(ids))
	if len(ids) > 0 {
		var users []models.User
		if err := db.GetReadOnlyDB(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
			return nil, fmt.Errorf("failed to load users: %w", err)
		}
		for i := range users {
			byID[users[i].ID] = users[i].View()
		}
	}

	views := make([]models.RelationshipView, 0, len(rels))
	for i := range rels {
		rel := rels[i]
		view := models.RelationshipView{
			ID:         rel.ID,
			SenderID:   rel.SenderID,
			ReceiverID: rel.ReceiverID,
			Status:     rel.Status,
			CreatedAt:  rel.CreatedAt,
			UpdatedAt:  rel.UpdatedAt,
		}
		if u, ok := byID[rel.SenderID]; ok {
			sender := u
			view.Sender = &sender
		}
		if u, ok := byID[rel.ReceiverID]; ok {
			receiver := u
			view.Receiver = &receiver
		}
		views = append(views, view)
	}
	return views, nil
}
