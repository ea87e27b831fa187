package models

import "time"

type RelationshipStatus string

const (
	RelationshipPending  RelationshipStatus = "pending"
	RelationshipAccepted RelationshipStatus = "accepted"
	RelationshipRejected RelationshipStatus = "rejected"
	RelationshipBlocked  RelationshipStatus = "blocked"
)

// Relationship - направленная связь между двумя пользователями.
// На пару пользователей существует не более одной записи независимо от
// направления (симметричный уникальный индекс создается в db/migrations.go).
type Relationship struct {
	ID         int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID   int64              `gorm:"index:rel_sender_status_idx;not null" json:"sender_id"`
	ReceiverID int64              `gorm:"index:rel_receiver_status_idx;not null" json:"receiver_id"`
	Status     RelationshipStatus `gorm:"type:relationship_status;not null;index:rel_sender_status_idx;index:rel_receiver_status_idx" json:"status"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

func (Relationship) TableName() string {
	return "relationships"
}

// RelationshipView - запись связи с денормализованными данными участников
type RelationshipView struct {
	ID         int64              `json:"id"`
	SenderID   int64              `json:"sender_id"`
	ReceiverID int64              `json:"receiver_id"`
	Status     RelationshipStatus `json:"status"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
	Sender     *UserView          `json:"sender,omitempty"`
	Receiver   *UserView          `json:"receiver,omitempty"`
}
