package models

import "time"

// Message - сообщение между двумя пользователями. Записи неизменяемы:
// ни редактирование, ни удаление не предусмотрены.
type Message struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID   int64     `gorm:"column:sender_id;index:msg_sender_created_idx" json:"sender_id"`
	ReceiverID int64     `gorm:"column:receiver_id;index:msg_receiver_created_idx" json:"receiver_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index:msg_sender_created_idx;index:msg_receiver_created_idx" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

// MessageView - сообщение с именами участников для ответов API и ws-событий
type MessageView struct {
	ID           int64     `json:"id"`
	Content      string    `json:"content"`
	SenderID     int64     `json:"sender_id"`
	SenderName   string    `json:"sender_name"`
	ReceiverID   int64     `json:"receiver_id"`
	ReceiverName string    `json:"receiver_name"`
	CreatedAt    time.Time `json:"created_at"`
}
