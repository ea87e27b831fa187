package services

import (
	"errors"
	"strings"
)

// Базовые виды ошибок бизнес-логики. Обработчики сопоставляют их
// со статусами HTTP через errors.Is, realtime-слой превращает в error-события.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidOperation = errors.New("invalid operation")
)

// isUniqueViolation распознает нарушение уникального индекса (postgres и
// sqlite в тестах). Предварительная проверка существования связи в сервисе -
// только для понятных сообщений, источник истины - индекс в БД.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed")
}
