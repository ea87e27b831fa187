package db

import (
	"fmt"

	"gorm.io/gorm"
)

// CreateRelationshipStatusEnum создает тип ENUM relationship_status, если он не существует
func CreateRelationshipStatusEnum(db *gorm.DB) error {
	createEnumSQL := `
	DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'relationship_status') THEN
			CREATE TYPE relationship_status AS ENUM ('pending', 'accepted', 'rejected', 'blocked');
		END IF;
	END
	$$;
	`
	if err := db.Exec(createEnumSQL).Error; err != nil {
		return fmt.Errorf("failed to create enum relationship_status: %w", err)
	}
	return nil
}

// CreateRelationshipPairIndex создает симметричный уникальный индекс по паре
// пользователей. Обычный уникальный индекс (sender_id, receiver_id) не
// запрещает дубликат в обратном направлении, поэтому индексируем
// нормализованную пару (LEAST, GREATEST). Именно этот индекс, а не проверка
// в сервисе, гарантирует единственность связи при гонке встречных запросов.
func CreateRelationshipPairIndex(db *gorm.DB) error {
	createIndexSQL := `
		CREATE UNIQUE INDEX IF NOT EXISTS relationships_pair_key
		ON relationships (LEAST(sender_id, receiver_id), GREATEST(sender_id, receiver_id));
	`
	if err := db.Exec(createIndexSQL).Error; err != nil {
		return fmt.Errorf("failed to create index relationships_pair_key: %w", err)
	}
	return nil
}
