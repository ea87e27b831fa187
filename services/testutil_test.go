package services

import (
	"fmt"
	"strings"
	"testing"

	"matchlink/db"
	"matchlink/models"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB инициализирует in-memory sqlite и глобальный ORM.
// Имя базы уникально на тест, cache=shared держит одну базу на весь пул.
func setupTestDB(t *testing.T) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(&models.User{}, &models.UserTokens{}, &models.Relationship{}, &models.Message{}))

	// sqlite-вариант симметричного индекса по паре (в postgres - LEAST/GREATEST)
	require.NoError(t, database.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS relationships_pair_key
		ON relationships (MIN(sender_id, receiver_id), MAX(sender_id, receiver_id))
	`).Error)

	db.ORM = database
}

func createTestUser(t *testing.T, name string) *models.User {
	t.Helper()
	user := models.User{
		Name:     name,
		Email:    fmt.Sprintf("%s_%s@example.com", strings.ToLower(name), gofakeit.Numerify("######")),
		Password: "testpassword",
	}
	require.NoError(t, db.ORM.Create(&user).Error)
	return &user
}

func relationshipCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.ORM.Model(&models.Relationship{}).Count(&count).Error)
	return count
}
