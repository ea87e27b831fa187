package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"matchlink/db"
	"matchlink/models"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestDB(t *testing.T) {
	t.Helper()

	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(&models.User{}, &models.UserTokens{}, &models.Relationship{}, &models.Message{}))
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

// testAuthStub подставляет user_id из заголовка X-User-ID вместо
// проверки токена, чтобы гонять сценарии от лица разных пользователей
func testAuthStub() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64); err == nil {
			c.Set("user_id", id)
		}
		c.Next()
	}
}

func setupTestRouter() *gin.Engine {
	router := gin.New()

	router.POST("/api/v1/auth/register", Register)
	router.POST("/api/v1/auth/login", Login)

	authorized := router.Group("/api/v1/")
	authorized.Use(testAuthStub())
	{
		authorized.POST("friends/request/:user_id", SendRequest)
		authorized.POST("friends/accept/:id", AcceptRequest)
		authorized.POST("friends/reject/:id", RejectRequest)
		authorized.DELETE("friends/cancel/:id", CancelRequest)
		authorized.POST("friends/block/:user_id", BlockUser)
		authorized.DELETE("friends/unblock/:user_id", UnblockUser)
		authorized.DELETE("friends/remove/:user_id", RemoveFriend)
		authorized.GET("friends/list", ListFriends)
		authorized.GET("friends/requests", ListPendingRequests)
		authorized.GET("friends/sent", ListSentRequests)
		authorized.GET("friends/blocked", ListBlockedUsers)

		authorized.POST("chat/messages", SendMessage)
		authorized.GET("chat/messages/:user_id", GetConversation)
	}

	return router
}

func performRequest(t *testing.T, router *gin.Engine, method, path string, userID int64, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("X-User-ID", strconv.FormatInt(userID, 10))
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	result := make(map[string]json.RawMessage)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	return result
}
