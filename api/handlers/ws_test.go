package handlers

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"matchlink/db"
	"matchlink/models"
	"matchlink/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func setupWSServer(t *testing.T) (*httptest.Server, *services.PresenceRegistry) {
	t.Helper()

	registry := services.NewPresenceRegistry()
	users := services.NewUserService()
	handler := NewWSHandler(registry, services.NewChatService(users), users)

	router := gin.New()
	router.GET("/api/v1/ws", handler.Handle)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, registry
}

func issueToken(t *testing.T, userID int64) string {
	t.Helper()
	token := fmt.Sprintf("testtoken-%d-%d", userID, time.Now().UnixNano())
	require.NoError(t, db.ORM.Create(&models.UserTokens{UserID: userID, Token: token}).Error)
	return token
}

func dialWS(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) wsEnvelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env wsEnvelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, data interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(gin.H{"event": event, "data": data}))
}

func TestWSRejectsInvalidToken(t *testing.T) {
	setupTestDB(t)
	server, _ := setupWSServer(t)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws?token=bogus"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	if conn != nil {
		_ = conn.Close()
	}
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestWSSendMessageDelivery(t *testing.T) {
	setupTestDB(t)
	server, registry := setupWSServer(t)

	alice := createTestUser(t, "Alice")
	bob := createTestUser(t, "Bob")

	aliceConn := dialWS(t, server, issueToken(t, alice.ID))
	bobConn := dialWS(t, server, issueToken(t, bob.ID))

	require.Equal(t, "connected", readEvent(t, aliceConn).Event)
	require.Equal(t, "connected", readEvent(t, bobConn).Event)
	assert.Equal(t, 2, registry.Online())

	sendEvent(t, aliceConn, "send_message", gin.H{
		"receiver_id": bob.ID,
		"content":     "hi bob",
	})

	// Эхо отправителю и доставка получателю
	for _, conn := range []*websocket.Conn{aliceConn, bobConn} {
		env := readEvent(t, conn)
		require.Equal(t, "receive_message", env.Event)
		var view models.MessageView
		require.NoError(t, json.Unmarshal(env.Data, &view))
		assert.Equal(t, "hi bob", view.Content)
		assert.Equal(t, alice.ID, view.SenderID)
		assert.Equal(t, "Alice", view.SenderName)
	}

	// История по запросу get_messages
	sendEvent(t, bobConn, "get_messages", gin.H{"other_user_id": alice.ID})
	env := readEvent(t, bobConn)
	require.Equal(t, "messages_list", env.Event)
	var messages []models.MessageView
	require.NoError(t, json.Unmarshal(env.Data, &messages))
	require.Len(t, messages, 1)
	assert.Equal(t, "hi bob", messages[0].Content)
}

func TestWSBusinessErrorKeepsConnection(t *testing.T) {
	setupTestDB(t)
	server, _ := setupWSServer(t)

	alice := createTestUser(t, "Alice")
	bob := createTestUser(t, "Bob")

	conn := dialWS(t, server, issueToken(t, alice.ID))
	require.Equal(t, "connected", readEvent(t, conn).Event)

	// Пустое сообщение превращается в error-событие, сессия живет дальше
	sendEvent(t, conn, "send_message", gin.H{"receiver_id": bob.ID, "content": "  "})
	assert.Equal(t, "error", readEvent(t, conn).Event)

	sendEvent(t, conn, "bogus_event", gin.H{})
	assert.Equal(t, "error", readEvent(t, conn).Event)

	sendEvent(t, conn, "send_message", gin.H{"receiver_id": bob.ID, "content": "still alive"})
	assert.Equal(t, "receive_message", readEvent(t, conn).Event)
}

func TestWSDisconnectClearsPresence(t *testing.T) {
	setupTestDB(t)
	server, registry := setupWSServer(t)

	alice := createTestUser(t, "Alice")

	conn := dialWS(t, server, issueToken(t, alice.ID))
	require.Equal(t, "connected", readEvent(t, conn).Event)
	require.Eventually(t, func() bool { return registry.Lookup(alice.ID) != nil },
		time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool { return registry.Lookup(alice.ID) == nil },
		time.Second, 10*time.Millisecond)
}
