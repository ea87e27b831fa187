package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"matchlink/api/middleware"
	"matchlink/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler обслуживает realtime-сессии: аутентификация рукопожатия,
// учет присутствия и диспетчеризация входящих событий в ChatService
type WSHandler struct {
	registry *services.PresenceRegistry
	chat     *services.ChatService
	users    *services.UserService
}

func NewWSHandler(registry *services.PresenceRegistry, chat *services.ChatService, users *services.UserService) *WSHandler {
	return &WSHandler{registry: registry, chat: chat, users: users}
}

// wsRequest - конверт событий client -> server
type wsRequest struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type sendMessageData struct {
	ReceiverID int64  `json:"receiver_id"`
	Content    string `json:"content"`
}

type getMessagesData struct {
	OtherUserID int64 `json:"other_user_id"`
}

// handshakeToken достает credential из запроса: параметр token
// или заголовок Authorization
func handshakeToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// Handle - точка входа realtime-сессии. Без валидного токена соединение
// завершается сразу и в реестр присутствия не попадает.
func (h *WSHandler) Handle(c *gin.Context) {
	token := handshakeToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}

	client := services.NewWSClient(user.ID, conn)
	h.registry.Register(user.ID, client)
	middleware.WSConnectionOpened(ServiceName)

	// Очистка выполняется на любом пути завершения, включая аварийные.
	// Unregister снимает запись, только если ее не вытеснило более новое
	// подключение того же пользователя.
	defer func() {
		h.registry.Unregister(user.ID, client)
		middleware.WSConnectionClosed(ServiceName)
		_ = conn.Close()
	}()

	_ = client.SendEvent("connected", gin.H{"user_id": user.ID})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Println("WebSocket read error:", err)
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			_ = client.SendEvent("error", gin.H{"message": "invalid event payload"})
			continue
		}

		switch req.Event {
		case "send_message":
			h.handleSendMessage(c, client, req.Data)
		case "get_messages":
			h.handleGetMessages(c, client, req.Data)
		default:
			_ = client.SendEvent("error", gin.H{"message": "unknown event: " + req.Event})
		}
	}
}

// handleSendMessage сохраняет сообщение и выполняет fan-out: эхо отправителю
// всегда (для других вкладок и устройств), получателю - если он подключен.
// Ошибка бизнес-логики превращается в error-событие, соединение живет дальше.
func (h *WSHandler) handleSendMessage(c *gin.Context, client *services.WSClient, data json.RawMessage) {
	var req sendMessageData
	if err := json.Unmarshal(data, &req); err != nil {
		_ = client.SendEvent("error", gin.H{"message": "invalid send_message payload"})
		return
	}

	view, err := h.chat.SendMessage(c.Request.Context(), client.UserID, req.ReceiverID, req.Content)
	if err != nil {
		middleware.RecordChatMessage("ws", "error", ServiceName)
		_ = client.SendEvent("error", gin.H{"message": err.Error()})
		return
	}
	middleware.RecordChatMessage("ws", "ok", ServiceName)

	_ = client.SendEvent("receive_message", view)

	if receiver := h.registry.Lookup(req.ReceiverID); receiver != nil {
		if err := receiver.SendEvent("receive_message", view); err != nil {
			log.Println("Failed to deliver message to receiver:", err)
		}
	}
}

// handleGetMessages возвращает переписку только запросившему
func (h *WSHandler) handleGetMessages(c *gin.Context, client *services.WSClient, data json.RawMessage) {
	var req getMessagesData
	if err := json.Unmarshal(data, &req); err != nil {
		_ = client.SendEvent("error", gin.H{"message": "invalid get_messages payload"})
		return
	}

	messages, err := h.chat.GetConversation(c.Request.Context(), client.UserID, req.OtherUserID)
	if err != nil {
		_ = client.SendEvent("error", gin.H{"message": err.Error()})
		return
	}
	_ = client.SendEvent("messages_list", messages)
}
