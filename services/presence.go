package services

import (
	"sync"

	"github.com/gorilla/websocket"
)

// WSEvent - конверт всех событий server -> client
type WSEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// WSClient - хэндл одного realtime-подключения. Записи в сокет сериализуются
// мьютексом: кроме цикла чтения в сокет пишут consumer RabbitMQ и уведомления.
type WSClient struct {
	UserID int64

	conn *websocket.Conn
	mu   sync.Mutex
}

func NewWSClient(userID int64, conn *websocket.Conn) *WSClient {
	return &WSClient{UserID: userID, conn: conn}
}

func (c *WSClient) SendEvent(event string, data interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(WSEvent{Event: event, Data: data})
}

func (c *WSClient) Close() error {
	return c.conn.Close()
}

// PresenceRegistry - процесс-локальная карта userID -> активное подключение.
// На пользователя хранится ровно один хэндл, новое подключение вытесняет
// предыдущее (last wins).
type PresenceRegistry struct {
	mu    sync.RWMutex
	users map[int64]*WSClient
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		users: make(map[int64]*WSClient),
	}
}

// Register безусловно перезаписывает существующую запись пользователя
func (r *PresenceRegistry) Register(userID int64, client *WSClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[userID] = client
}

// Unregister удаляет запись, только если она все еще указывает на этот же
// хэндл: отключение вытесненного подключения не должно снять живую запись.
func (r *PresenceRegistry) Unregister(userID int64, client *WSClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.users[userID] == client {
		delete(r.users, userID)
	}
}

// Lookup возвращает активный хэндл пользователя или nil
func (r *PresenceRegistry) Lookup(userID int64) *WSClient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.users[userID]
}

// Online возвращает количество активных подключений
func (r *PresenceRegistry) Online() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
