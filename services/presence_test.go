package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresenceRegisterAndLookup(t *testing.T) {
	registry := NewPresenceRegistry()

	client := NewWSClient(1, nil)
	registry.Register(1, client)

	assert.Same(t, client, registry.Lookup(1))
	assert.Nil(t, registry.Lookup(2))
	assert.Equal(t, 1, registry.Online())

	registry.Unregister(1, client)
	assert.Nil(t, registry.Lookup(1))
	assert.Equal(t, 0, registry.Online())
}

func TestPresenceLastConnectionWins(t *testing.T) {
	registry := NewPresenceRegistry()

	first := NewWSClient(1, nil)
	second := NewWSClient(1, nil)

	registry.Register(1, first)
	registry.Register(1, second)
	assert.Same(t, second, registry.Lookup(1))

	// Запоздавшее отключение вытесненного соединения не снимает живую запись
	registry.Unregister(1, first)
	assert.Same(t, second, registry.Lookup(1))

	registry.Unregister(1, second)
	assert.Nil(t, registry.Lookup(1))
}

func TestSendWsNotifyOfflineUser(t *testing.T) {
	registry := NewPresenceRegistry()

	// Оффлайн-адресат и пустое сообщение не считаются ошибками
	assert.NoError(t, SendWsNotify(registry, 42, "info", "hello"))
	assert.NoError(t, SendWsNotify(registry, 42, "info", ""))
}

func TestPresenceConcurrentAccess(t *testing.T) {
	registry := NewPresenceRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		userID := int64(i % 10)
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := NewWSClient(userID, nil)
			registry.Register(userID, client)
			registry.Lookup(userID)
			registry.Unregister(userID, client)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, registry.Online())
}
