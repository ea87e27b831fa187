package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// CounterType тип счетчика
type CounterType string

const (
	CounterUnreadMessages CounterType = "unread_messages"
	CounterFriendRequests CounterType = "friend_requests"
)

var counterTypes = []CounterType{CounterUnreadMessages, CounterFriendRequests}

// CounterService - счетчики пользователя в Redis. Инкремент выполняется
// Lua-скриптом, чтобы значение не уходило в минус при встречных сбросах.
// Без Redis сервис работает как no-op: счетчики не обязаны переживать
// деградацию кэша и никогда не ломают основную операцию.
type CounterService struct {
	client *redis.Client
}

var (
	counterServiceInstance *CounterService
	counterServiceOnce     sync.Once
)

// GetCounterService возвращает singleton поверх глобального RedisClient
func GetCounterService() *CounterService {
	counterServiceOnce.Do(func() {
		counterServiceInstance = NewCounterService(RedisClient)
	})
	return counterServiceInstance
}

func NewCounterService(client *redis.Client) *CounterService {
	return &CounterService{client: client}
}

var incrementCounterScript = redis.NewScript(`
	local key = KEYS[1]
	local delta = tonumber(ARGV[1])
	local value = redis.call('INCRBY', key, delta)
	if value < 0 then
		redis.call('SET', key, 0)
		value = 0
	end
	redis.call('EXPIRE', key, tonumber(ARGV[2]))
	return value
`)

const counterTTLSeconds = 30 * 24 * 3600

func counterKey(userID int64, counterType CounterType) string {
	return fmt.Sprintf("counter:%s:%d", counterType, userID)
}

// Increment атомарно увеличивает счетчик
func (s *CounterService) Increment(ctx context.Context, userID int64, counterType CounterType) error {
	return s.add(ctx, userID, counterType, 1)
}

// Decrement атомарно уменьшает счетчик, не опускаясь ниже нуля
func (s *CounterService) Decrement(ctx context.Context, userID int64, counterType CounterType) error {
	return s.add(ctx, userID, counterType, -1)
}

func (s *CounterService) add(ctx context.Context, userID int64, counterType CounterType, delta int64) error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return incrementCounterScript.Run(ctx, s.client,
		[]string{counterKey(userID, counterType)},
		delta, counterTTLSeconds,
	).Err()
}

// Reset обнуляет счетчик (пользователь прочитал соответствующие данные)
func (s *CounterService) Reset(ctx context.Context, userID int64, counterType CounterType) error {
	if s.client == nil {
		return nil
	}
	return s.client.Del(ctx, counterKey(userID, counterType)).Err()
}

// Get возвращает значение счетчика
func (s *CounterService) Get(ctx context.Context, userID int64, counterType CounterType) (int64, error) {
	if s.client == nil {
		return 0, nil
	}
	val, err := s.client.Get(ctx, counterKey(userID, counterType)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

// GetAll возвращает все счетчики пользователя
func (s *CounterService) GetAll(ctx context.Context, userID int64) (map[CounterType]int64, error) {
	counters := make(map[CounterType]int64, len(counterTypes))
	for _, counterType := range counterTypes {
		value, err := s.Get(ctx, userID, counterType)
		if err != nil {
			return nil, err
		}
		counters[counterType] = value
	}
	return counters, nil
}
