package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessageAndGetConversation(t *testing.T) {
	setupTestDB(t)
	service := NewChatService(NewUserService())
	ctx := context.Background()

	alice := createTestUser(t, "Alice")
	bob := createTestUser(t, "Bob")

	sent, err := service.SendMessage(ctx, alice.ID, bob.ID, "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi", sent.Content)
	assert.Equal(t, alice.ID, sent.SenderID)
	assert.Equal(t, "Alice", sent.SenderName)
	assert.Equal(t, bob.ID, sent.ReceiverID)
	assert.Equal(t, "Bob", sent.ReceiverName)

	// Переписка симметрична: обе стороны видят одно и то же
	for _, userID := range []int64{alice.ID, bob.ID} {
		otherID := alice.ID + bob.ID - userID
		messages, err := service.GetConversation(ctx, userID, otherID)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, "hi", messages[0].Content)
		assert.Equal(t, alice.ID, messages[0].SenderID)
	}
}

func TestSendMessageEmptyContent(t *testing.T) {
	setupTestDB(t)
	service := NewChatService(NewUserService())
	ctx := context.Background()

	alice := createTestUser(t, "Alice")
	bob := createTestUser(t, "Bob")

	_, err := service.SendMessage(ctx, alice.ID, bob.ID, "   ")
	assert.ErrorIs(t, err, ErrInvalidOperation)

	messages, err := service.GetConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestSendMessageUnknownReceiver(t *testing.T) {
	setupTestDB(t)
	service := NewChatService(NewUserService())

	alice := createTestUser(t, "Alice")

	_, err := service.SendMessage(context.Background(), alice.ID, alice.ID+100, "hi")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetConversationOrderedOldestFirst(t *testing.T) {
	setupTestDB(t)
	service := NewChatService(NewUserService())
	ctx := context.Background()

	alice := createTestUser(t, "Alice")
	bob := createTestUser(t, "Bob")

	contents := []string{"first", "second", "third"}
	for i, content := range contents {
		senderID, receiverID := alice.ID, bob.ID
		if i%2 == 1 {
			senderID, receiverID = bob.ID, alice.ID
		}
		_, err := service.SendMessage(ctx, senderID, receiverID, content)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	messages, err := service.GetConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	for i, content := range contents {
		assert.Equal(t, content, messages[i].Content)
	}
	assert.Equal(t, bob.ID, messages[1].SenderID)
	assert.Equal(t, "Bob", messages[1].SenderName)
}
