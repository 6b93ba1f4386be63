package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-chat-go/internal/config"
	"smart-chat-go/internal/model"
	"smart-chat-go/internal/repository"
)

// 完整走一遍典型用户旅程：注册、错误密码、登录、聊天、登出。
func TestUserJourney(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	auth := newTestAuthService(t, store)
	messageRepo, err := repository.NewMessageRepository(store)
	require.NoError(t, err)
	messages := NewMessageService(messageRepo)
	responder := NewResponderService(config.MockConfig{})

	var notifications []*model.Session
	unsub := auth.Subscribe(func(s *model.Session) { notifications = append(notifications, s) })
	defer unsub()

	// 注册只创建用户，不建立会话
	user, err := auth.SignUp(ctx, "alice@example.com", "s3cret", "Alice")
	require.NoError(t, err)
	assert.Nil(t, auth.CurrentSession())
	assert.Empty(t, notifications)

	// 错误密码被拒绝，状态不变
	_, err = auth.SignInWithPassword(ctx, "alice@example.com", "wrong")
	require.ErrorIs(t, err, model.ErrInvalidCredentials)
	assert.Nil(t, auth.CurrentSession())
	assert.Empty(t, notifications)

	// 正确密码登录，订阅者收到新会话
	session, err := auth.SignInWithPassword(ctx, "alice@example.com", "s3cret")
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	require.NotNil(t, notifications[0])
	assert.Equal(t, session.AccessToken, notifications[0].AccessToken)

	// 聊天：生成回答并追加记录
	reply := responder.GenerateResponse(ctx, "hello")
	record, err := messages.Append(ctx, user.ID, "hello", reply)
	require.NoError(t, err)

	history, err := messages.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, record.ID, history[0].ID)
	assert.Equal(t, "hello", history[0].Message)
	assert.Contains(t, history[0].Response, "I'm your AI assistant")

	// 登出清空会话并通知订阅者，聊天记录保留
	require.NoError(t, auth.SignOut(ctx))
	assert.Nil(t, auth.CurrentSession())
	require.Len(t, notifications, 2)
	assert.Nil(t, notifications[1])

	history, err = messages.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
