// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"time"

	"smart-chat-go/internal/model"
	"smart-chat-go/internal/repository"
	"smart-chat-go/pkg/token"
)

// MessageService 定义了聊天记录业务逻辑的接口。
type MessageService interface {
	// Append 为指定用户追加一条问答记录。不校验用户是否存在。
	Append(ctx context.Context, userID, message, response string) (*model.ChatMessage, error)
	// ListByUser 返回指定用户的全部记录，按创建时间升序。
	ListByUser(ctx context.Context, userID string) ([]model.ChatMessage, error)
}

type messageService struct {
	repo repository.MessageRepository
}

// NewMessageService 创建一个新的 MessageService 实例。
func NewMessageService(repo repository.MessageRepository) MessageService {
	return &messageService{repo: repo}
}

// Append 构造一条带新生成 ID 与当前时间戳的记录并持久化。
func (s *messageService) Append(ctx context.Context, userID, message, response string) (*model.ChatMessage, error) {
	record := &model.ChatMessage{
		ID:        token.GenerateRandomString(8),
		UserID:    userID,
		Message:   message,
		Response:  response,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Append(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// ListByUser 获取用户的完整聊天历史。
func (s *messageService) ListByUser(ctx context.Context, userID string) ([]model.ChatMessage, error) {
	return s.repo.ListByUser(ctx, userID)
}
