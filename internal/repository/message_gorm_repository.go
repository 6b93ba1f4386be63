package repository

import (
	"context"

	"gorm.io/gorm"

	"smart-chat-go/internal/model"
)

// gormMessageRepository 是 MessageRepository 的 MySQL 实现，
// 用于需要真实数据库而非本地文件的部署场景。
type gormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository 创建基于 GORM 的 MessageRepository，
// 并确保 chat_messages 表存在。
func NewGormMessageRepository(db *gorm.DB) (MessageRepository, error) {
	if err := db.AutoMigrate(&model.ChatMessage{}); err != nil {
		return nil, model.NewStorageError("migrate messages", err)
	}
	return &gormMessageRepository{db: db}, nil
}

// Append 插入一条新记录。
func (r *gormMessageRepository) Append(ctx context.Context, message *model.ChatMessage) error {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return model.NewStorageError("save messages", err)
	}
	return nil
}

// ListByUser 按 created_at 升序返回指定用户的记录，
// 相同时间戳时以自增序号 seq 保持追加顺序。
func (r *gormMessageRepository) ListByUser(ctx context.Context, userID string) ([]model.ChatMessage, error) {
	var messages []model.ChatMessage
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, seq ASC").
		Find(&messages).Error
	if err != nil {
		return nil, model.NewStorageError("load messages", err)
	}
	return messages, nil
}
