package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"smart-chat-go/internal/model"
	"smart-chat-go/internal/storage"
	"smart-chat-go/pkg/log"
)

// MessageRepository 定义了聊天记录的持久化操作接口。记录是只追加的，
// 不支持修改或删除。
type MessageRepository interface {
	Append(ctx context.Context, message *model.ChatMessage) error
	// ListByUser 返回指定用户的全部记录，按 created_at 升序；
	// 时间戳相同的记录保持追加顺序。
	ListByUser(ctx context.Context, userID string) ([]model.ChatMessage, error)
}

// kvMessageRepository 把完整的记录序列作为单个 JSON 值保存在键值存储中。
type kvMessageRepository struct {
	store storage.Store

	mu       sync.Mutex
	messages []model.ChatMessage
}

// NewMessageRepository 创建基于键值存储的 MessageRepository，并加载已有记录。
// 无法解析的历史数据会被重置为空序列。
func NewMessageRepository(store storage.Store) (MessageRepository, error) {
	r := &kvMessageRepository{store: store}

	raw, err := store.Get(context.Background(), storage.KeyMessages)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return nil, model.NewStorageError("load messages", err)
	default:
		if derr := decode(raw, &r.messages); derr != nil {
			log.Warnf("聊天记录持久化数据损坏，已重置为空: %v", derr)
			r.messages = nil
		}
	}
	return r, nil
}

// Append 追加一条记录并持久化完整序列。持久化失败时回滚内存状态，
// 保证内存与存储不产生分歧。
func (r *kvMessageRepository) Append(ctx context.Context, message *model.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, *message)
	if err := r.persist(ctx); err != nil {
		r.messages = r.messages[:len(r.messages)-1]
		return err
	}
	return nil
}

// ListByUser 线性扫描序列并过滤出指定用户的记录。
func (r *kvMessageRepository) ListByUser(ctx context.Context, userID string) ([]model.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]model.ChatMessage, 0)
	for _, m := range r.messages {
		if m.UserID == userID {
			result = append(result, m)
		}
	}
	// 稳定排序：时间戳相同的记录保持追加顺序
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// persist 写入完整序列。调用方必须持有 r.mu。
func (r *kvMessageRepository) persist(ctx context.Context) error {
	raw, err := json.Marshal(r.messages)
	if err != nil {
		return model.NewStorageError("encode messages", err)
	}
	if err := r.store.Set(ctx, storage.KeyMessages, raw); err != nil {
		return model.NewStorageError("save messages", err)
	}
	return nil
}
