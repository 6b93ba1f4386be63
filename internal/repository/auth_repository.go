// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"smart-chat-go/internal/model"
	"smart-chat-go/internal/storage"
	"smart-chat-go/pkg/log"
)

// AuthState 是认证子系统的完整持久化状态：凭证表与当前会话。
type AuthState struct {
	Users   map[string]model.Credential
	Session *model.Session
}

// AuthRepository 定义了认证状态的持久化操作接口。
type AuthRepository interface {
	// Load 在启动时读取完整状态。无法解析的数据会被重置为空，
	// 只有底层存储读失败才返回错误。
	Load(ctx context.Context) (*AuthState, error)
	SaveUsers(ctx context.Context, users map[string]model.Credential) error
	// SaveSession 持久化当前会话；session 为 nil 时删除对应的键。
	SaveSession(ctx context.Context, session *model.Session) error
}

// kvAuthRepository 是 AuthRepository 基于键值存储的实现。
type kvAuthRepository struct {
	store storage.Store
}

// NewAuthRepository 创建一个新的 AuthRepository 实例。
func NewAuthRepository(store storage.Store) AuthRepository {
	return &kvAuthRepository{store: store}
}

// Load 读取凭证表与当前会话。
func (r *kvAuthRepository) Load(ctx context.Context) (*AuthState, error) {
	state := &AuthState{Users: make(map[string]model.Credential)}

	raw, err := r.store.Get(ctx, storage.KeyUsers)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		// 尚未注册过任何用户
	case err != nil:
		return nil, model.NewStorageError("load users", err)
	default:
		if derr := decode(raw, &state.Users); derr != nil {
			log.Warnf("用户表持久化数据损坏，已重置为空: %v", derr)
			state.Users = make(map[string]model.Credential)
		}
	}

	raw, err = r.store.Get(ctx, storage.KeySession)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		// 登出状态
	case err != nil:
		return nil, model.NewStorageError("load session", err)
	default:
		var session model.Session
		if derr := decode(raw, &session); derr != nil {
			log.Warnf("会话持久化数据损坏，已按登出状态处理: %v", derr)
		} else {
			state.Session = &session
		}
	}

	return state, nil
}

// SaveUsers 将完整的凭证表写入存储。
func (r *kvAuthRepository) SaveUsers(ctx context.Context, users map[string]model.Credential) error {
	raw, err := json.Marshal(users)
	if err != nil {
		return model.NewStorageError("encode users", err)
	}
	if err := r.store.Set(ctx, storage.KeyUsers, raw); err != nil {
		return model.NewStorageError("save users", err)
	}
	return nil
}

// SaveSession 将当前会话写入存储，nil 表示清除。
func (r *kvAuthRepository) SaveSession(ctx context.Context, session *model.Session) error {
	if session == nil {
		if err := r.store.Del(ctx, storage.KeySession); err != nil {
			return model.NewStorageError("clear session", err)
		}
		return nil
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return model.NewStorageError("encode session", err)
	}
	if err := r.store.Set(ctx, storage.KeySession, raw); err != nil {
		return model.NewStorageError("save session", err)
	}
	return nil
}

// decode 解析持久化的 JSON 值，失败时返回携带 ErrMalformedState 的错误。
func decode(raw []byte, v interface{}) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", model.ErrMalformedState, err)
	}
	return nil
}
