// Package storage 提供字符串键值存储抽象。它模拟原有前端在浏览器
// localStorage 中的持久化语义：字符串键、JSON 序列化的值、整体覆盖写入。
package storage

import (
	"context"
	"errors"
)

// 持久化状态使用的键名，与既有存储格式保持一致。
const (
	// KeySession 保存当前会话；登出状态下该键不存在。
	KeySession = "mock_session"
	// KeyUsers 保存邮箱到凭证条目的映射。
	KeyUsers = "mock_users"
	// KeyMessages 保存完整的聊天记录序列。
	KeyMessages = "mock_chat_messages"
)

// ErrNotFound 表示键不存在。
var ErrNotFound = errors.New("storage: key not found")

// Store 定义了键值存储的操作接口，值为 JSON 序列化后的字节。
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
}
