package model

import (
	"errors"
	"fmt"
)

// 认证与持久化操作的错误分类。所有错误都以返回值形式传播，
// 由上层决定如何呈现，底层不会直接中断进程。
var (
	// ErrDuplicateUser 表示注册时邮箱已被占用。
	ErrDuplicateUser = errors.New("user already exists")
	// ErrInvalidCredentials 表示登录时邮箱不存在或密码不匹配。
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMalformedState 表示持久化数据无法解析。携带此错误的状态会被
	// 重置为空，而不会导致启动失败。
	ErrMalformedState = errors.New("malformed persisted state")
)

// StorageError 表示底层键值存储的读写失败（例如磁盘或 Redis 故障）。
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError 包装一次存储操作的失败。
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
