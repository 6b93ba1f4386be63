package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"smart-chat-go/pkg/log"
)

// fileStore 将所有键值保存在单个 JSON 文件中。每次写入都会落盘完整状态，
// 采用临时文件加重命名的方式，避免进程中断留下半写文件。
type fileStore struct {
	mu   sync.Mutex
	path string
	data map[string]json.RawMessage
}

// NewFileStore 创建一个基于本地文件的键值存储，并加载已有内容。
// 文件不存在按空状态处理；文件内容损坏时记录警告并重置为空，不会返回错误。
func NewFileStore(path string) (Store, error) {
	s := &fileStore{path: path, data: make(map[string]json.RawMessage)}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取存储文件失败: %w", err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		log.Warnf("存储文件 '%s' 内容损坏，已重置为空状态: %v", path, err)
		s.data = make(map[string]json.RawMessage)
	}
	return s, nil
}

// Get 返回指定键的值，键不存在时返回 ErrNotFound。
func (s *fileStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set 写入指定键的值并立即落盘。
func (s *fileStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.data[key] = stored
	return s.flush()
}

// Del 删除指定键并立即落盘。删除不存在的键不算错误。
func (s *fileStore) Del(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.flush()
}

// flush 将完整状态写入磁盘。调用方必须持有 s.mu。
func (s *fileStore) flush() error {
	raw, err := json.Marshal(s.data)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
