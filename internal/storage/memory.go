package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// MemoryStore 进程内内容寻址存储，本地模式与测试使用。
// 内容标识是数据的SHA-256摘要，同样的字节永远得到同样的标识
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	tags  map[string][]Tag
}

// NewMemoryStore 创建进程内存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[string][]byte),
		tags:  make(map[string][]Tag),
	}
}

// Put 存入数据，返回内容标识
func (s *MemoryStore) Put(ctx context.Context, data []byte, tags []Tag) (string, error) {
	sum := sha256.Sum256(data)
	contentId := hex.EncodeToString(sum[:])

	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]byte, len(data))
	copy(copied, data)
	s.blobs[contentId] = copied
	s.tags[contentId] = append([]Tag(nil), tags...)

	return contentId, nil
}

// Get 按内容标识取回数据
func (s *MemoryStore) Get(ctx context.Context, contentId string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[contentId]
	if !ok {
		return nil, ErrNotFound
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, nil
}

// Tags 查询内容的上传标签
func (s *MemoryStore) Tags(contentId string) ([]Tag, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tags, ok := s.tags[contentId]
	if !ok {
		return nil, false
	}
	return append([]Tag(nil), tags...), true
}
