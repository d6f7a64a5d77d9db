package storage

import (
	"context"
	"errors"
)

// ErrNotFound 内容不存在或尚未传播完成
var ErrNotFound = errors.New("content not found")

// Tag 上传标签，键值对仅作检索提示
type Tag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Store 内容存储适配器。上传返回内容标识后即视为最终可取回，
// 取回失败返回ErrNotFound
type Store interface {
	Put(ctx context.Context, data []byte, tags []Tag) (string, error)
	Get(ctx context.Context, contentId string) ([]byte, error)
}
