package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ipfsnut/birthdays-with-jose/internal/config"
)

// GatewayStore 上传微服务客户端。网关把字节转存到永久内容寻址网络，
// 返回不透明的内容标识
type GatewayStore struct {
	baseURL string
	client  *http.Client
}

// NewGatewayStore 创建上传网关客户端
func NewGatewayStore(cfg config.StorageConfig) (*GatewayStore, error) {
	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("storage gateway url is required")
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &GatewayStore{
		baseURL: cfg.GatewayURL,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type uploadRequest struct {
	Data []byte `json:"data"`
	Tags []Tag  `json:"tags"`
}

type uploadResponse struct {
	Id string `json:"id"`
}

// Put 上传数据到网关
func (s *GatewayStore) Put(ctx context.Context, data []byte, tags []Tag) (string, error) {
	body, err := json.Marshal(uploadRequest{Data: data, Tags: tags})
	if err != nil {
		return "", fmt.Errorf("failed to encode upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/upload", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("upload gateway returned status %d", resp.StatusCode)
	}

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if result.Id == "" {
		return "", fmt.Errorf("upload gateway returned empty content id")
	}

	return result.Id, nil
}

// Get 按内容标识从网关取回数据
func (s *GatewayStore) Get(ctx context.Context, contentId string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"/content/"+url.PathEscape(contentId), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build content request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("content request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content gateway returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read content body: %w", err)
	}

	return data, nil
}
