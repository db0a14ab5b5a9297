// Package notifier 消费通知队列，把人才匹配通知转发给外部分发服务。
// 分发服务负责渲染和实际送达（邮件/站内信），这里只管可靠转交。
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"talent-bridge-go/internal/config"
	"talent-bridge-go/internal/types"
)

// DispatchClient 外部通知分发服务的HTTP客户端
type DispatchClient struct {
	url    string
	client *http.Client
}

// NewDispatchClient 创建分发服务客户端
func NewDispatchClient(cfg *config.NotifierConfig) *DispatchClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &DispatchClient{
		url: cfg.DispatchURL,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
			Timeout: timeout,
		},
	}
}

// Dispatch 将一批通知POST给分发服务。
// 非2xx状态码视为失败，由调用方决定重试策略。
func (c *DispatchClient) Dispatch(ctx context.Context, batch types.NotificationBatch) error {
	if c.url == "" {
		return fmt.Errorf("通知分发服务URL未配置")
	}

	reqBody, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("序列化通知批次失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("创建分发HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("执行分发请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("分发服务返回非2xx状态码: %d, 响应: %s", resp.StatusCode, string(bodyBytes))
	}

	// 响应体内容不关心，读完以便连接复用
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
