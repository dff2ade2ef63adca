package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"note-sync/app/config"
	"note-sync/app/logger"

	"resty.dev/v3"
)

// ErrNotFound 远端记录不存在
var ErrNotFound = errors.New("远端记录不存在")

// RemoteError 远端返回的业务错误或非 2xx 状态
type RemoteError struct {
	Status int
	Code   int
	Msg    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("远端错误: status=%d code=%d msg=%s", e.Status, e.Code, e.Msg)
}

func (e *RemoteError) Is(target error) bool {
	return target == ErrNotFound && (e.Status == http.StatusNotFound || e.Code == http.StatusNotFound)
}

// envelope 远端统一响应格式，code 为 0 表示成功
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// Client 远端存储的 HTTP 客户端，三个网关共享
type Client struct {
	http *resty.Client
	log  *logger.Logger
}

// NewClient 创建远端客户端
func NewClient(cfg config.RemoteConfig, log *logger.Logger) *Client {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	if cfg.TimeoutSeconds > 0 {
		client.SetTimeout(cfg.Timeout())
	}
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}
	client.SetHeader("Accept", "application/json")

	return &Client{http: client, log: log.Named("gateway")}
}

// Close 释放底层连接
func (c *Client) Close() error {
	return c.http.Close()
}

// do 发送请求并把 data 字段解码到 out（out 可为 nil）
func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body, out any) error {
	var result, failure envelope

	req := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&failure)
	if query != nil {
		req.SetQueryParams(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("请求 %s %s 失败: %w", method, path, err)
	}

	if resp.IsError() {
		return &RemoteError{Status: resp.StatusCode(), Code: failure.Code, Msg: failure.Msg}
	}
	if result.Code != 0 {
		return &RemoteError{Status: resp.StatusCode(), Code: result.Code, Msg: result.Msg}
	}

	if out == nil || len(result.Data) == 0 || string(result.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("解析 %s 响应失败: %w", path, err)
	}
	return nil
}
