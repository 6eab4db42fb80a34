package httpclient

import (
	"context"
	"fmt"
	"time"

	"resty.dev/v3"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPClientConfig 配置参数
type HTTPClientConfig struct {
	Timeout      time.Duration // 请求超时时间
	RateLimit    int           // 每分钟请求次数, 0 为不限流
	MaxRetries   int           // 最大重试次数
	UserAgent    string
	APIKeyHeader string // 例如 x-cg-pro-api-key
	APIKey       string
}

// HTTPClient 带限流的 JSON 客户端
type HTTPClient struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// NewHTTPClient 创建一个新的 HTTP 客户端
func NewHTTPClient(cfg HTTPClientConfig, logger *zap.Logger) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RateLimit)/60), 1)
	}

	c := &HTTPClient{logger: logger, limiter: limiter}
	c.client = resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		AddRequestMiddleware(func(_ *resty.Client, r *resty.Request) error {
			if err := c.limiter.Wait(r.Context()); err != nil {
				logger.Warn("Rate limiter wait failed", zap.Error(err))
				return err
			}
			if cfg.UserAgent != "" {
				r.SetHeader("User-Agent", cfg.UserAgent)
			}
			if cfg.APIKeyHeader != "" && cfg.APIKey != "" {
				r.SetHeader(cfg.APIKeyHeader, cfg.APIKey)
			}
			logger.Debug("Outgoing request", zap.String("url", r.URL))
			return nil
		})
	return c
}

// Close 释放底层连接
func (c *HTTPClient) Close() error {
	return c.client.Close()
}

// GetJSON 发起 GET 请求并把响应体解码到 out
func (c *HTTPClient) GetJSON(ctx context.Context, url string, queryParams map[string]string, out any) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(queryParams).
		SetHeader("Accept", "application/json").
		SetResult(out).
		Get(url)
	if err != nil {
		c.logger.Error("HTTP GET request failed", zap.String("url", url), zap.Error(err))
		return err
	}

	if resp.StatusCode() >= 400 {
		c.logger.Warn("HTTP request failed", zap.Int("status", resp.StatusCode()), zap.String("url", url))
		return &HTTPError{Code: resp.StatusCode(), Message: resp.String()}
	}
	return nil
}

// HTTPError 非 2xx 响应
type HTTPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.Code, e.Message)
}
