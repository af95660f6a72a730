// Package supabase は外部プラットフォーム（認証サービスとデータAPI）のHTTPクライアントを提供する。
//
// 認証サービス（GoTrue）にはトークン検証とヘルスチェックを、
// データAPI（PostgREST）には行の検索と部分更新を問い合わせる。
// リトライやバックオフは行わない。
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	authPath = "/auth/v1"
	restPath = "/rest/v1"

	// maxErrorBodySize はエラーレスポンスとして読み取るボディの上限。
	maxErrorBodySize = 64 * 1024
)

// Config はクライアントの設定。
type Config struct {
	BaseURL        string
	AnonKey        string
	ServiceRoleKey string
	// Timeout は1リクエスト全体のタイムアウト。0の場合は無制限。
	Timeout time.Duration
}

// Observer はプラットフォームへのリクエスト結果を受け取るインターフェース。
// metrics.Collectorが実装する。
type Observer interface {
	ObservePlatformRequest(service, method string, statusCode int, duration time.Duration)
}

// Credential はリクエストに付与するAPIキーとベアラートークンの組。
type Credential struct {
	apiKey string
	bearer string
	// privileged はRLSをバイパスする資格情報かどうか。ログ出力用。
	privileged bool
}

// Privileged はRLSをバイパスする資格情報であればtrueを返す。
func (c Credential) Privileged() bool {
	return c.privileged
}

// Client はプラットフォームのHTTPクライアント。
type Client struct {
	baseURL        string
	anonKey        string
	serviceRoleKey string
	httpClient     *http.Client
	logger         *slog.Logger
	observer       Observer
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		anonKey:        cfg.AnonKey,
		serviceRoleKey: cfg.ServiceRoleKey,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		logger:         logger,
	}
}

// WithObserver はリクエスト結果の通知先を設定したClientを返す。
func (c *Client) WithObserver(o Observer) *Client {
	c.observer = o
	return c
}

// UserCredential は呼び出し元のアクセストークンで実行する資格情報を返す。
// データAPIはRLSポリシーをこのユーザーとして評価する。
func (c *Client) UserCredential(accessToken string) Credential {
	return Credential{apiKey: c.anonKey, bearer: accessToken}
}

// ServiceRoleCredential はRLSをバイパスする特権資格情報を返す。
// 管理者向け操作でのみ使用すること。
func (c *Client) ServiceRoleCredential() Credential {
	return Credential{apiKey: c.serviceRoleKey, bearer: c.serviceRoleKey, privileged: true}
}

// Error はプラットフォームが返したエラーレスポンスを表す。
// データAPIのエラーボディ（code, message, details, hint）を保持する。
type Error struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
	Hint       string `json:"hint"`
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: status %d: %s (%s)", e.StatusCode, e.Message, e.Code)
	}
	return fmt.Sprintf("supabase: status %d: %s", e.StatusCode, e.Message)
}

// do はリクエストを送信し、2xxの場合はレスポンスボディをdestにデコードする。
// destがnilの場合はボディを破棄する。
func (c *Client) do(ctx context.Context, service, method, path string, cred Credential, body any, headers map[string]string, dest any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", cred.apiKey)
	if cred.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+cred.bearer)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(service, method, 0, time.Since(start))
		return fmt.Errorf("%s request failed: %w", service, err)
	}
	defer resp.Body.Close()
	c.observe(service, method, resp.StatusCode, time.Since(start))

	c.logger.Debug("platform request",
		slog.String("service", service),
		slog.String("method", method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.Bool("privileged", cred.privileged),
		slog.Float64("duration_ms", float64(time.Since(start).Nanoseconds())/float64(time.Millisecond)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", service, err)
	}
	return nil
}

func (c *Client) observe(service, method string, status int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObservePlatformRequest(service, method, status, d)
	}
}

// decodeError はエラーレスポンスをErrorに変換する。
// ボディがJSONでない場合は本文をそのままメッセージとする。
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	apiErr := &Error{StatusCode: resp.StatusCode}

	var body struct {
		Code             any    `json:"code"`
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Details          string `json:"details"`
		Hint             string `json:"hint"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		// 認証サービスはcodeを数値で返すことがある
		if body.Code != nil {
			apiErr.Code = fmt.Sprint(body.Code)
		}
		apiErr.Details = body.Details
		apiErr.Hint = body.Hint
		for _, m := range []string{body.Message, body.Msg, body.ErrorDescription, body.Error} {
			if m != "" {
				apiErr.Message = m
				break
			}
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
