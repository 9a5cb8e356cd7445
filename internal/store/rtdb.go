// Package store はホスト型リアルタイムストア（パスアドレス方式のドキュメントツリー）への
// RESTクライアントを提供する。ポイント読み取り・全置換書き込み・マージ更新・
// キー採番付き追記の4操作のみを公開する。
package store

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

	"github.com/hitoshi/golazo/internal/auth"
	"github.com/hitoshi/golazo/internal/metrics"
)

// TreeClient はドキュメントツリーの操作インターフェース。
// フォーラムサービスはこのインターフェースにのみ依存し、
// テストではインメモリのフェイクに差し替える。
type TreeClient interface {
	// Get はパス配下のノードをvにデコードする。ノードが存在しない場合、
	// ストアはJSONのnullを返すため、ポインタ型のvはnilのままになる。
	Get(ctx context.Context, path string, v any) error
	// Set はパス配下のノードを全置換する。
	Set(ctx context.Context, path string, v any) error
	// Update はパス配下のノードをマージ更新する（指定フィールドのみ変更）。
	Update(ctx context.Context, path string, partial any) error
	// Push はパス配下にストア採番のキーで新しい子ノードを追加し、キーを返す。
	Push(ctx context.Context, path string, v any) (string, error)
}

// RTDBClient はFirebase Realtime Database REST APIに対するTreeClient実装。
// 各操作は <databaseURL>/<path>.json への1回のHTTP呼び出しに対応する。
type RTDBClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	recorder   metrics.UpstreamRecorder
	baseURL    string
	tokens     auth.TokenSource
}

// NewRTDBClient はRTDBClientの新しいインスタンスを生成する。
// recorderはnilでもよい（メトリクスを記録しない）。
func NewRTDBClient(httpClient *http.Client, logger *slog.Logger, recorder metrics.UpstreamRecorder, baseURL string, tokens auth.TokenSource) *RTDBClient {
	return &RTDBClient{
		httpClient: httpClient,
		logger:     logger,
		recorder:   recorder,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		tokens:     tokens,
	}
}

// Get はパス配下のノードを読み取りvにデコードする。
func (c *RTDBClient) Get(ctx context.Context, path string, v any) error {
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse store response: %w", err)
	}
	return nil
}

// Set はパス配下のノードを全置換する。
func (c *RTDBClient) Set(ctx context.Context, path string, v any) error {
	_, err := c.do(ctx, http.MethodPut, path, v)
	return err
}

// Update はパス配下のノードをマージ更新する。
func (c *RTDBClient) Update(ctx context.Context, path string, partial any) error {
	_, err := c.do(ctx, http.MethodPatch, path, partial)
	return err
}

// pushResponse はストアの追記レスポンス（採番されたキー）。
type pushResponse struct {
	Name string `json:"name"`
}

// Push はパス配下に新しい子ノードを追加し、ストアが採番したキーを返す。
func (c *RTDBClient) Push(ctx context.Context, path string, v any) (string, error) {
	body, err := c.do(ctx, http.MethodPost, path, v)
	if err != nil {
		return "", err
	}

	var resp pushResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse push response: %w", err)
	}
	if resp.Name == "" {
		return "", fmt.Errorf("store returned empty key for push")
	}
	return resp.Name, nil
}

// do はアクセストークン付きのHTTP呼び出しを1回発行し、2xxのボディを返す。
// リトライは行わない。
func (c *RTDBClient) do(ctx context.Context, method, path string, v any) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain store access token: %w", err)
	}

	var reqBody io.Reader
	if v != nil {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode store request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	reqURL := c.baseURL + "/" + strings.Trim(path, "/") + ".json"
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create store request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("store request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		if c.recorder != nil {
			c.recorder.RecordUpstream(metrics.TargetStore, 0, time.Since(start))
		}
		return nil, fmt.Errorf("store request failed: %w", err)
	}
	defer resp.Body.Close()

	if c.recorder != nil {
		c.recorder.RecordUpstream(metrics.TargetStore, resp.StatusCode, time.Since(start))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read store response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("store returned error status",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("store returned status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	return body, nil
}

// truncate はエラーメッセージ用にボディを最大n文字に切り詰める。
func truncate(b []byte, n int) string {
	s := string(b)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

// compile-time interface check
var _ TreeClient = (*RTDBClient)(nil)
