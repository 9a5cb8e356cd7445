// Package football は外部フットボールデータプロバイダーのAPIクライアントを提供する。
// 全操作は1回のHTTP GETのパススルーで、レスポンスのペイロードは加工しない。
// リトライもキャッシュも行わず、毎回新規のネットワーク呼び出しを発行する。
package football

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/golazo/internal/metrics"
)

// apiKeyHeader はプロバイダーが要求する固定APIキーヘッダー。
const apiKeyHeader = "X-Auth-Token"

// dateLayout はプロバイダーのdateクエリパラメータの書式（YYYY-MM-DD）。
const dateLayout = "2006-01-02"

// MatchesPage はプロバイダーの /matches レスポンス。
// 個々の試合レコードはパースせずそのまま通す。
type MatchesPage struct {
	Matches []json.RawMessage `json:"matches"`
}

// Client は外部フットボールデータプロバイダーのHTTPクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	recorder   metrics.UpstreamRecorder
	baseURL    string
	apiKey     string
	now        func() time.Time // テスト用に差し替え可能な時計
}

// NewClient はClientの新しいインスタンスを生成する。
// recorderはnilでもよい（メトリクスを記録しない）。
func NewClient(httpClient *http.Client, logger *slog.Logger, recorder metrics.UpstreamRecorder, baseURL, apiKey string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		recorder:   recorder,
		baseURL:    baseURL,
		apiKey:     apiKey,
		now:        time.Now,
	}
}

// Matches は試合一覧を取得する。
// dateが空でない場合のみ date=YYYY-MM-DD のクエリフィルタを付ける。
func (c *Client) Matches(ctx context.Context, date string) (*MatchesPage, error) {
	query := url.Values{}
	if date != "" {
		query.Set("date", date)
	}
	return c.fetchMatches(ctx, query)
}

// LiveMatches はライブ中の試合一覧を取得する。固定フィルタ status=LIVE を付ける。
func (c *Client) LiveMatches(ctx context.Context) (*MatchesPage, error) {
	query := url.Values{}
	query.Set("status", "LIVE")
	return c.fetchMatches(ctx, query)
}

// TodaysMatches はサーバーローカルの今日の日付で試合一覧を取得する。
func (c *Client) TodaysMatches(ctx context.Context) (*MatchesPage, error) {
	return c.Matches(ctx, c.Today())
}

// Today はサーバーローカルの今日の日付をYYYY-MM-DD形式で返す。
func (c *Client) Today() string {
	return c.now().Format(dateLayout)
}

// Standings は指定された大会の順位表を取得し、プロバイダーのJSONをそのまま返す。
func (c *Client) Standings(ctx context.Context, competitionID string) (json.RawMessage, error) {
	return c.get(ctx, "/competitions/"+url.PathEscape(competitionID)+"/standings", nil)
}

// fetchMatches は /matches を取得してMatchesPageにパースする。
func (c *Client) fetchMatches(ctx context.Context, query url.Values) (*MatchesPage, error) {
	body, err := c.get(ctx, "/matches", query)
	if err != nil {
		return nil, err
	}

	var page MatchesPage
	if err := json.Unmarshal(body, &page); err != nil {
		c.logger.Error("failed to parse matches response",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to parse matches response: %w", err)
	}
	return &page, nil
}

// get はAPIキーヘッダー付きのGETを1回発行し、2xxのボディを返す。
// リトライ・ステータス別の分岐は行わない（失敗はそのまま呼び出し元に伝える）。
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("football provider request failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		if c.recorder != nil {
			c.recorder.RecordUpstream(metrics.TargetFootball, 0, time.Since(start))
		}
		return nil, fmt.Errorf("football provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if c.recorder != nil {
		c.recorder.RecordUpstream(metrics.TargetFootball, resp.StatusCode, time.Since(start))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("football provider returned error status",
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("football provider returned status %d", resp.StatusCode)
	}

	return body, nil
}
