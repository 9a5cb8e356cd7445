package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/golazo/internal/metrics"
)

const (
	// jwtBearerGrantType はOAuth2 JWTベアラーグラントの種別識別子。
	jwtBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	// firebaseScopes はRTDBアクセスに必要なOAuth2スコープ。
	firebaseScopes = "https://www.googleapis.com/auth/firebase.database https://www.googleapis.com/auth/userinfo.email"
	// assertionLifetime は署名するグラントJWTの有効期間。
	assertionLifetime = time.Hour
	// tokenExpirySkew はキャッシュ済みトークンを期限切れ扱いにする余裕時間。
	tokenExpirySkew = time.Minute
)

// TokenSource はアップストリーム呼び出しに使うアクセストークンの供給元。
type TokenSource interface {
	// Token は有効なアクセストークンを返す。
	Token(ctx context.Context) (string, error)
}

// ServiceAccountTokenSource はサービスアカウントのJWTベアラーグラントで
// OAuth2アクセストークンを取得するTokenSource。
// 取得したトークンは有効期限まで（余裕時間を引いて）キャッシュする。
type ServiceAccountTokenSource struct {
	account    *ServiceAccount
	httpClient *http.Client
	logger     *slog.Logger
	recorder   metrics.UpstreamRecorder
	now        func() time.Time // テスト用に差し替え可能な時計

	mu          sync.Mutex
	cachedToken string
	expiry      time.Time
}

// NewServiceAccountTokenSource はServiceAccountTokenSourceを生成する。
// recorderはnilでもよい（メトリクスを記録しない）。
func NewServiceAccountTokenSource(account *ServiceAccount, httpClient *http.Client, logger *slog.Logger, recorder metrics.UpstreamRecorder) *ServiceAccountTokenSource {
	return &ServiceAccountTokenSource{
		account:    account,
		httpClient: httpClient,
		logger:     logger,
		recorder:   recorder,
		now:        time.Now,
	}
}

// tokenResponse はトークンエンドポイントのレスポンス。
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Token はキャッシュ済みトークンが有効ならそれを返し、
// 期限切れの場合はトークンエンドポイントから再取得する。
func (s *ServiceAccountTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cachedToken != "" && s.now().Before(s.expiry) {
		return s.cachedToken, nil
	}

	token, expiresIn, err := s.exchange(ctx)
	if err != nil {
		return "", err
	}

	s.cachedToken = token
	s.expiry = s.now().Add(time.Duration(expiresIn)*time.Second - tokenExpirySkew)
	return token, nil
}

// exchange は署名済みグラントJWTをアクセストークンに交換する。
func (s *ServiceAccountTokenSource) exchange(ctx context.Context) (string, int, error) {
	assertion, err := s.signAssertion()
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token grant: %w", err)
	}

	data := url.Values{
		"grant_type": {jwtBearerGrantType},
		"assertion":  {assertion},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.account.TokenURI, strings.NewReader(data.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := s.now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("token endpoint request failed",
			slog.String("error", err.Error()),
		)
		if s.recorder != nil {
			s.recorder.RecordUpstream(metrics.TargetIssuer, 0, time.Since(start))
		}
		return "", 0, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if s.recorder != nil {
		s.recorder.RecordUpstream(metrics.TargetIssuer, resp.StatusCode, time.Since(start))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.Error("token endpoint returned error status",
			slog.Int("http_status", resp.StatusCode),
		)
		return "", 0, fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", 0, fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return "", 0, fmt.Errorf("empty access token in response")
	}

	return tokenResp.AccessToken, tokenResp.ExpiresIn, nil
}

// signAssertion はサービスアカウント鍵でRS256署名したグラントJWTを生成する。
func (s *ServiceAccountTokenSource) signAssertion() (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"iss":   s.account.ClientEmail,
		"scope": firebaseScopes,
		"aud":   s.account.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionLifetime).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(s.account.Key())
}

// compile-time interface check
var _ TokenSource = (*ServiceAccountTokenSource)(nil)
