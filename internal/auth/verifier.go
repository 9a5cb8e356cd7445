package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/golazo/internal/metrics"
)

// defaultCertsURL は発行者（securetoken）の公開鍵証明書エンドポイント。
// kidをキーにしたx509証明書PEMのJSONマップを返す。
const defaultCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

// issuerPrefix はIDトークンのissクレームの固定プレフィックス。
const issuerPrefix = "https://securetoken.google.com/"

// IdentityClaim はベアラートークン検証後に得られるリクエスト単位のID情報。
// 永続化はしない。
type IdentityClaim struct {
	UID   string
	Email string
}

// Verifier はベアラートークンの検証インターフェース。
// ハンドラー層とミドルウェアはこのインターフェースにのみ依存し、
// テストではインメモリのフェイクに差し替える。
type Verifier interface {
	// VerifyIDToken はIDトークンを検証し、ID情報を返す。
	VerifyIDToken(ctx context.Context, token string) (*IdentityClaim, error)
}

// GoogleIDTokenVerifier は発行者の公開鍵証明書を取得し、
// RS256署名のIDトークンをローカル検証するVerifier実装。
// 証明書はCache-Controlのmax-ageに従ってプロセス内にキャッシュする。
type GoogleIDTokenVerifier struct {
	projectID  string
	httpClient *http.Client
	logger     *slog.Logger
	recorder   metrics.UpstreamRecorder
	certsURL   string           // テスト用にエンドポイントを差し替え可能
	now        func() time.Time // テスト用に差し替え可能な時計

	mu          sync.Mutex
	cachedCerts map[string]*rsa.PublicKey
	certsExpiry time.Time
}

// NewGoogleIDTokenVerifier はGoogleIDTokenVerifierを生成する。
// recorderはnilでもよい（メトリクスを記録しない）。
func NewGoogleIDTokenVerifier(projectID string, httpClient *http.Client, logger *slog.Logger, recorder metrics.UpstreamRecorder) *GoogleIDTokenVerifier {
	return &GoogleIDTokenVerifier{
		projectID:  projectID,
		httpClient: httpClient,
		logger:     logger,
		recorder:   recorder,
		certsURL:   defaultCertsURL,
		now:        time.Now,
	}
}

// VerifyIDToken はIDトークンの署名・発行者・対象・有効期限を検証する。
// 検証項目:
//   - ヘッダーのkidに対応する発行者の証明書でRS256署名を検証
//   - iss == https://securetoken.google.com/<projectID>
//   - aud == projectID
//   - exp/iat（jwtライブラリの標準検証）
//   - subが空でないこと
func (v *GoogleIDTokenVerifier) VerifyIDToken(ctx context.Context, tokenString string) (*IdentityClaim, error) {
	parsed, err := jwt.Parse(tokenString,
		func(token *jwt.Token) (any, error) {
			kid, ok := token.Header["kid"].(string)
			if !ok || kid == "" {
				return nil, fmt.Errorf("token has no kid header")
			}
			return v.publicKey(ctx, kid)
		},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(issuerPrefix+v.projectID),
		jwt.WithAudience(v.projectID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return v.now() }),
	)
	if err != nil {
		return nil, fmt.Errorf("id token verification failed: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("id token has empty sub claim")
	}

	email, _ := claims["email"].(string)

	return &IdentityClaim{UID: sub, Email: email}, nil
}

// publicKey はkidに対応するRSA公開鍵を返す。
// キャッシュが有効ならキャッシュから、そうでなければ証明書エンドポイントから取得する。
func (v *GoogleIDTokenVerifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.cachedCerts == nil || !v.now().Before(v.certsExpiry) {
		certs, maxAge, err := v.fetchCerts(ctx)
		if err != nil {
			return nil, err
		}
		v.cachedCerts = certs
		v.certsExpiry = v.now().Add(maxAge)
	}

	key, ok := v.cachedCerts[kid]
	if !ok {
		return nil, fmt.Errorf("no certificate found for kid %q", kid)
	}
	return key, nil
}

// fetchCerts は発行者の証明書エンドポイントからkid別の公開鍵を取得する。
// 2番目の戻り値はCache-Controlのmax-ageから決めたキャッシュ有効期間。
func (v *GoogleIDTokenVerifier) fetchCerts(ctx context.Context) (map[string]*rsa.PublicKey, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.certsURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create certs request: %w", err)
	}

	start := v.now()
	resp, err := v.httpClient.Do(req)
	if err != nil {
		v.logger.Error("certs endpoint request failed",
			slog.String("error", err.Error()),
		)
		if v.recorder != nil {
			v.recorder.RecordUpstream(metrics.TargetIssuer, 0, time.Since(start))
		}
		return nil, 0, fmt.Errorf("certs request failed: %w", err)
	}
	defer resp.Body.Close()

	if v.recorder != nil {
		v.recorder.RecordUpstream(metrics.TargetIssuer, resp.StatusCode, time.Since(start))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read certs response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		v.logger.Error("certs endpoint returned error status",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, 0, fmt.Errorf("certs fetch failed with status %d", resp.StatusCode)
	}

	var pemCerts map[string]string
	if err := json.Unmarshal(body, &pemCerts); err != nil {
		return nil, 0, fmt.Errorf("failed to parse certs response: %w", err)
	}

	certs := make(map[string]*rsa.PublicKey, len(pemCerts))
	for kid, pemCert := range pemCerts {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemCert))
		if err != nil {
			return nil, 0, fmt.Errorf("failed to parse certificate for kid %q: %w", kid, err)
		}
		certs[kid] = key
	}

	return certs, parseMaxAge(resp.Header.Get("Cache-Control")), nil
}

// parseMaxAge はCache-Controlヘッダーからmax-ageを秒単位で取り出す。
// 見つからない場合は0を返す（次回の検証で再取得する）。
func parseMaxAge(cacheControl string) time.Duration {
	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)
		if value, ok := strings.CutPrefix(directive, "max-age="); ok {
			seconds, err := strconv.Atoi(value)
			if err != nil {
				return 0
			}
			return time.Duration(seconds) * time.Second
		}
	}
	return 0
}

// compile-time interface check
var _ Verifier = (*GoogleIDTokenVerifier)(nil)
