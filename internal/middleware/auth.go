// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/golazo/internal/auth"
	"github.com/hitoshi/golazo/internal/metrics"
	"github.com/hitoshi/golazo/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// claimContextKey はリクエストコンテキストにID情報を格納するためのキー。
var claimContextKey = contextKey("identity_claim")

// claimHolderContextKey はロギングミドルウェアが先に仕込むholderのキー。
var claimHolderContextKey = contextKey("identity_claim_holder")

// claimHolder は外側のミドルウェアが認証結果を観測するための入れ物。
// 認証ミドルウェアはロギングより内側で動き、派生リクエストにクレームを
// 付与するため、外側からはContext経由で直接参照できない。
// ロギングミドルウェアがholderをContextに仕込み、認証成功時にここへ書き込む。
type claimHolder struct {
	claim *auth.IdentityClaim
}

// storeClaim はContext内のholderが存在すれば認証結果を書き込む。
func storeClaim(ctx context.Context, claim *auth.IdentityClaim) {
	if holder, ok := ctx.Value(claimHolderContextKey).(*claimHolder); ok {
		holder.claim = claim
	}
}

// TokenVerifier はトークン検証に必要なインターフェース。
// auth.Verifierの部分集合として定義する。
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, token string) (*auth.IdentityClaim, error)
}

// NewAuthMiddleware はAuthorizationヘッダーのベアラートークンを検証し、
// ID情報をリクエストコンテキストに注入するミドルウェアを返す。
//
// "Bearer " プレフィックスは付いていれば除去し、付いていなければ
// ヘッダー値をそのまま検証に渡す。
// ヘッダー欠落・トークン不正・失効・発行者への到達失敗は、原因によらず
// すべて401と固定メッセージで応答する。原因はログにのみ残す。
// 検証に失敗したリクエストは後続のハンドラーに到達しない。
// recorderはnilでもよい（メトリクスを記録しない）。
func NewAuthMiddleware(verifier TokenVerifier, recorder metrics.AuthRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("Authorization")
			if raw == "" {
				slog.Warn("auth failed: missing authorization header",
					slog.String("path", r.URL.Path),
				)
				if recorder != nil {
					recorder.RecordAuthFailure()
				}
				WriteAPIError(w, model.NewUnauthorizedError())
				return
			}

			token := strings.TrimPrefix(raw, "Bearer ")

			claim, err := verifier.VerifyIDToken(r.Context(), token)
			if err != nil {
				slog.Warn("auth failed: token verification",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				if recorder != nil {
					recorder.RecordAuthFailure()
				}
				WriteAPIError(w, model.NewUnauthorizedError())
				return
			}

			storeClaim(r.Context(), claim)
			ctx := context.WithValue(r.Context(), claimContextKey, claim)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimFromContext はリクエストコンテキストからID情報を取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func ClaimFromContext(ctx context.Context) (*auth.IdentityClaim, error) {
	claim, ok := ctx.Value(claimContextKey).(*auth.IdentityClaim)
	if !ok || claim == nil {
		return nil, fmt.Errorf("identity claim not found in context")
	}
	return claim, nil
}

// ContextWithClaim はコンテキストにID情報を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithClaim(ctx context.Context, claim *auth.IdentityClaim) context.Context {
	return context.WithValue(ctx, claimContextKey, claim)
}
