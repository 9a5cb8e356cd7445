package middleware

import "net/http"

// NewCORSMiddleware はCORSミドルウェアを返す。
// allowedOriginが "*" の場合は全オリジンを許可する。credentials送信と共存させるため、
// ワイルドカードをそのまま返さずリクエストのOriginをエコーバックする。
// 全メソッド・全ヘッダーを許可する。ヘッダーはワイルドカード指定が
// credentialsと共存できないため、プリフライトで要求されたヘッダーをエコーバックする。
// OPTIONSプリフライトリクエストには204で応答する。
func NewCORSMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := allowedOrigin
			if origin == "*" {
				if requestOrigin := r.Header.Get("Origin"); requestOrigin != "" {
					origin = requestOrigin
				}
				w.Header().Add("Vary", "Origin")
			}

			allowHeaders := "Authorization, Content-Type"
			if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
				allowHeaders = requested
			}
			w.Header().Add("Vary", "Access-Control-Request-Headers")

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
