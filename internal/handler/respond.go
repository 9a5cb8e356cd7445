// Package handler は公開HTTPサーフェスのハンドラー層を提供する。
// 各ハンドラーは認証済みリクエストを受け取り、委譲先クライアントの結果を
// HTTPレスポンスにマッピングする。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/golazo/internal/middleware"
	"github.com/hitoshi/golazo/internal/model"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// handleDelegateError は委譲先から返されたエラーをHTTPレスポンスに変換する。
// model.APIErrorはそのステータスと文言で応答し、それ以外は
// 500とエラーメッセージそのものをdetailに載せて応答する。
func handleDelegateError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteError(w, apiErr.Status, apiErr.Detail)
		return
	}

	slog.Error("delegate call failed", slog.String("error", err.Error()))
	middleware.WriteError(w, http.StatusInternalServerError, err.Error())
}
