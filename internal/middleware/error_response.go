package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/golazo/internal/model"
)

// detailResponse はAPIエラーレスポンスの統一フォーマット。
// 全エラーを {"detail": "<メッセージ>"} の1形式で返す。
type detailResponse struct {
	Detail string `json:"detail"`
}

// WriteError は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteError(w http.ResponseWriter, statusCode int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(detailResponse{Detail: detail})
}

// WriteAPIError はmodel.APIErrorを統一エラーフォーマットで書き込む。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	WriteError(w, apiErr.Status, apiErr.Detail)
}
