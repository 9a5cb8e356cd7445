package model

// APIError はクライアントに返すAPIエラーを表す。
// ワイヤーフォーマットは全エラー共通で {"detail": "<メッセージ>"} とする。
type APIError struct {
	Status int    // HTTPステータスコード
	Detail string // レスポンスの detail フィールドに載せるメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return e.Detail
}

// 固定メッセージ。認証失敗は原因によらず同一文言を返す。
const (
	DetailInvalidCredentials = "invalid credentials"
	DetailProfileNotFound    = "profile not found"
)

// NewUnauthorizedError は認証失敗エラーを生成する。
// トークン欠落・不正・失効・検証サービスへの到達失敗のいずれであっても
// 同じメッセージを返す（原因は呼び出し側でログにのみ残す）。
func NewUnauthorizedError() *APIError {
	return &APIError{Status: 401, Detail: DetailInvalidCredentials}
}

// NewProfileNotFoundError はプロフィール未登録エラーを生成する。
func NewProfileNotFoundError() *APIError {
	return &APIError{Status: 404, Detail: DetailProfileNotFound}
}
