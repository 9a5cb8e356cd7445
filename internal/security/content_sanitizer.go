package security

import "github.com/microcosm-cc/bluemonday"

// ContentSanitizerService はユーザー投稿テキストのサニタイズ機能のインターフェース。
// フォーラム投稿のタイトル・本文・コメントのストア書き込み前に使用する。
type ContentSanitizerService interface {
	// Sanitize は入力からすべてのHTMLマークアップを除去して返す。
	// フォーラムのテキストはプレーンテキストとして扱うため、許可タグはない。
	// script/styleタグはその内容ごと除去される。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// フォーラムテキストにマークアップを許可しないため、StrictPolicy（全タグ除去）を使う。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からすべてのHTMLマークアップを除去して返す。
func (s *contentSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return s.policy.Sanitize(raw)
}

// compile-time interface check
var _ ContentSanitizerService = (*contentSanitizer)(nil)
