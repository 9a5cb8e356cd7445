// Package model はドメインモデルを定義する。
package model

// User は外部ストアの users ツリーに保存されるユーザープロフィール。
// ユーザーの作成はサインアップ時の認証フロー側で行われるため、
// 本システムは読み取りとマージ更新のみを行う。
type User struct {
	UID             string   `json:"uid"`
	Email           string   `json:"email"`
	Username        string   `json:"username"`
	FavoriteTeams   []string `json:"favorite_teams"`
	FavoriteLeagues []string `json:"favorite_leagues"`
}
