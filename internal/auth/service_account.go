// Package auth は外部IDプロバイダーに対するトークン検証と、
// サービスアカウントによるアクセストークン取得を提供する。
package auth

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// ServiceAccount はGoogleサービスアカウントの認証情報バンドル。
// JSONファイルから読み込む。秘密鍵はソースコードに埋め込まない。
type ServiceAccount struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	PrivateKey  string `json:"private_key"`
	ClientEmail string `json:"client_email"`
	TokenURI    string `json:"token_uri"`

	key *rsa.PrivateKey
}

// LoadServiceAccount はサービスアカウントJSONファイルを読み込み、秘密鍵をパースする。
// client_email、private_key、token_uri のいずれかが欠けている場合はエラーを返す。
func LoadServiceAccount(path string) (*ServiceAccount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account file: %w", err)
	}
	return ParseServiceAccount(data)
}

// ParseServiceAccount はサービスアカウントJSONをパースする。
func ParseServiceAccount(data []byte) (*ServiceAccount, error) {
	var sa ServiceAccount
	if err := json.Unmarshal(data, &sa); err != nil {
		return nil, fmt.Errorf("failed to parse service account JSON: %w", err)
	}

	if sa.ClientEmail == "" || sa.PrivateKey == "" || sa.TokenURI == "" {
		return nil, fmt.Errorf("service account JSON is missing client_email, private_key or token_uri")
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(sa.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account private key: %w", err)
	}
	sa.key = key

	return &sa, nil
}

// Key はパース済みのRSA秘密鍵を返す。
func (sa *ServiceAccount) Key() *rsa.PrivateKey {
	return sa.key
}
