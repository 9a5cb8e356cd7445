package config

import (
	"fmt"
	"os"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// APIキーやサービスアカウント認証情報をソースコードに埋め込むことは禁止し、
// 必ず環境変数（またはシークレットストア）経由で供給する。
type Config struct {
	// Football data provider
	FootballAPIKey     string
	FootballAPIBaseURL string

	// Firebase (realtime store + identity issuer)
	FirebaseDatabaseURL          string
	FirebaseProjectID            string
	GoogleApplicationCredentials string // サービスアカウントJSONファイルのパス

	// Upstream HTTP
	UpstreamTimeout time.Duration

	// Server
	ServerPort      string
	ShutdownTimeout time.Duration

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合は、不足している変数名をまとめた1つのエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.FootballAPIKey = os.Getenv("FOOTBALL_API_KEY")
	if cfg.FootballAPIKey == "" {
		missing = append(missing, "FOOTBALL_API_KEY")
	}

	cfg.FootballAPIBaseURL = os.Getenv("FOOTBALL_API_BASE_URL")
	if cfg.FootballAPIBaseURL == "" {
		missing = append(missing, "FOOTBALL_API_BASE_URL")
	}

	cfg.FirebaseDatabaseURL = os.Getenv("FIREBASE_DATABASE_URL")
	if cfg.FirebaseDatabaseURL == "" {
		missing = append(missing, "FIREBASE_DATABASE_URL")
	}

	cfg.FirebaseProjectID = os.Getenv("FIREBASE_PROJECT_ID")
	if cfg.FirebaseProjectID == "" {
		missing = append(missing, "FIREBASE_PROJECT_ID")
	}

	cfg.GoogleApplicationCredentials = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	if cfg.GoogleApplicationCredentials == "" {
		missing = append(missing, "GOOGLE_APPLICATION_CREDENTIALS")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.UpstreamTimeout = getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
