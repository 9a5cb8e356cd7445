// Package app はアプリケーションの起動・依存のワイヤリング・終了処理を提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/golazo/internal/auth"
	"github.com/hitoshi/golazo/internal/config"
	"github.com/hitoshi/golazo/internal/football"
	"github.com/hitoshi/golazo/internal/forum"
	"github.com/hitoshi/golazo/internal/handler"
	"github.com/hitoshi/golazo/internal/logger"
	"github.com/hitoshi/golazo/internal/metrics"
	"github.com/hitoshi/golazo/internal/security"
	"github.com/hitoshi/golazo/internal/store"
)

// Init はアプリケーションの初期化を行う。
// .envファイルがあれば読み込み（無ければ無視）、JSON構造化ログをセットアップし、
// 環境変数からConfigを読み込む。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. .envの読み込み（ファイルが無い場合は環境変数のみで動作する）
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded environment from .env file")
	}

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("project_id", cfg.FirebaseProjectID),
	)

	return runServe(cfg)
}

// runServe はAPIサーバーモードで起動する。
// 上流URLを検証し、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. 上流ベースURLの起動時検証
	guard := security.NewOutboundGuard()
	for _, baseURL := range []string{cfg.FootballAPIBaseURL, cfg.FirebaseDatabaseURL} {
		if err := guard.ValidateURL(baseURL); err != nil {
			return fmt.Errorf("invalid upstream base URL: %w", err)
		}
	}

	httpClient := guard.NewSafeClient(cfg.UpstreamTimeout)

	// 2. メトリクス
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. サービスアカウントとトークンソース
	account, err := auth.LoadServiceAccount(cfg.GoogleApplicationCredentials)
	if err != nil {
		return fmt.Errorf("failed to load service account: %w", err)
	}
	tokens := auth.NewServiceAccountTokenSource(account, httpClient, slog.Default(), collector)

	// 4. IDトークン検証
	verifier := auth.NewGoogleIDTokenVerifier(cfg.FirebaseProjectID, httpClient, slog.Default(), collector)

	// 5. 上流クライアント
	footballClient := football.NewClient(httpClient, slog.Default(), collector,
		cfg.FootballAPIBaseURL, cfg.FootballAPIKey)
	tree := store.NewRTDBClient(httpClient, slog.Default(), collector,
		cfg.FirebaseDatabaseURL, tokens)

	// 6. ドメインサービス
	sanitizer := security.NewContentSanitizer()
	forumService := forum.NewService(tree, sanitizer, slog.Default())

	// 7. ルーターの構築（/metricsは認証グループの外に置く）
	router := handler.NewRouter(handler.RouterConfig{
		Matches:       footballClient,
		Forum:         forumService,
		Profile:       forumService,
		Verifier:      verifier,
		Logger:        slog.Default(),
		Collector:     collector,
		AllowedOrigin: cfg.CORSAllowedOrigin,
	})

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      metrics.SetupMetricsRoute(registry, router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
