package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/golazo/internal/auth"
	"github.com/hitoshi/golazo/internal/football"
	"github.com/hitoshi/golazo/internal/model"
)

// staticVerifier は固定トークンのみ受理するTokenVerifier。
type staticVerifier struct {
	token string
	claim *auth.IdentityClaim
}

func (v *staticVerifier) VerifyIDToken(ctx context.Context, token string) (*auth.IdentityClaim, error) {
	if token != v.token {
		return nil, fmt.Errorf("token verification failed")
	}
	return v.claim, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return newTestRouterWithLogger(t, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func newTestRouterWithLogger(t *testing.T, logger *slog.Logger) http.Handler {
	t.Helper()
	return NewRouter(RouterConfig{
		Matches: &mockMatchProvider{
			liveFunc: func(ctx context.Context) (*football.MatchesPage, error) {
				return &football.MatchesPage{Matches: []json.RawMessage{json.RawMessage(`{"id":1}`)}}, nil
			},
		},
		Forum: &mockForumService{},
		Profile: &mockUserProfileService{
			getProfileFunc: func(ctx context.Context, userID string) (*model.User, error) {
				return &model.User{UID: userID, Username: "gooner"}, nil
			},
		},
		Verifier:      &staticVerifier{token: "good-token", claim: &auth.IdentityClaim{UID: "user-123"}},
		Logger:        logger,
		AllowedOrigin: "*",
	})
}

func TestRouter_HealthWithoutCredential(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("ヘルスチェックは認証なしで成功すべき: got %d", rec.Code)
	}
}

func TestRouter_ProtectedRouteRejectsMissingToken(t *testing.T) {
	router := newTestRouter(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/matches/live"},
		{http.MethodGet, "/standings/2021"},
		{http.MethodPost, "/forum/post"},
		{http.MethodGet, "/user/profile"},
		{http.MethodPatch, "/user/profile"},
	}

	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			req := httptest.NewRequest(p.method, p.path, nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("認証なしは401であるべき: got %d", rec.Code)
			}
			if detail := decodeErrorDetail(t, rec); detail != "invalid credentials" {
				t.Errorf("detailが期待値と異なる: got %q", detail)
			}
		})
	}
}

func TestRouter_ProtectedRouteAcceptsValidToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/matches/live", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("有効なトークンは成功すべき: got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスのデコードに失敗: %v", err)
	}
	if body["status"] != "success" {
		t.Errorf("statusが期待値と異なる: got %v", body["status"])
	}
}

func TestRouter_ProfileUsesAuthenticatedUID(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/user/profile", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	var user model.User
	if err := json.NewDecoder(rec.Body).Decode(&user); err != nil {
		t.Fatalf("レスポンスのデコードに失敗: %v", err)
	}
	if user.UID != "user-123" {
		t.Errorf("認証済みUIDのプロフィールが返るべき: got %q", user.UID)
	}
}

// ロギングは認証グループの外側にあるが、認証済みリクエストのログには
// uidが含まれることをルーター全体のチェーンで検証する。
func TestRouter_RequestLogIncludesAuthenticatedUID(t *testing.T) {
	var buf bytes.Buffer
	router := newTestRouterWithLogger(t, slog.New(slog.NewJSONHandler(&buf, nil)))

	req := httptest.NewRequest(http.MethodGet, "/matches/live", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ステータスコードが期待値と異なる: got %d", rec.Code)
	}

	entry := findRequestLog(t, &buf)
	if entry["uid"] != "user-123" {
		t.Errorf("リクエストログに認証済みuidが含まれるべき: got %v", entry["uid"])
	}
	if entry["path"] != "/matches/live" {
		t.Errorf("pathが期待値と異なる: got %v", entry["path"])
	}
}

// findRequestLog はバッファからhttp_requestのログエントリを探す。
func findRequestLog(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		if entry["msg"] == "http_request" {
			return entry
		}
	}
	t.Fatalf("http_requestのログが見つからない: %s", buf.String())
	return nil
}

func TestRouter_PreflightWithoutCredential(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/matches/live", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("プリフライトは認証なしで204を返すべき: got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Allow-Originが期待値と異なる: got %q", got)
	}
}
