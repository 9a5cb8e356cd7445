package auth

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// generateKeyAndCert はテスト用のRSA鍵と自己署名証明書PEMを生成する。
func generateKeyAndCert(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "securetoken@system.gserviceaccount.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	return key, string(pemBytes)
}

// signIDToken はテスト用IDトークンをRS256で署名する。
func signIDToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

// newCertsServer はkid別証明書PEMのJSONマップを返すテスト用サーバーを生成する。
// fetchCountは呼び出し回数を記録する。
func newCertsServer(t *testing.T, certs map[string]string, fetchCount *int) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*fetchCount++
		w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate, no-transform")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(certs)
	}))
}

func validClaims(projectID, uid string, now time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"iss":   issuerPrefix + projectID,
		"aud":   projectID,
		"sub":   uid,
		"email": "fan@example.com",
		"iat":   now.Add(-time.Minute).Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
}

func TestVerifyIDToken_ValidToken(t *testing.T) {
	key, certPEM := generateKeyAndCert(t)
	fetchCount := 0
	server := newCertsServer(t, map[string]string{"kid-1": certPEM}, &fetchCount)
	defer server.Close()

	var buf bytes.Buffer
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	v := NewGoogleIDTokenVerifier("golazo-test", server.Client(), newTestLogger(&buf), nil)
	v.certsURL = server.URL
	v.now = func() time.Time { return now }

	token := signIDToken(t, key, "kid-1", validClaims("golazo-test", "user-123", now))

	claim, err := v.VerifyIDToken(context.Background(), token)
	if err != nil {
		t.Fatalf("VerifyIDToken returned error: %v", err)
	}

	if claim.UID != "user-123" {
		t.Errorf("UID = %q, want %q", claim.UID, "user-123")
	}
	if claim.Email != "fan@example.com" {
		t.Errorf("Email = %q, want %q", claim.Email, "fan@example.com")
	}
}

func TestVerifyIDToken_WrongAudience(t *testing.T) {
	key, certPEM := generateKeyAndCert(t)
	fetchCount := 0
	server := newCertsServer(t, map[string]string{"kid-1": certPEM}, &fetchCount)
	defer server.Close()

	var buf bytes.Buffer
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	v := NewGoogleIDTokenVerifier("golazo-test", server.Client(), newTestLogger(&buf), nil)
	v.certsURL = server.URL
	v.now = func() time.Time { return now }

	claims := validClaims("golazo-test", "user-123", now)
	claims["aud"] = "some-other-project"
	token := signIDToken(t, key, "kid-1", claims)

	if _, err := v.VerifyIDToken(context.Background(), token); err == nil {
		t.Fatal("expected error for wrong audience, got nil")
	}
}

func TestVerifyIDToken_WrongIssuer(t *testing.T) {
	key, certPEM := generateKeyAndCert(t)
	fetchCount := 0
	server := newCertsServer(t, map[string]string{"kid-1": certPEM}, &fetchCount)
	defer server.Close()

	var buf bytes.Buffer
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	v := NewGoogleIDTokenVerifier("golazo-test", server.Client(), newTestLogger(&buf), nil)
	v.certsURL = server.URL
	v.now = func() time.Time { return now }

	claims := validClaims("golazo-test", "user-123", now)
	claims["iss"] = "https://evil.example/golazo-test"
	token := signIDToken(t, key, "kid-1", claims)

	if _, err := v.VerifyIDToken(context.Background(), token); err == nil {
		t.Fatal("expected error for wrong issuer, got nil")
	}
}

func TestVerifyIDToken_ExpiredToken(t *testing.T) {
	key, certPEM := generateKeyAndCert(t)
	fetchCount := 0
	server := newCertsServer(t, map[string]string{"kid-1": certPEM}, &fetchCount)
	defer server.Close()

	var buf bytes.Buffer
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	v := NewGoogleIDTokenVerifier("golazo-test", server.Client(), newTestLogger(&buf), nil)
	v.certsURL = server.URL
	v.now = func() time.Time { return now }

	claims := validClaims("golazo-test", "user-123", now)
	claims["exp"] = now.Add(-time.Minute).Unix()
	token := signIDToken(t, key, "kid-1", claims)

	if _, err := v.VerifyIDToken(context.Background(), token); err == nil {
		t.Fatal("expected error for expired token, got nil")
	}
}

func TestVerifyIDToken_UnknownKid(t *testing.T) {
	key, certPEM := generateKeyAndCert(t)
	fetchCount := 0
	server := newCertsServer(t, map[string]string{"kid-1": certPEM}, &fetchCount)
	defer server.Close()

	var buf bytes.Buffer
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	v := NewGoogleIDTokenVerifier("golazo-test", server.Client(), newTestLogger(&buf), nil)
	v.certsURL = server.URL
	v.now = func() time.Time { return now }

	token := signIDToken(t, key, "kid-unknown", validClaims("golazo-test", "user-123", now))

	if _, err := v.VerifyIDToken(context.Background(), token); err == nil {
		t.Fatal("expected error for unknown kid, got nil")
	}
}

func TestVerifyIDToken_EmptySub(t *testing.T) {
	key, certPEM := generateKeyAndCert(t)
	fetchCount := 0
	server := newCertsServer(t, map[string]string{"kid-1": certPEM}, &fetchCount)
	defer server.Close()

	var buf bytes.Buffer
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	v := NewGoogleIDTokenVerifier("golazo-test", server.Client(), newTestLogger(&buf), nil)
	v.certsURL = server.URL
	v.now = func() time.Time { return now }

	claims := validClaims("golazo-test", "", now)
	token := signIDToken(t, key, "kid-1", claims)

	if _, err := v.VerifyIDToken(context.Background(), token); err == nil {
		t.Fatal("expected error for empty sub, got nil")
	}
}

func TestVerifyIDToken_MalformedToken(t *testing.T) {
	_, certPEM := generateKeyAndCert(t)
	fetchCount := 0
	server := newCertsServer(t, map[string]string{"kid-1": certPEM}, &fetchCount)
	defer server.Close()

	var buf bytes.Buffer
	v := NewGoogleIDTokenVerifier("golazo-test", server.Client(), newTestLogger(&buf), nil)
	v.certsURL = server.URL

	if _, err := v.VerifyIDToken(context.Background(), "not-a-jwt"); err == nil {
		t.Fatal("expected error for malformed token, got nil")
	}
}

func TestVerifyIDToken_CachesCertsUntilMaxAge(t *testing.T) {
	key, certPEM := generateKeyAndCert(t)
	fetchCount := 0
	server := newCertsServer(t, map[string]string{"kid-1": certPEM}, &fetchCount)
	defer server.Close()

	var buf bytes.Buffer
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	v := NewGoogleIDTokenVerifier("golazo-test", server.Client(), newTestLogger(&buf), nil)
	v.certsURL = server.URL
	v.now = func() time.Time { return now }

	token := signIDToken(t, key, "kid-1", validClaims("golazo-test", "user-123", now))

	// 1回目の検証で証明書を取得する
	if _, err := v.VerifyIDToken(context.Background(), token); err != nil {
		t.Fatalf("first verify returned error: %v", err)
	}
	if fetchCount != 1 {
		t.Fatalf("fetchCount = %d, want 1", fetchCount)
	}

	// max-age内の2回目の検証はキャッシュを使う
	if _, err := v.VerifyIDToken(context.Background(), token); err != nil {
		t.Fatalf("second verify returned error: %v", err)
	}
	if fetchCount != 1 {
		t.Errorf("fetchCount after cached verify = %d, want 1", fetchCount)
	}

	// max-age経過後は再取得する
	now = now.Add(2 * time.Hour)
	token = signIDToken(t, key, "kid-1", validClaims("golazo-test", "user-123", now))
	if _, err := v.VerifyIDToken(context.Background(), token); err != nil {
		t.Fatalf("verify after expiry returned error: %v", err)
	}
	if fetchCount != 2 {
		t.Errorf("fetchCount after cache expiry = %d, want 2", fetchCount)
	}
}

func TestParseMaxAge(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"standard google header", "public, max-age=22913, must-revalidate, no-transform", 22913 * time.Second},
		{"max-age only", "max-age=600", 600 * time.Second},
		{"missing max-age", "no-cache", 0},
		{"empty header", "", 0},
		{"broken max-age", "max-age=abc", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseMaxAge(tt.value); got != tt.want {
				t.Errorf("parseMaxAge(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
