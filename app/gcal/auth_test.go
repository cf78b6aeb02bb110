package gcal

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang-jwt/jwt/v4"
)

func testKeyPEM(t *testing.T) (string, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("Failed to marshal key: %v", err)
	}

	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})), key
}

func writeKeyFile(t *testing.T, tokenURI string) (string, *rsa.PrivateKey) {
	t.Helper()

	keyPEM, key := testKeyPEM(t)
	account := map[string]string{
		"client_email":   "sync@project.iam.gserviceaccount.com",
		"private_key":    keyPEM,
		"private_key_id": "key-1",
		"token_uri":      tokenURI,
	}
	data, err := json.Marshal(account)
	if err != nil {
		t.Fatalf("Failed to marshal account: %v", err)
	}

	path := filepath.Join(t.TempDir(), "service-account.json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("Failed to write key file: %v", err)
	}
	return path, key
}

func TestTokenSourceToken(t *testing.T) {
	var key *rsa.PrivateKey
	exchanges := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges++

		if err := r.ParseForm(); err != nil {
			t.Fatalf("Failed to parse form: %v", err)
		}
		if got := r.Form.Get("grant_type"); got != jwtBearerGrant {
			t.Errorf("Expected grant type %q, got %q", jwtBearerGrant, got)
		}

		assertion := r.Form.Get("assertion")
		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(assertion, claims, func(token *jwt.Token) (any, error) {
			return &key.PublicKey, nil
		})
		if err != nil {
			t.Errorf("Expected a valid signed assertion, got %v", err)
		}
		if got := claims["iss"]; got != "sync@project.iam.gserviceaccount.com" {
			t.Errorf("Expected issuer to be the client email, got %v", got)
		}
		if got := claims["scope"]; got != calendarScope {
			t.Errorf("Expected calendar scope, got %v", got)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "ya29.test-token",
			"expires_in":   3600,
		})
	}))
	defer server.Close()

	keyFile, generated := writeKeyFile(t, server.URL)
	key = generated

	source, err := NewTokenSource(keyFile, "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	token, err := source.Token(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if token != "ya29.test-token" {
		t.Errorf("Expected access token, got %q", token)
	}

	// A second call inside the expiry window must reuse the cached token
	if _, err := source.Token(context.Background()); err != nil {
		t.Fatalf("Expected no error on cached call, got %v", err)
	}
	if exchanges != 1 {
		t.Errorf("Expected 1 token exchange, got %d", exchanges)
	}
}

func TestTokenSourceExchangeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "invalid_grant"}`))
	}))
	defer server.Close()

	keyFile, _ := writeKeyFile(t, server.URL)

	source, err := NewTokenSource(keyFile, "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	_, err = source.Token(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Expected AuthError, got %v", err)
	}
}

func TestNewTokenSourceInlineKey(t *testing.T) {
	keyPEM, _ := testKeyPEM(t)
	inline, _ := json.Marshal(map[string]string{
		"client_email": "sync@project.iam.gserviceaccount.com",
		"private_key":  keyPEM,
	})

	source, err := NewTokenSource(filepath.Join(t.TempDir(), "missing.json"), string(inline))
	if err != nil {
		t.Fatalf("Expected inline key to be used when the file is absent, got %v", err)
	}
	if source.account.TokenURI != defaultTokenURI {
		t.Errorf("Expected default token uri, got %q", source.account.TokenURI)
	}
}

func TestNewTokenSourceNoCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewTokenSource(filepath.Join(t.TempDir(), "missing.json"), "")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Expected AuthError, got %v", err)
	}
}

func TestNewTokenSourceInvalidKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service-account.json")
	if err := os.WriteFile(path, []byte(`{"client_email": ""}`), 0600); err != nil {
		t.Fatalf("Failed to write key file: %v", err)
	}

	_, err := NewTokenSource(path, "")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Expected AuthError for incomplete key, got %v", err)
	}
}
