package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	calendarScope   = "https://www.googleapis.com/auth/calendar"
	defaultTokenURI = "https://oauth2.googleapis.com/token"
	jwtBearerGrant  = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// Access tokens are refreshed slightly before their reported expiry
	tokenExpiryMargin = time.Minute
)

// AuthError reports a credential or token exchange failure. Unlike an
// operation failure it is fatal: no remote work can proceed without a
// valid token.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// serviceAccount holds the fields of a Google service account key file
type serviceAccount struct {
	ClientEmail  string `json:"client_email"`
	PrivateKey   string `json:"private_key"`
	PrivateKeyID string `json:"private_key_id"`
	TokenURI     string `json:"token_uri"`
}

// TokenSource exchanges a signed service account assertion for an access
// token and caches it until shortly before expiry. Safe for concurrent
// use.
type TokenSource struct {
	account serviceAccount
	client  *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewTokenSource resolves service account credentials in order: the
// configured key file, the SERVICE_ACCOUNT_KEY inline JSON, then the
// GOOGLE_APPLICATION_CREDENTIALS path.
func NewTokenSource(keyFile, inlineKey string) (*TokenSource, error) {
	data, source, err := resolveCredentials(keyFile, inlineKey)
	if err != nil {
		return nil, err
	}

	var account serviceAccount
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, &AuthError{Reason: fmt.Sprintf("invalid service account key from %s", source), Err: err}
	}
	if account.ClientEmail == "" || account.PrivateKey == "" {
		return nil, &AuthError{Reason: fmt.Sprintf("service account key from %s is missing client_email or private_key", source)}
	}
	if account.TokenURI == "" {
		account.TokenURI = defaultTokenURI
	}

	return &TokenSource{
		account: account,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func resolveCredentials(keyFile, inlineKey string) ([]byte, string, error) {
	if keyFile != "" {
		if data, err := os.ReadFile(keyFile); err == nil {
			return data, keyFile, nil
		} else if !os.IsNotExist(err) {
			return nil, "", &AuthError{Reason: fmt.Sprintf("cannot read %s", keyFile), Err: err}
		}
	}

	if inlineKey != "" {
		return []byte(inlineKey), "SERVICE_ACCOUNT_KEY", nil
	}

	if path := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", &AuthError{Reason: fmt.Sprintf("cannot read GOOGLE_APPLICATION_CREDENTIALS (%s)", path), Err: err}
		}
		return data, path, nil
	}

	return nil, "", &AuthError{Reason: "no service account credentials found"}
}

// Token returns a valid access token, exchanging a fresh assertion when
// the cached one is expired or missing.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Before(s.expires.Add(-tokenExpiryMargin)) {
		return s.token, nil
	}

	assertion, err := s.signAssertion()
	if err != nil {
		return "", err
	}

	token, expiresIn, err := s.exchange(ctx, assertion)
	if err != nil {
		return "", err
	}

	s.token = token
	s.expires = time.Now().Add(time.Duration(expiresIn) * time.Second)
	return s.token, nil
}

func (s *TokenSource) signAssertion() (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(s.account.PrivateKey))
	if err != nil {
		return "", &AuthError{Reason: "invalid private key", Err: err}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   s.account.ClientEmail,
		"scope": calendarScope,
		"aud":   s.account.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if s.account.PrivateKeyID != "" {
		token.Header["kid"] = s.account.PrivateKeyID
	}

	signed, err := token.SignedString(key)
	if err != nil {
		return "", &AuthError{Reason: "cannot sign assertion", Err: err}
	}
	return signed, nil
}

func (s *TokenSource) exchange(ctx context.Context, assertion string) (string, int, error) {
	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {assertion},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.account.TokenURI,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, &AuthError{Reason: "cannot build token request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", 0, &AuthError{Reason: "token exchange request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, &AuthError{Reason: "cannot read token response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", 0, &AuthError{Reason: fmt.Sprintf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", 0, &AuthError{Reason: "invalid token response", Err: err}
	}
	if payload.AccessToken == "" {
		return "", 0, &AuthError{Reason: "token response carries no access token"}
	}

	return payload.AccessToken, payload.ExpiresIn, nil
}
