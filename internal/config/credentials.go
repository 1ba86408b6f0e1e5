package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Makepad-fr/tada/internal/store/jsonstore"
)

const (
	credFileName = "credentials.json"
	tokenEnv     = "TADA_TOKEN"
)

type TokenInfo struct {
	Token     string     `json:"token"`
	Source    string     `json:"source"`     // "env" | "file"
	CreatedAt time.Time  `json:"created_at"` // when we saved to file
	ExpiresAt *time.Time `json:"expires_at"` // optional (JWT or server-provided)
}

// Credentials stores the bearer token sent to the backend.
type Credentials struct {
	Dir string
}

func (c *Config) Credentials() Credentials { return Credentials{Dir: c.Dir} }

func (c Credentials) path() string { return filepath.Join(c.Dir, credFileName) }

// Token returns the active token, or nil when not logged in.
// TADA_TOKEN takes precedence over the file.
func (c Credentials) Token() (*TokenInfo, error) {
	if env := strings.TrimSpace(os.Getenv(tokenEnv)); env != "" {
		return &TokenInfo{Token: stripBearer(env), Source: "env"}, nil
	}

	var ti TokenInfo
	found, err := jsonstore.Load(c.path(), &ti)
	if err != nil {
		return nil, fmt.Errorf("credentials: %w", err)
	}
	if !found {
		return nil, nil
	}
	ti.Token = stripBearer(ti.Token)
	if ti.Token == "" {
		return nil, nil
	}
	return &ti, nil
}

// BearerToken is Token reduced to the raw token string.
func (c Credentials) BearerToken() string {
	ti, err := c.Token()
	if err != nil || ti == nil {
		return ""
	}
	return ti.Token
}

func (c Credentials) SetToken(token string, expires *time.Time) error {
	token = stripBearer(strings.TrimSpace(token))
	if token == "" {
		return fmt.Errorf("empty token")
	}
	ti := TokenInfo{
		Token:     token,
		Source:    "file",
		CreatedAt: time.Now(),
		ExpiresAt: expires,
	}
	// owner-only
	return jsonstore.Save(c.path(), ti, 0o600)
}

func (c Credentials) DeleteToken() error {
	return jsonstore.Remove(c.path())
}

func stripBearer(s string) string {
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}
