// Package credentials holds named secrets for capability clients. The core
// never reads secrets itself; clients resolve them at construction time.
package credentials

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// ErrNotConfigured is returned when a requested secret has no value.
var ErrNotConfigured = fmt.Errorf("credential not configured")

// Store exposes named secrets.
type Store interface {
	Secret(name string) (string, error)
}

// EnvStore resolves secrets from the process environment, optionally seeded
// from a .env file. Names are mapped to upper-snake environment variables:
// "kie-api" -> "KIE_API_KEY".
type EnvStore struct{}

// NewEnvStore loads the .env file at path when it exists and returns an
// EnvStore. A missing file is not an error.
func NewEnvStore(path string) (*EnvStore, error) {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading env file %s: %w", path, err)
	}
	return &EnvStore{}, nil
}

// Secret returns the value for name, or ErrNotConfigured when unset.
func (s *EnvStore) Secret(name string) (string, error) {
	key := EnvKey(name)
	if v := os.Getenv(key); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s (env %s)", ErrNotConfigured, name, key)
}

// EnvKey converts a credential name to its environment variable name.
func EnvKey(name string) string {
	key := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(name))
	if !strings.HasSuffix(key, "_KEY") {
		key += "_KEY"
	}
	return key
}

// StaticStore is a fixed map of secrets, used in tests and examples.
type StaticStore map[string]string

func (s StaticStore) Secret(name string) (string, error) {
	if v, ok := s[name]; ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotConfigured, name)
}
