package config

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// SecretStore resolves secret values at runtime (DSNs, API keys).
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	GetWithDefault(ctx context.Context, key, fallback string) string
}

// EnvironmentSecretStore reads secrets from process environment variables.
type EnvironmentSecretStore struct{}

// NewEnvironmentSecretStore returns a SecretStore backed by os.Getenv.
func NewEnvironmentSecretStore() *EnvironmentSecretStore {
	return &EnvironmentSecretStore{}
}

func (s *EnvironmentSecretStore) Get(_ context.Context, key string) (string, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", fmt.Errorf("secret %s not found in environment", key)
	}
	return value, nil
}

func (s *EnvironmentSecretStore) GetWithDefault(ctx context.Context, key, fallback string) string {
	value, err := s.Get(ctx, key)
	if err != nil {
		return fallback
	}
	return value
}

// LoadSecretsFromEnv overrides sensitive values from the environment secret
// store. Called for production deployments where secrets never live in files.
func (c *Config) LoadSecretsFromEnv(ctx context.Context) error {
	store := NewEnvironmentSecretStore()

	c.Storage.SQL.DSN = store.GetWithDefault(ctx, "PROGRESSKIT_SQL_DSN", c.Storage.SQL.DSN)
	c.Storage.Redis.Password = store.GetWithDefault(ctx, "PROGRESSKIT_REDIS_PASSWORD", c.Storage.Redis.Password)

	if keys := store.GetWithDefault(ctx, "PROGRESSKIT_API_KEYS", ""); keys != "" {
		c.Security.APIKeys = c.Security.APIKeys[:0]
		for _, k := range splitAndTrim(keys) {
			c.Security.APIKeys = append(c.Security.APIKeys, k)
		}
	}
	return nil
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
