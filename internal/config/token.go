package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// EnsureAdminToken returns the admin API token, generating and persisting
// one in the platform secret store on first run. The second return value
// reports whether a new token was created.
func EnsureAdminToken(cfg *Config) (string, bool, error) {
	return ensureAdminToken(cfg, platformSecrets{})
}

func ensureAdminToken(cfg *Config, sec secretStore) (string, bool, error) {
	if cfg.Server.AdminToken != "" {
		return cfg.Server.AdminToken, false, nil
	}

	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", false, fmt.Errorf("generating admin token: %w", err)
	}
	token := hex.EncodeToString(buf)

	if err := sec.Set(secretService, adminTokenAccount, token); err != nil {
		return "", false, fmt.Errorf("storing admin token: %w", err)
	}
	cfg.Server.AdminToken = token
	return token, true, nil
}
