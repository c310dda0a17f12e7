//go:build !darwin

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Non-macOS platforms have no system keychain, so secrets live in an
// owner-only JSON file next to the rest of the app data, keyed by
// service then account.
type secretsFile map[string]map[string]string

func secretsFilePath() string {
	base := xdgDir("XDG_DATA_HOME", ".local", "share")
	if base == "" {
		base = "."
	}
	return filepath.Join(base, "askd", "secrets.json")
}

func readSecretsFile() (secretsFile, error) {
	raw, err := os.ReadFile(secretsFilePath())
	if err != nil {
		return nil, err
	}
	var s secretsFile
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	return s, nil
}

func secretGet(service, account string) ([]byte, error) {
	s, err := readSecretsFile()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("secret store not available: %w", err)
		}
		return nil, err
	}
	val, ok := s[service][account]
	if !ok {
		return nil, fmt.Errorf("no secret for %s/%s", service, account)
	}
	return []byte(val), nil
}

func secretSet(service, account, value string) error {
	s, err := readSecretsFile()
	if err != nil {
		// A missing or unreadable file starts over; the write below
		// surfaces any real permission problem.
		s = make(secretsFile)
	}
	if s[service] == nil {
		s[service] = make(map[string]string)
	}
	s[service][account] = value

	path := secretsFilePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}
