//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultsDomain = "com.askd.app"

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "askd-data"
	}
	return filepath.Join(home, "Library", "Application Support", "askd")
}

func defaultPromptsPath() string {
	return filepath.Join(defaultDataDir(), "prompts.json")
}

func apiKeyHint() string {
	return fmt.Sprintf(" or macOS Keychain (service: %s, account: %s)", secretService, apiKeyAccount)
}

// defaultsBackend persists settings in UserDefaults through the
// `defaults` CLI, under one domain.
type defaultsBackend struct {
	domain string
}

func newPlatformBackend() ConfigBackend {
	return &defaultsBackend{domain: defaultsDomain}
}

// lookup reads one key. `defaults read` exits 1 when the key does not
// exist, which is reported as absent rather than an error.
func (b *defaultsBackend) lookup(key string) (string, bool, error) {
	out, err := exec.Command("defaults", "read", b.domain, key).CombinedOutput()
	val := strings.TrimSpace(string(out))
	if err == nil {
		return val, true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return "", false, nil
	}
	return "", false, fmt.Errorf("reading default for key '%s': %w, output: %s", key, err, val)
}

func (b *defaultsBackend) GetString(key string) (string, bool, error) {
	return b.lookup(key)
}

func (b *defaultsBackend) GetInt(key string) (int, bool, error) {
	s, ok, err := b.lookup(key)
	if err != nil || !ok {
		return 0, ok, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, true, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return n, true, nil
}

func (b *defaultsBackend) SetString(key, val string) error {
	return exec.Command("defaults", "write", b.domain, key, "-string", val).Run()
}

func (b *defaultsBackend) SetInt(key string, val int) error {
	return exec.Command("defaults", "write", b.domain, key, "-int", strconv.Itoa(val)).Run()
}

func (b *defaultsBackend) Delete(key string) error {
	return exec.Command("defaults", "delete", b.domain, key).Run()
}
