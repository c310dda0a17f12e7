//go:build !darwin

package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

// xdgDir resolves a base directory from an XDG environment variable,
// falling back to the conventional location under the home directory.
// Returns "" when neither the variable nor a home directory is known.
func xdgDir(envVar string, homeParts ...string) string {
	if dir := os.Getenv(envVar); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(append([]string{home}, homeParts...)...)
}

func defaultDataDir() string {
	base := xdgDir("XDG_DATA_HOME", ".local", "share")
	if base == "" {
		return "askd-data"
	}
	return filepath.Join(base, "askd")
}

func defaultPromptsPath() string {
	return filepath.Join(filepath.Dir(configFilePath()), "prompts.json")
}

func configFilePath() string {
	base := xdgDir("XDG_CONFIG_HOME", ".config")
	if base == "" {
		base = "."
	}
	return filepath.Join(base, "askd", "config.json")
}

// apiKeyHint is empty here; only macOS has a system keychain worth
// pointing the user at.
func apiKeyHint() string {
	return ""
}

// jsonBackend keeps settings as one flat JSON object on disk. It is the
// backend for Linux and every other non-macOS platform. The file is read
// once at startup; writes rewrite the whole object.
type jsonBackend struct {
	path   string
	values map[string]any
}

func newPlatformBackend() ConfigBackend {
	b := &jsonBackend{
		path:   configFilePath(),
		values: make(map[string]any),
	}
	raw, err := os.ReadFile(b.path)
	switch {
	case os.IsNotExist(err):
		// First run, nothing persisted yet.
	case err != nil:
		fmt.Fprintf(os.Stderr, "[WARN] could not read config file %s: %v. Using default values.\n", b.path, err)
	default:
		if err := json.Unmarshal(raw, &b.values); err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse config file %s: %v. Using default values.\n", b.path, err)
		}
	}
	return b
}

func (b *jsonBackend) flush() error {
	raw, err := json.MarshalIndent(b.values, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	return os.WriteFile(b.path, raw, 0o600)
}

func (b *jsonBackend) GetString(key string) (string, bool, error) {
	v, ok := b.values[key]
	if !ok {
		return "", false, nil
	}
	if s, ok := v.(string); ok {
		return s, true, nil
	}
	return fmt.Sprintf("%v", v), true, nil
}

func (b *jsonBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.values[key]
	if !ok {
		return 0, false, nil
	}
	n, err := intFromJSON(key, v)
	if err != nil {
		return 0, true, err
	}
	return n, true, nil
}

// intFromJSON accepts the two shapes an integer takes after a JSON round
// trip: a float64 with no fractional part, or a numeric string.
func intFromJSON(key string, v any) (int, error) {
	switch val := v.(type) {
	case float64:
		if val != math.Trunc(val) || val < math.MinInt || val > math.MaxInt {
			return 0, fmt.Errorf("value %v for %s is not a valid integer or is out of range", val, key)
		}
		return int(val), nil
	case string:
		n, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("invalid type for %s", key)
	}
}

func (b *jsonBackend) SetString(key, val string) error {
	b.values[key] = val
	return b.flush()
}

func (b *jsonBackend) SetInt(key string, val int) error {
	b.values[key] = val
	return b.flush()
}

func (b *jsonBackend) Delete(key string) error {
	delete(b.values, key)
	return b.flush()
}
