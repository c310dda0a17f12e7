package config

import "path/filepath"

// ConfigBackend abstracts platform-specific config storage.
// macOS uses UserDefaults (via the `defaults` CLI); other platforms use
// a flat JSON file in an XDG-compatible location.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}

func defaultCorpusDir(dataDir string) string {
	return filepath.Join(dataDir, "corpus")
}

