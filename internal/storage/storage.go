// Package storage provides atomic file operations for JSON data and the
// well-known gitdocs paths (user config dir, per-repo cache dir).
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// CacheDirName is the per-repository cache directory, created at the repo root.
const CacheDirName = ".gitdocs_cache"

// MappingsFileName is the commit-ticket mapping store file inside CacheDirName.
const MappingsFileName = "mappings.json"

// UserConfigDir returns the path to the user-level config directory
// (~/.config/gitdocs or $XDG_CONFIG_HOME/gitdocs), creating it if needed.
func UserConfigDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	dir := filepath.Join(base, "gitdocs")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	return dir, nil
}

// RepoCacheDir returns the cache directory for a repository root,
// creating it if needed.
func RepoCacheDir(repoRoot string) (string, error) {
	dir := filepath.Join(repoRoot, CacheDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// MappingsPath returns the mapping store file path for a repository root.
func MappingsPath(repoRoot string) string {
	return filepath.Join(repoRoot, CacheDirName, MappingsFileName)
}

// SaveJSON atomically writes data as JSON to the specified path.
// It ensures the parent directory exists, writes to a temp file,
// then renames to the final path for atomic operation.
func SaveJSON(path string, data any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tempPath := path + ".tmp"

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(tempPath, jsonData, 0o600); err != nil {
		return err
	}

	return os.Rename(tempPath, path)
}

// LoadJSON reads JSON from the specified path into dest.
// Returns os.ErrNotExist if the file doesn't exist (caller should handle).
func LoadJSON(path string, dest any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, dest)
}
