// Package config loads and merges gitdocs configuration.
//
// Two layers exist: a repo-level .gitdocs.toml at the git root (tracker
// connections, ticket patterns — shared with the team) and a user-level
// ~/.config/gitdocs/config.toml (cache tuning, editor — personal).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/gitdocs/gitdocs/internal/storage"
)

// RepoConfigFileName is the repo-level config file at the repository root.
const RepoConfigFileName = ".gitdocs.toml"

// JiraConfig holds the Jira Cloud connection settings.
type JiraConfig struct {
	BaseURL    string `toml:"base_url"`
	Email      string `toml:"email"`
	ProjectKey string `toml:"project_key"`
}

// ConfluenceConfig holds the Confluence Cloud connection settings.
type ConfluenceConfig struct {
	BaseURL  string `toml:"base_url"`
	Email    string `toml:"email"`
	SpaceKey string `toml:"space_key"`
}

// CacheConfig tunes the local response cache.
type CacheConfig struct {
	Enabled    bool  `toml:"enabled"`
	TTLSeconds int   `toml:"ttl_seconds"`
	MaxSizeMB  int64 `toml:"max_size_mb"`
}

// TTL returns the configured TTL as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// MaxSizeBytes returns the configured size ceiling in bytes.
func (c CacheConfig) MaxSizeBytes() int64 {
	return c.MaxSizeMB * 1024 * 1024
}

// RepoConfig is the repository-level configuration (.gitdocs.toml).
type RepoConfig struct {
	Jira           *JiraConfig       `toml:"jira"`
	Confluence     *ConfluenceConfig `toml:"confluence"`
	CommitPatterns []string          `toml:"commit_patterns"`
}

// UserConfig is the user-level configuration (~/.config/gitdocs/config.toml).
type UserConfig struct {
	Editor string      `toml:"editor"`
	Cache  CacheConfig `toml:"cache"`
}

// Config is the merged configuration seen by commands.
type Config struct {
	Repo RepoConfig
	User UserConfig
}

// DefaultUser returns the default user configuration.
func DefaultUser() UserConfig {
	return UserConfig{
		Editor: "vim",
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 300,
			MaxSizeMB:  100,
		},
	}
}

// DefaultRepo returns the default repository configuration.
func DefaultRepo() RepoConfig {
	return RepoConfig{
		CommitPatterns: []string{`\b([A-Z][A-Z0-9]+-\d+)\b`},
	}
}

// ValidateBaseURL checks that a tracker base URL is usable: HTTPS, no
// trailing slash required (one is stripped).
func ValidateBaseURL(raw, fieldName string) (string, error) {
	raw = strings.TrimRight(raw, "/")
	if raw == "" {
		return "", fmt.Errorf("%s is required", fieldName)
	}
	if !strings.HasPrefix(raw, "https://") {
		return "", fmt.Errorf("%s must use HTTPS, got: %q", fieldName, raw)
	}
	return raw, nil
}

// userConfigPath returns the path to the user config file.
func userConfigPath() (string, error) {
	dir, err := storage.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LoadUser reads the user config, with defaults for a missing file.
// Returns an error only when the file exists but is invalid.
func LoadUser() (UserConfig, error) {
	path, err := userConfigPath()
	if err != nil {
		return DefaultUser(), nil
	}
	return loadUserFrom(path)
}

func loadUserFrom(path string) (UserConfig, error) {
	cfg := DefaultUser()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return DefaultUser(), fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if cfg.Cache.TTLSeconds <= 0 {
		return DefaultUser(), fmt.Errorf("cache.ttl_seconds must be positive, got %d", cfg.Cache.TTLSeconds)
	}
	if cfg.Cache.MaxSizeMB <= 0 {
		return DefaultUser(), fmt.Errorf("cache.max_size_mb must be positive, got %d", cfg.Cache.MaxSizeMB)
	}

	return cfg, nil
}

// LoadRepo reads the repo config from the repository root, with defaults
// for a missing file. Returns an error only when the file is invalid.
func LoadRepo(repoRoot string) (RepoConfig, error) {
	cfg := DefaultRepo()

	data, err := os.ReadFile(filepath.Join(repoRoot, RepoConfigFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read %s: %w", RepoConfigFileName, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return DefaultRepo(), fmt.Errorf("failed to parse %s: %w", RepoConfigFileName, err)
	}

	if cfg.Jira != nil {
		cfg.Jira.BaseURL, err = ValidateBaseURL(cfg.Jira.BaseURL, "jira.base_url")
		if err != nil {
			return DefaultRepo(), err
		}
	}
	if cfg.Confluence != nil {
		cfg.Confluence.BaseURL, err = ValidateBaseURL(cfg.Confluence.BaseURL, "confluence.base_url")
		if err != nil {
			return DefaultRepo(), err
		}
	}
	if len(cfg.CommitPatterns) == 0 {
		cfg.CommitPatterns = DefaultRepo().CommitPatterns
	}

	return cfg, nil
}

// Load reads and merges both configuration layers for a repository.
func Load(repoRoot string) (Config, error) {
	repo, err := LoadRepo(repoRoot)
	if err != nil {
		return Config{}, err
	}
	user, err := LoadUser()
	if err != nil {
		return Config{}, err
	}
	return Config{Repo: repo, User: user}, nil
}

// WriteStarter writes a commented starter .gitdocs.toml to the repo root.
// Fails if the file already exists.
func WriteStarter(repoRoot string) (string, error) {
	path := filepath.Join(repoRoot, RepoConfigFileName)
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("%s already exists", RepoConfigFileName)
	}

	starter := `# gitdocs repository configuration

# Regex patterns used to extract ticket keys from commit messages
# and branch names. The first capture group is the ticket key.
commit_patterns = ['\b([A-Z][A-Z0-9]+-\d+)\b']

# [jira]
# base_url = "https://company.atlassian.net"
# email = "you@company.com"
# project_key = "PROJ"

# [confluence]
# base_url = "https://company.atlassian.net/wiki"
# email = "you@company.com"
# space_key = "DOCS"
`
	if err := os.WriteFile(path, []byte(starter), 0o644); err != nil {
		return path, err
	}
	return path, nil
}
