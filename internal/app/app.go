// Package app wires configuration, credentials, the response cache and the
// tracker clients into one explicit value that commands receive. Nothing in
// here is global; every dependency is constructed in New and torn down in
// Close.
package app

import (
	"errors"
	"fmt"

	"github.com/gitdocs/gitdocs/internal/cache"
	"github.com/gitdocs/gitdocs/internal/config"
	"github.com/gitdocs/gitdocs/internal/confluence"
	"github.com/gitdocs/gitdocs/internal/jira"
	"github.com/gitdocs/gitdocs/internal/log"
	"github.com/gitdocs/gitdocs/internal/mapping"
	"github.com/gitdocs/gitdocs/internal/secrets"
	"github.com/gitdocs/gitdocs/internal/storage"
)

// ErrJiraNotConfigured is returned when a command needs Jira but the repo
// config has no [jira] section.
var ErrJiraNotConfigured = errors.New("jira is not configured, add a [jira] section to .gitdocs.toml")

// ErrConfluenceNotConfigured is the Confluence counterpart.
var ErrConfluenceNotConfigured = errors.New("confluence is not configured, add a [confluence] section to .gitdocs.toml")

// App holds everything a command needs: merged config, the repo root, the
// response cache and lazily built tracker clients.
type App struct {
	Config   config.Config
	RepoRoot string
	Logger   *log.Logger
	Cache    *cache.Cache
	Secrets  secrets.Provider

	jiraAPI       *jira.API
	confluenceAPI *confluence.API
}

// Options overrides parts of the default wiring, mainly for tests.
type Options struct {
	// Secrets replaces the default credential provider when non-nil.
	Secrets secrets.Provider
	// DisableCache forces a disabled cache regardless of config.
	DisableCache bool
}

// New builds the application for a repository root. The cache failing to
// open is not fatal: gitdocs degrades to uncached operation with a warning.
func New(repoRoot string, logger *log.Logger, opts Options) (*App, error) {
	cfg, err := config.Load(repoRoot)
	if err != nil {
		return nil, err
	}

	provider := opts.Secrets
	if provider == nil {
		provider, err = secrets.Default()
		if err != nil {
			return nil, err
		}
	}

	c := cache.Disabled()
	if !opts.DisableCache && cfg.User.Cache.Enabled {
		dir, err := storage.RepoCacheDir(repoRoot)
		if err != nil {
			logger.Warnf("cache unavailable: %v", err)
		} else {
			cacheOpts := cache.Options{
				DefaultTTL:   cfg.User.Cache.TTL(),
				Enabled:      true,
				MaxSizeBytes: cfg.User.Cache.MaxSizeBytes(),
			}
			c, err = cache.Open(dir, cacheOpts, logger)
			if err != nil {
				logger.Warnf("cache unavailable: %v", err)
				c = cache.Disabled()
			}
		}
	}

	return &App{
		Config:   cfg,
		RepoRoot: repoRoot,
		Logger:   logger,
		Cache:    c,
		Secrets:  provider,
	}, nil
}

// Close releases the cache database.
func (a *App) Close() error {
	return a.Cache.Close()
}

// Jira returns the Jira API wrapper, building it on first use.
func (a *App) Jira() (*jira.API, error) {
	if a.jiraAPI != nil {
		return a.jiraAPI, nil
	}
	jc := a.Config.Repo.Jira
	if jc == nil || jc.BaseURL == "" {
		return nil, ErrJiraNotConfigured
	}
	token, err := a.Secrets.Get(secrets.ServiceJira)
	if err != nil {
		return nil, fmt.Errorf("jira token: %w (run 'gitdocs auth set jira')", err)
	}

	client := jira.NewClient(jc.BaseURL, jc.Email, token)
	a.jiraAPI = jira.NewAPI(client, a.Cache, a.Config.User.Cache.TTL())
	return a.jiraAPI, nil
}

// Confluence returns the Confluence API wrapper, building it on first use.
func (a *App) Confluence() (*confluence.API, error) {
	if a.confluenceAPI != nil {
		return a.confluenceAPI, nil
	}
	cc := a.Config.Repo.Confluence
	if cc == nil || cc.BaseURL == "" {
		return nil, ErrConfluenceNotConfigured
	}
	token, err := a.Secrets.Get(secrets.ServiceConfluence)
	if err != nil {
		return nil, fmt.Errorf("confluence token: %w (run 'gitdocs auth set confluence')", err)
	}

	a.confluenceAPI = confluence.NewAPI(cc.BaseURL, cc.Email, token, a.Cache, a.Config.User.Cache.TTL())
	return a.confluenceAPI, nil
}

// MappingsPath is where this repository's ticket mappings live.
func (a *App) MappingsPath() string {
	return storage.MappingsPath(a.RepoRoot)
}

// LoadMappings reads the mapping store, returning an empty usable store
// when the file is missing or corrupt.
func (a *App) LoadMappings() *mapping.Store {
	return mapping.Load(a.Logger, a.MappingsPath())
}

// SaveMappings writes the store under the repository's file lock so that
// concurrent gitdocs invocations do not clobber each other.
func (a *App) SaveMappings(store *mapping.Store) error {
	lock := storage.NewFileLock(a.MappingsPath() + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock mappings: %w", err)
	}
	defer lock.Unlock()

	return store.Save(a.MappingsPath())
}

// CommitPatterns returns the configured ticket key patterns, falling back
// to the default when the repo config has none.
func (a *App) CommitPatterns() []string {
	if len(a.Config.Repo.CommitPatterns) > 0 {
		return a.Config.Repo.CommitPatterns
	}
	return config.DefaultRepo().CommitPatterns
}
