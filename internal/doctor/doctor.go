// Package doctor performs diagnostic checks on a gitdocs setup: git
// availability, configuration, credentials, the cache store and the
// mapping record. Checks never mutate anything.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gitdocs/gitdocs/internal/app"
	"github.com/gitdocs/gitdocs/internal/git"
	"github.com/gitdocs/gitdocs/internal/secrets"
	"github.com/gitdocs/gitdocs/internal/storage"
)

// Status classifies a check result.
type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Check is one diagnostic result.
type Check struct {
	Name   string
	Status Status
	Detail string
}

// Run executes all checks against the wired application.
func Run(ctx context.Context, a *app.App) []Check {
	checks := []Check{
		checkGit(),
		checkRepoConfig(a),
		checkService(a, "jira token", a.Config.Repo.Jira != nil, secrets.ServiceJira),
		checkService(a, "confluence token", a.Config.Repo.Confluence != nil, secrets.ServiceConfluence),
		checkCache(a),
		checkMappings(a),
	}
	return checks
}

// Failed reports whether any check failed outright.
func Failed(checks []Check) bool {
	for _, c := range checks {
		if c.Status == StatusFail {
			return true
		}
	}
	return false
}

func checkGit() Check {
	if err := git.CheckGit(); err != nil {
		return Check{Name: "git", Status: StatusFail, Detail: err.Error()}
	}
	return Check{Name: "git", Status: StatusOK, Detail: "git is available"}
}

func checkRepoConfig(a *app.App) Check {
	name := "repo config"
	if a.Config.Repo.Jira == nil && a.Config.Repo.Confluence == nil {
		return Check{
			Name:   name,
			Status: StatusWarn,
			Detail: "no [jira] or [confluence] section, run 'gitdocs init' and edit .gitdocs.toml",
		}
	}
	return Check{Name: name, Status: StatusOK, Detail: "loaded from " + a.RepoRoot}
}

func checkService(a *app.App, name string, configured bool, service string) Check {
	if !configured {
		return Check{Name: name, Status: StatusWarn, Detail: "service not configured"}
	}
	if _, err := a.Secrets.Get(service); err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			return Check{Name: name, Status: StatusFail, Detail: "no token stored, run 'gitdocs auth set'"}
		}
		return Check{Name: name, Status: StatusFail, Detail: err.Error()}
	}
	return Check{Name: name, Status: StatusOK, Detail: "token present"}
}

func checkCache(a *app.App) Check {
	name := "cache"
	if !a.Cache.Enabled() {
		return Check{Name: name, Status: StatusWarn, Detail: "cache is disabled"}
	}
	stats := a.Cache.Stats()
	return Check{
		Name:   name,
		Status: StatusOK,
		Detail: fmt.Sprintf("%d entries in %s", stats.Entries, stats.Directory),
	}
}

func checkMappings(a *app.App) Check {
	name := "mappings"
	path := a.MappingsPath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Check{Name: name, Status: StatusOK, Detail: "none recorded yet"}
	}

	var raw struct {
		Mappings map[string]any `json:"mappings"`
	}
	if err := storage.LoadJSON(path, &raw); err != nil {
		return Check{
			Name:   name,
			Status: StatusWarn,
			Detail: fmt.Sprintf("%s is unreadable and will be rebuilt on next scan: %v", path, err),
		}
	}

	store := a.LoadMappings()
	return Check{
		Name:   name,
		Status: StatusOK,
		Detail: fmt.Sprintf("%d commit link(s) across %d ticket(s)", store.Len(), len(store.Tickets())),
	}
}
