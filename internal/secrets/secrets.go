// Package secrets provides API token storage for the tracker clients.
//
// Tokens are resolved from the environment first (GITDOCS_JIRA_TOKEN,
// GITDOCS_CONFLUENCE_TOKEN — also loaded from a .env file by the CLI),
// falling back to a 0600 credentials file in the user config directory.
// Tokens are stored as-is; protection comes from file permissions, not a
// home-grown cipher.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gitdocs/gitdocs/internal/storage"
)

// Service names used as credential keys.
const (
	ServiceJira       = "jira"
	ServiceConfluence = "confluence"
)

// Environment variables checked before the credentials file.
var envVars = map[string]string{
	ServiceJira:       "GITDOCS_JIRA_TOKEN",
	ServiceConfluence: "GITDOCS_CONFLUENCE_TOKEN",
}

// ErrNotFound is returned when no token is stored for a service.
var ErrNotFound = errors.New("secret not found")

// Provider stores and retrieves API tokens.
type Provider interface {
	Get(service string) (string, error)
	Set(service, secret string) error
	Delete(service string) error
}

// fileProvider keeps credentials in a 0600 JSON file, with the environment
// taking precedence on reads.
type fileProvider struct {
	path string
}

// CredentialsFileName is the token store inside the user config directory.
const CredentialsFileName = "credentials.json"

// Default returns the standard provider backed by the user config dir.
func Default() (Provider, error) {
	dir, err := storage.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	return &fileProvider{path: filepath.Join(dir, CredentialsFileName)}, nil
}

// NewFileProvider returns a provider backed by the given file path.
func NewFileProvider(path string) Provider {
	return &fileProvider{path: path}
}

func (p *fileProvider) load() map[string]string {
	creds := make(map[string]string)
	// A missing or unreadable file means no stored credentials.
	_ = storage.LoadJSON(p.path, &creds)
	return creds
}

func (p *fileProvider) save(creds map[string]string) error {
	if err := storage.SaveJSON(p.path, creds); err != nil {
		return err
	}
	// SaveJSON writes 0600 already; enforce it for pre-existing files too.
	return os.Chmod(p.path, 0o600)
}

func (p *fileProvider) Get(service string) (string, error) {
	if env, ok := envVars[service]; ok {
		if token := os.Getenv(env); token != "" {
			return token, nil
		}
	}

	if token, ok := p.load()[service]; ok && token != "" {
		return token, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, service)
}

func (p *fileProvider) Set(service, secret string) error {
	creds := p.load()
	creds[service] = secret
	return p.save(creds)
}

func (p *fileProvider) Delete(service string) error {
	creds := p.load()
	if _, ok := creds[service]; !ok {
		return nil
	}
	delete(creds, service)
	return p.save(creds)
}
