package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gitdocs/gitdocs/internal/app"
	"github.com/gitdocs/gitdocs/internal/git"
	"github.com/gitdocs/gitdocs/internal/log"
)

// newApp locates the enclosing repository and wires up the application.
// The caller owns the returned App and must Close it.
func newApp(ctx context.Context) (*app.App, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	root, err := git.RepoRoot(ctx, cwd)
	if err != nil {
		return nil, fmt.Errorf("gitdocs must run inside a git repository: %w", err)
	}

	return app.New(root, log.FromContext(ctx), app.Options{DisableCache: noCache})
}
