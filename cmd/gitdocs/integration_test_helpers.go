//go:build integration

package main

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/gitdocs/gitdocs/internal/log"
	"github.com/gitdocs/gitdocs/internal/output"
)

// resolvePath resolves symlinks in a path.
// This is needed on macOS where /var is a symlink to /private/var.
func resolvePath(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		t.Fatalf("failed to resolve path %s: %v", path, err)
	}
	return resolved
}

// setupTestRepo creates a git repo with commits carrying ticket keys.
// Returns the absolute repo path (with symlinks resolved).
func setupTestRepo(t *testing.T, messages ...string) string {
	t.Helper()

	repoPath := resolvePath(t, t.TempDir())

	cmds := [][]string{
		{"git", "init", "-b", "main"},
		{"git", "config", "user.email", "test@test.com"},
		{"git", "config", "user.name", "Test User"},
		{"git", "config", "commit.gpgsign", "false"},
	}
	for _, args := range cmds {
		runRepoCommand(t, repoPath, args...)
	}

	for i, message := range messages {
		name := filepath.Join(repoPath, "file"+string(rune('a'+i))+".txt")
		if err := os.WriteFile(name, []byte(message+"\n"), 0o644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
		runRepoCommand(t, repoPath, "git", "add", ".")
		runRepoCommand(t, repoPath, "git", "commit", "-m", message)
	}

	return repoPath
}

func runRepoCommand(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to run %v: %v\n%s", args, err, out)
	}
}

// testContext returns a context with a quiet logger and an output buffer.
func testContext(t *testing.T) (context.Context, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	ctx := log.WithLogger(context.Background(), log.Discard())
	ctx = output.WithPrinter(ctx, &buf)
	return ctx, &buf
}

// executeCommand runs a cobra command with args and returns its output.
func executeCommand(ctx context.Context, cmd *cobra.Command, args ...string) (string, error) {
	out := output.FromContext(ctx)
	cmd.SetOut(out.Writer())
	cmd.SetErr(out.Writer())
	cmd.SetArgs(args)
	cmd.SetContext(ctx)
	err := cmd.ExecuteContext(ctx)
	var buf *bytes.Buffer
	if b, ok := out.Writer().(*bytes.Buffer); ok {
		buf = b
	} else {
		buf = &bytes.Buffer{}
	}
	return buf.String(), err
}

// isolateUserConfig keeps the user's real config and credentials out of
// integration runs.
func isolateUserConfig(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("GITDOCS_JIRA_TOKEN", "")
	t.Setenv("GITDOCS_CONFLUENCE_TOKEN", "")
}
