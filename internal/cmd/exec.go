// Package cmd provides helpers for executing external commands with proper
// error handling. Stderr is captured and folded into the returned error so
// failures carry the actual message git printed, not just an exit status.
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/gitdocs/gitdocs/internal/log"
)

// RunContext executes a command in dir (cwd if empty) and returns stderr in
// the error message if it fails. The command is logged in verbose mode.
func RunContext(ctx context.Context, dir, name string, args ...string) error {
	log.FromContext(ctx).Command(name, args...)

	c := exec.CommandContext(ctx, name, args...)
	c.Dir = dir

	var stderr bytes.Buffer
	c.Stderr = &stderr
	if err := c.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errMsg := strings.TrimSpace(stderr.String()); errMsg != "" {
			return fmt.Errorf("%s", errMsg)
		}
		return err
	}
	return nil
}

// InteractiveContext executes a command attached to the caller's terminal,
// for programs that need the tty such as editors.
func InteractiveContext(ctx context.Context, dir, name string, args ...string) error {
	log.FromContext(ctx).Command(name, args...)

	c := exec.CommandContext(ctx, name, args...)
	c.Dir = dir
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// OutputContext executes a command in dir (cwd if empty) and returns stdout,
// with stderr in the error if it fails.
func OutputContext(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	log.FromContext(ctx).Command(name, args...)

	c := exec.CommandContext(ctx, name, args...)
	c.Dir = dir

	var stderr bytes.Buffer
	c.Stderr = &stderr
	output, err := c.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errMsg := strings.TrimSpace(stderr.String()); errMsg != "" {
			return nil, fmt.Errorf("%s", errMsg)
		}
		return nil, err
	}
	return output, nil
}
