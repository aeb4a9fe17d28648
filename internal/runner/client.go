// Package runner launches the external benchmark runner, one blocking
// invocation per sweep step.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"cusweep/internal/benchmark"
)

var ErrLaunchFailed = errors.New("runner launch failed")
var ErrRunnerFailed = errors.New("runner exited with failure")

// Client invokes the runner executable with "-" so it reads its
// configuration from stdin. DryRun skips the launch entirely; the
// caller is responsible for showing what would have run.
type Client struct {
	Path   string
	DryRun bool

	// Stdout overrides where runner output goes; defaults to the
	// process stdout. The TUI discards it.
	Stdout io.Writer
}

func (c *Client) Invoke(ctx context.Context, cfg *benchmark.Config) error {
	if strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("%w: runner path is empty", ErrLaunchFailed)
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	if c.DryRun {
		return nil
	}

	stdout := c.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	// Deliberately not exec.CommandContext: a running step is never
	// killed mid-flight. Cancellation takes effect at the next
	// between-step checkpoint in the orchestrator.
	cmd := exec.Command(c.Path, "-")
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = stdout
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}
	if err := cmd.Wait(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %v: %s", ErrRunnerFailed, err, msg)
		}
		return fmt.Errorf("%w: %v", ErrRunnerFailed, err)
	}
	return nil
}
