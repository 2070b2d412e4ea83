package host

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/zonehub/backend/internal/infrastructure/logger"
)

type CommandResult struct {
	Success  bool
	Output   string
	ExitCode int
	Duration time.Duration
}

// Runner executes host administration commands (zoneadm, zonecfg, dladm,
// zfs). Behind an interface so operation handlers can be tested without a
// real host.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*CommandResult, error)
}

type ExecRunner struct {
	timeout time.Duration
	log     *logger.Logger
}

func NewExecRunner(timeout time.Duration, log *logger.Logger) *ExecRunner {
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	return &ExecRunner{timeout: timeout, log: log}
}

func (e *ExecRunner) Run(ctx context.Context, name string, args ...string) (*CommandResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(start)

	result := &CommandResult{
		Duration: duration,
		Output:   strings.TrimSpace(stdout.String()),
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			result.ExitCode = -1
			result.Output = "command timed out"
			e.log.Errorw("host_cmd_timeout", "cmd", name, "args", args, "timeout", e.timeout)
			return result, fmt.Errorf("command timed out after %v", e.timeout)
		}

		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			result.Output = strings.TrimSpace(stderr.String())
		} else {
			result.ExitCode = -1
			result.Output = err.Error()
		}
		e.log.Warnw("host_cmd_failed", "cmd", name, "args", args, "exit_code", result.ExitCode, "output", result.Output)
		return result, err
	}

	result.Success = true
	e.log.Infow("host_cmd_ok", "cmd", name, "args", args, "duration_ms", duration.Milliseconds())
	return result, nil
}
