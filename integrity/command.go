package integrity

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/teranos/refresh/errors"
)

// maxOutput bounds how much command output is kept in an error
const maxOutput = 2048

// CommandProbe runs an external self-check, such as the dashboard server's
// check-only mode, in the project root. A non-zero exit fails the probe.
type CommandProbe struct {
	Root    string
	Args    []string
	Timeout time.Duration
}

// NewCommandProbe splits command with shell quoting rules.
// No shell is involved: pipes and redirections are not interpreted.
func NewCommandProbe(root, command string, timeout time.Duration) (*CommandProbe, error) {
	args, err := shellquote.Split(command)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid integrity.command %q", command)
	}
	if len(args) == 0 {
		return nil, errors.New("integrity.command is empty")
	}
	return &CommandProbe{Root: root, Args: args, Timeout: timeout}, nil
}

// Name returns "command"
func (p *CommandProbe) Name() string { return "command" }

// Probe runs the command and fails on error, non-zero exit or timeout
func (p *CommandProbe) Probe(ctx context.Context) error {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, p.Args[0], p.Args[1:]...)
	cmd.Dir = p.Root
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return errors.Newf("%s timed out after %s", shellquote.Join(p.Args...), p.Timeout)
	}
	if err != nil {
		return errors.WithDetail(
			errors.Wrapf(err, "%s failed", shellquote.Join(p.Args...)),
			truncate(strings.TrimSpace(out.String())),
		)
	}
	return nil
}

func truncate(s string) string {
	if len(s) <= maxOutput {
		return s
	}
	return s[len(s)-maxOutput:]
}
