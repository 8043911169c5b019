package execx

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"vmforge/internal/logging"

	"go.uber.org/zap"
)

// Runner abstracts local process execution so callers can be tested without
// touching the host.
type Runner interface {
	// Run executes a command and returns its combined output, trimmed.
	Run(ctx context.Context, name string, args ...string) (string, error)
	// LookPath reports where a binary resolves in PATH.
	LookPath(name string) (string, error)
}

// Local runs commands on the host.
type Local struct{}

// Run executes a command on the host and returns its combined output
func (Local) Run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	output := strings.TrimSpace(string(out))

	logging.Logger().Debug("command executed",
		zap.String("command", logging.Truncate(name+" "+strings.Join(args, " "))),
		zap.String("output", logging.Truncate(output)),
		zap.Bool("success", err == nil))

	if err != nil {
		return output, fmt.Errorf("%s: %w", name, err)
	}
	return output, nil
}

// LookPath resolves a binary in PATH
func (Local) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
