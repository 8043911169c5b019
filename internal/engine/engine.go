package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"vmforge/internal/execx"
	"vmforge/internal/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine drives the external declarative provisioning tool as an opaque
// apply/destroy black box. It only ever passes a variables file in and reads
// declared outputs back through the tool's own CLI; the tool's state store is
// never touched directly.
type Engine struct {
	binary string
	dir    string
	runner execx.Runner
	log    *zap.Logger
}

// New creates an engine driver for the given binary and working directory.
func New(binary, dir string) *Engine {
	if binary == "" {
		binary = "tofu"
	}
	if dir == "" {
		dir = "."
	}
	return &Engine{
		binary: binary,
		dir:    dir,
		runner: execx.Local{},
		log:    logging.Logger(),
	}
}

// Apply creates or updates the resources described by the variables file.
func (e *Engine) Apply(ctx context.Context, varFile string) error {
	return e.run(ctx, "apply", varFile)
}

// Destroy tears down the resources described by the variables file.
func (e *Engine) Destroy(ctx context.Context, varFile string) error {
	return e.run(ctx, "destroy", varFile)
}

// Output reads a single declared output value back from the tool.
func (e *Engine) Output(ctx context.Context, name string) (string, error) {
	out, err := e.runner.Run(ctx, e.binary, "-chdir="+e.dir, "output", "-raw", name)
	if err != nil {
		return "", fmt.Errorf("failed to read engine output %q: %v", name, err)
	}
	return out, nil
}

func (e *Engine) run(ctx context.Context, command, varFile string) error {
	absVarFile, err := filepath.Abs(varFile)
	if err != nil {
		return fmt.Errorf("failed to resolve variables file path: %v", err)
	}

	runID := uuid.NewString()
	e.log.Info("invoking provisioning engine",
		zap.String("run_id", runID),
		zap.String("command", command),
		zap.String("var_file", absVarFile),
		zap.String("dir", e.dir))

	out, err := e.runner.Run(ctx, e.binary,
		"-chdir="+e.dir, command, "-auto-approve", "-input=false", "-var-file="+absVarFile)
	if err != nil {
		e.log.Error("provisioning engine failed",
			zap.String("run_id", runID),
			zap.String("command", command),
			zap.String("output", logging.Truncate(out)),
			zap.Error(err))
		return fmt.Errorf("engine %s failed: %v", command, err)
	}

	e.log.Info("provisioning engine finished",
		zap.String("run_id", runID),
		zap.String("command", command),
		zap.String("output", logging.Truncate(out)))
	return nil
}
