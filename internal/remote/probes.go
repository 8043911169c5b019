package remote

import (
	"fmt"
	"sync"

	"vmforge/internal/logging"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"
)

// maxProbeConcurrency bounds how many verification commands run on the VM at
// once. The guest is freshly booted and small; flooding it with sessions makes
// probes flaky.
const maxProbeConcurrency = 4

// commandRunner is the slice of Client the probes need.
type commandRunner interface {
	Run(command string) error
}

// ProbeResult records the outcome of a single verification command.
type ProbeResult struct {
	Command string
	Err     error
}

// RunProbes executes the configured verification commands against the VM
// using a bounded worker pool. All probes run even when some fail; the
// returned error summarizes every failure.
func RunProbes(client commandRunner, commands []string) error {
	if len(commands) == 0 {
		return nil
	}

	pool := pond.NewPool(maxProbeConcurrency)

	var mu sync.Mutex
	var failures []ProbeResult

	for _, command := range commands {
		command := command
		pool.Submit(func() {
			err := client.Run(command)
			if err != nil {
				mu.Lock()
				failures = append(failures, ProbeResult{Command: command, Err: err})
				mu.Unlock()
				logging.Logger().Warn("probe failed",
					zap.String("command", logging.Truncate(command)),
					zap.Error(err))
				return
			}
			logging.Logger().Info("probe passed",
				zap.String("command", logging.Truncate(command)))
		})
	}

	pool.StopAndWait()

	if len(failures) > 0 {
		return fmt.Errorf("%d of %d probes failed, first failure: %q: %v",
			len(failures), len(commands), failures[0].Command, failures[0].Err)
	}
	return nil
}
