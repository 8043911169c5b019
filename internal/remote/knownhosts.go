package remote

import (
	"context"

	"vmforge/internal/execx"
	"vmforge/internal/logging"

	"go.uber.org/zap"
)

// ReconcileKnownHosts removes any stale known_hosts entry for the given
// address. Short-lived VMs reuse addresses across runs with fresh host keys,
// so a leftover entry would make every subsequent connection fail host key
// verification.
func ReconcileKnownHosts(ctx context.Context, runner execx.Runner, addr string) {
	if addr == "" {
		return
	}

	out, err := runner.Run(ctx, "ssh-keygen", "-R", addr)
	if err != nil {
		// Missing known_hosts file or no matching entry is the common case
		// on a clean machine; nothing to reconcile.
		logging.Logger().Debug("known_hosts reconciliation skipped",
			zap.String("address", addr),
			zap.String("output", logging.Truncate(out)),
			zap.Error(err))
		return
	}

	logging.Logger().Info("stale known_hosts entry removed",
		zap.String("address", addr))
}
