package cmd

import (
	"context"

	"vmforge/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Provision the VM and run verification probes",
	Run: func(cmd *cobra.Command, args []string) {
		l, cfg := newLab()
		if err := l.Up(context.Background()); err != nil {
			logging.Logger().Fatal("provisioning failed",
				zap.String("provider", cfg.Provider),
				zap.String("vm_name", cfg.VM.Name),
				zap.Error(err))
		}
		logging.Logger().Info("VM is up",
			zap.String("provider", cfg.Provider),
			zap.String("vm_name", cfg.VM.Name))
	},
}

func init() {
	rootCmd.AddCommand(upCmd)
}
