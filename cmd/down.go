package cmd

import (
	"context"

	"vmforge/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Destroy the provisioned VM",
	Run: func(cmd *cobra.Command, args []string) {
		l, cfg := newLab()
		if err := l.Down(context.Background()); err != nil {
			logging.Logger().Fatal("teardown failed",
				zap.String("provider", cfg.Provider),
				zap.Error(err))
		}
		logging.Logger().Info("VM destroyed",
			zap.String("provider", cfg.Provider),
			zap.String("vm_name", cfg.VM.Name))
	},
}

func init() {
	rootCmd.AddCommand(downCmd)
}
