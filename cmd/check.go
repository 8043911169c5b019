package cmd

import (
	"context"

	"vmforge/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate host prerequisites for the configured backend",
	Run: func(cmd *cobra.Command, args []string) {
		l, cfg := newLab()
		if err := l.Check(context.Background()); err != nil {
			logging.Logger().Fatal("prerequisite validation failed",
				zap.String("provider", cfg.Provider),
				zap.Error(err))
		}
		logging.Logger().Info("prerequisites satisfied",
			zap.String("provider", cfg.Provider))
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
