package cmd

import (
	"context"
	"fmt"

	"vmforge/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the state of the configured VM",
	Run: func(cmd *cobra.Command, args []string) {
		l, cfg := newLab()
		state, err := l.Status(context.Background())
		if err != nil {
			logging.Logger().Fatal("status query failed",
				zap.String("provider", cfg.Provider),
				zap.Error(err))
		}
		fmt.Printf("%s (%s): %s\n", cfg.VM.Name, cfg.Provider, state)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
