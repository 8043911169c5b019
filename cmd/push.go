package cmd

import (
	"context"

	"vmforge/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var pushCmd = &cobra.Command{
	Use:   "push <local-path> <remote-path>",
	Short: "Upload a file onto the running VM",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		l, cfg := newLab()
		if err := l.Push(context.Background(), args[0], args[1]); err != nil {
			logging.Logger().Fatal("upload failed",
				zap.String("vm_name", cfg.VM.Name),
				zap.Error(err))
		}
		logging.Logger().Info("file uploaded",
			zap.String("local_path", args[0]),
			zap.String("remote_path", args[1]))
	},
}

func init() {
	rootCmd.AddCommand(pushCmd)
}
