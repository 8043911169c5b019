package cmd

import (
	"context"

	"vmforge/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the variables artifact for the configured backend",
	Run: func(cmd *cobra.Command, args []string) {
		l, cfg := newLab()
		path, err := l.Generate(context.Background())
		if err != nil {
			logging.Logger().Fatal("variable generation failed",
				zap.String("provider", cfg.Provider),
				zap.Error(err))
		}
		logging.Logger().Info("variables artifact written",
			zap.String("provider", cfg.Provider),
			zap.String("path", path))
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
}
