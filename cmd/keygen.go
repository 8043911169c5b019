package cmd

import (
	"path/filepath"

	"vmforge/internal/logging"
	"vmforge/internal/sshkey"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate the managed SSH key pair used for VM access",
	Run: func(cmd *cobra.Command, args []string) {
		_, cfg := newLab()
		keys, err := sshkey.Generate(filepath.Join(cfg.Engine.Dir, ".vmforge"))
		if err != nil {
			logging.Logger().Fatal("key generation failed", zap.Error(err))
		}
		logging.Logger().Info("SSH key pair ready",
			zap.String("private_key", keys.PrivateKeyPath),
			zap.String("public_key", keys.PublicKeyPath))
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
