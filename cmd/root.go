package cmd

import (
	"vmforge/internal/config"
	"vmforge/internal/lab"
	"vmforge/internal/logging"
	"vmforge/internal/provider/builtin"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile      string
	providerName string
)

var rootCmd = &cobra.Command{
	Use:   "vmforge",
	Short: "Provision short-lived test VMs through pluggable backends",
	Long: `vmforge provisions disposable test VMs on libvirt, AWS or DigitalOcean.
It validates host prerequisites, generates the variables consumed by the
external provisioning engine, and verifies the resulting machine over SSH.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logging.Logger().Fatal("command failed", zap.Error(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to config file (default vmforge.yaml)")
	rootCmd.PersistentFlags().StringVarP(&providerName, "provider", "p", "", "backend to use, overriding the config file")
}

// newLab builds a lab from the loaded configuration and the shipped backends.
func newLab() (*lab.Lab, *config.Source) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		logging.Logger().Fatal("failed to load config", zap.Error(err))
	}
	if providerName != "" {
		cfg.Provider = providerName
	}
	return lab.New(cfg, builtin.Registry()), cfg
}
