package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the available backends",
	Run: func(cmd *cobra.Command, args []string) {
		l, cfg := newLab()
		for _, name := range l.Providers() {
			marker := " "
			if name == cfg.Provider {
				marker = "*"
			}
			fmt.Printf("%s %s\n", marker, name)
		}
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}
