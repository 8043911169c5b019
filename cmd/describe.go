package cmd

import (
	"fmt"
	"sort"

	"vmforge/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var describeCmd = &cobra.Command{
	Use:   "describe [backend]",
	Short: "Show descriptive info for a backend",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		l, _ := newLab()

		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		info, err := l.Describe(name)
		if err != nil {
			logging.Logger().Fatal("describe failed", zap.Error(err))
		}

		fmt.Printf("%s: %s\n", info.Name, info.Description)

		keys := make([]string, 0, len(info.Details))
		for k := range info.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s: %s\n", k, info.Details[k])
		}
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
}
