package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/signaltree"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of signaltree",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "signaltree version %s\n", strings.TrimSpace(signaltree.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
