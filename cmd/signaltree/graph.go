package main

import (
	"fmt"

	"github.com/aretw0/signaltree/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <file>",
	Short: "Export the compiled tree as a Mermaid diagram",
	Long:  `Compiles a description and outputs a Mermaid diagram (graph TD). Concurrent groups are drawn as subgraphs.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sig, err := loadSignal(args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(sig.Tree(), nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
