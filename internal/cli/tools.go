package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var toolsJSON bool

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools exposed by the tool server",
	Long: `Connect to the configured MCP tool server and print the tool catalog
exactly as the planner sees it.`,
	Args: cobra.NoArgs,
	RunE: runTools,
}

func init() {
	toolsCmd.Flags().BoolVar(&toolsJSON, "json", false, "print descriptors, including input schemas, as JSON")
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.close()

	sess, err := a.connect(cmd.Context())
	if err != nil {
		return err
	}
	defer sess.close()

	out := cmd.OutOrStdout()
	if toolsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sess.registry.Tools())
	}

	fmt.Fprintln(out, sess.registry.CatalogText())
	for _, w := range sess.registry.Warnings() {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}
	return nil
}
