package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/richmansdream/crmdesk/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print version information including version number, git commit,
build date, Go version, and platform.`,
	RunE: runVersion,
}

func init() {
	versionCmd.Flags().BoolP("verbose", "v", false, "show detailed version information")
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	info := version.GetInfo()
	output, _ := cmd.Flags().GetString("output")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if output != "text" {
		cc, err := NewCommandContext(cmd)
		if err != nil {
			return err
		}
		defer cc.Close()
		return cc.Print(info)
	}

	if verbose {
		fmt.Fprintln(cmd.OutOrStdout(), info.String())
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "crmdesk %s\n", info.Short())
	return nil
}
