package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/richmansdream/crmdesk/internal/ux"
)

var rootCmd = &cobra.Command{
	Use:   "crmdesk",
	Short: "Terminal client for the RichMansDream real-estate CRM",
	Long: `crmdesk signs in to the RichMansDream CRM and browses its leads, emails
and dashboard from the terminal, either as one-shot commands or as an
interactive console.

It can also run a local stub of the CRM API for development:

  crmdesk stub serve &
  crmdesk auth login --email sarah.johnson@richmansdream.com
  crmdesk leads list --status hot`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx as every command's context
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default is ~/.crmdesk/config.yaml)")
	flags.String("env-file", "", "dotenv file to load (default is .env when present)")
	flags.String("api-url", "", "CRM API base URL (default http://localhost:8000/api)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: auto, text, json")
	flags.StringP("output", "o", "text", "output format: text, json, yaml")
	flags.String("query", "", "JMESPath expression applied to json/yaml/text output")
	flags.Bool("no-color", false, "disable colored output")
	flags.Int("page-size", 0, "rows per page for list commands (1-100)")
	flags.Bool("mock", false, "serve bundled sample data instead of calling the API")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return ux.Formats, cobra.ShellCompDirectiveNoFileComp
	})
}
