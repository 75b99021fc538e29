package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/richmansdream/crmdesk/internal/dashboard"
	"github.com/richmansdream/crmdesk/internal/model"
	"github.com/richmansdream/crmdesk/internal/query"
	"github.com/richmansdream/crmdesk/internal/tui"
	"github.com/richmansdream/crmdesk/internal/ux"
)

var consoleCmd = &cobra.Command{
	Use:     "console",
	Aliases: []string{"ui"},
	Short:   "Open the interactive console",
	Long: `Open the full-screen console with the dashboard, leads and emails.

The console asks you to sign in when no valid session is stored, and
returns to the sign-in form when the server rejects the session. Logs go
to the configured log file (log.file) instead of the screen.

Keys:
  1/2/3 or tab   switch view
  /              search the current list
  f              open the status filter
  [ ]            previous / next page
  t              cycle the email tabs (inbox, sent, all)
  L              sign out
  ?              help
  q              quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !ux.Interactive() {
			return ux.ErrNotInteractive
		}

		cc, err := NewCommandContext(cmd)
		if err != nil {
			return err
		}
		defer cc.Close()
		if err := cc.LogToFile(); err != nil {
			return err
		}

		mgr, client, err := cc.NewSession()
		if err != nil {
			return err
		}

		toaster := &tui.Toaster{}
		ctrlOpts := []query.Option{query.WithNotifier(toaster), query.WithLogger(cc.Logger)}
		leads := query.NewController(cc.ListConfig(query.Leads), cc.LeadSource(client, mgr), ctrlOpts...)
		emails := query.NewController(cc.ListConfig(query.Emails), cc.EmailSource(client, mgr), ctrlOpts...)

		cc.Logger.Info("console starting", "api", cc.Config.API.BaseURL, "mock", cc.Config.Mock.Enabled)
		return tui.Run(cmd.Context(), tui.Deps{
			Session: mgr,
			Leads:   leads,
			Emails:  emails,
			Dashboard: func(ctx context.Context) (*dashboard.Data, error) {
				return cc.LoadDashboard(ctx, client, mgr)
			},
			Templates: func(ctx context.Context) ([]model.EmailTemplate, error) {
				return cc.Templates(ctx, client, mgr)
			},
			Toaster: toaster,
			Logger:  cc.Logger,
		})
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}
