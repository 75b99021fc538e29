package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/richmansdream/crmdesk/internal/errors"
	"github.com/richmansdream/crmdesk/internal/mockdata"
	"github.com/richmansdream/crmdesk/internal/model"
	"github.com/richmansdream/crmdesk/internal/query"
	"github.com/richmansdream/crmdesk/internal/ux"
)

var leadsCmd = &cobra.Command{
	Use:     "leads",
	Aliases: []string{"lead"},
	Short:   "Browse leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List one page of leads",
	Long: `List one page of leads, newest first.

Examples:
  crmdesk leads list
  crmdesk leads list --status hot
  crmdesk leads list --search emma -o json
  crmdesk leads list --page 2 --query 'items[].email'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := listFlags(cmd)
		if err != nil {
			return err
		}
		if err := checkChoice("status", req.Filters["status"], leadStatusChoices()); err != nil {
			return err
		}

		cc, err := NewCommandContext(cmd)
		if err != nil {
			return err
		}
		defer cc.Close()

		client, creds, err := cc.Reader(cmd.Context())
		if err != nil {
			return err
		}

		cfg := cc.ListConfig(query.Leads)
		snap, err := readPage(cmd.Context(), cfg, cc.LeadSource(client, creds), req, query.WithLogger(cc.Logger))
		if err != nil {
			return err
		}
		return cc.Print(leadsTable(snap, time.Now()))
	},
}

var leadsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cc, err := NewCommandContext(cmd)
		if err != nil {
			return err
		}
		defer cc.Close()

		var lead *model.Lead
		if cc.Config.Mock.Enabled {
			lead = findLead(args[0])
			if lead == nil {
				return notFoundError("lead", args[0], errors.ErrNotFound)
			}
		} else {
			mgr, client, err := cc.RequireSession(cmd.Context())
			if err != nil {
				return err
			}
			lead, err = client.GetLead(cmd.Context(), args[0], mgr.Credential())
			if err != nil {
				return notFoundError("lead", args[0], err)
			}
		}
		return cc.Print(leadDetails(*lead, time.Now()))
	},
}

func findLead(id string) *model.Lead {
	for _, l := range mockdata.Leads() {
		if l.ID == id {
			return &l
		}
	}
	return nil
}

func leadStatusChoices() []string {
	out := []string{query.AllFilter}
	for _, s := range model.LeadStatuses {
		out = append(out, string(s))
	}
	return out
}

func leadsTable(snap query.Snapshot[model.Lead], now time.Time) *ux.Table {
	rows := make([][]string, 0, len(snap.Items))
	for _, l := range snap.Items {
		rows = append(rows, []string{
			l.ID,
			l.Name,
			l.Email,
			ux.Optional(l.Phone),
			string(l.Status),
			ux.Optional(l.AssignedAgent),
			ux.Ago(l.CreatedAt, now),
		})
	}
	return &ux.Table{
		Headers: []string{"ID", "NAME", "EMAIL", "PHONE", "STATUS", "AGENT", "ADDED"},
		Rows:    rows,
		Footer:  pageFooter(snap),
		Empty:   "No leads found.",
		Items:   newListOutput(snap),
	}
}

func leadDetails(l model.Lead, now time.Time) *ux.Details {
	return &ux.Details{
		Title: l.Name,
		Fields: []ux.Field{
			{Label: "ID", Value: l.ID},
			{Label: "Email", Value: l.Email},
			{Label: "Phone", Value: l.Phone},
			{Label: "Status", Value: string(l.Status)},
			{Label: "Source", Value: l.Source},
			{Label: "Budget", Value: l.Budget},
			{Label: "Property", Value: l.PropertyType},
			{Label: "Agent", Value: l.AssignedAgent},
			{Label: "Created", Value: ux.Date(l.CreatedAt)},
			{Label: "Last contact", Value: ux.AgoPtr(l.LastContact, now)},
		},
		Body: l.Notes,
		Item: l,
	}
}

func init() {
	addListFlags(leadsListCmd)
	_ = leadsListCmd.RegisterFlagCompletionFunc("status", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return leadStatusChoices(), cobra.ShellCompDirectiveNoFileComp
	})

	leadsCmd.AddCommand(leadsListCmd)
	leadsCmd.AddCommand(leadsShowCmd)
	rootCmd.AddCommand(leadsCmd)
}
