package cmd

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/richmansdream/crmdesk/internal/errors"
	"github.com/richmansdream/crmdesk/internal/mockdata"
	"github.com/richmansdream/crmdesk/internal/model"
	"github.com/richmansdream/crmdesk/internal/query"
	"github.com/richmansdream/crmdesk/internal/ux"
)

var emailsCmd = &cobra.Command{
	Use:     "emails",
	Aliases: []string{"email"},
	Short:   "Browse emails and templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var emailsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List one page of emails",
	Long: `List one page of emails, newest first. --tab selects the inbox
(received), sent or all emails.

Examples:
  crmdesk emails list
  crmdesk emails list --tab sent --status delivered
  crmdesk emails list --tab all --search viewing -o yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := listFlags(cmd)
		if err != nil {
			return err
		}
		tab, _ := cmd.Flags().GetString("tab")
		if err := checkChoice("tab", tab, query.EmailTabs); err != nil {
			return err
		}
		if err := checkChoice("status", req.Filters["status"], emailStatusChoices()); err != nil {
			return err
		}
		req.Filters["direction"] = query.DirectionForTab(tab)

		cc, err := NewCommandContext(cmd)
		if err != nil {
			return err
		}
		defer cc.Close()

		client, creds, err := cc.Reader(cmd.Context())
		if err != nil {
			return err
		}

		cfg := cc.ListConfig(query.Emails)
		snap, err := readPage(cmd.Context(), cfg, cc.EmailSource(client, creds), req, query.WithLogger(cc.Logger))
		if err != nil {
			return err
		}
		return cc.Print(emailsTable(snap, time.Now()))
	},
}

var emailsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one email with its body",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cc, err := NewCommandContext(cmd)
		if err != nil {
			return err
		}
		defer cc.Close()

		var email *model.Email
		if cc.Config.Mock.Enabled {
			email = findEmail(args[0])
			if email == nil {
				return notFoundError("email", args[0], errors.ErrNotFound)
			}
		} else {
			mgr, client, err := cc.RequireSession(cmd.Context())
			if err != nil {
				return err
			}
			email, err = client.GetEmail(cmd.Context(), args[0], mgr.Credential())
			if err != nil {
				return notFoundError("email", args[0], err)
			}
		}
		return cc.Print(emailDetails(*email))
	},
}

var emailsTemplatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the active email templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		cc, err := NewCommandContext(cmd)
		if err != nil {
			return err
		}
		defer cc.Close()

		client, creds, err := cc.Reader(cmd.Context())
		if err != nil {
			return err
		}
		templates, err := cc.Templates(cmd.Context(), client, creds)
		if err != nil {
			return err
		}
		return cc.Print(templatesTable(templates))
	},
}

func findEmail(id string) *model.Email {
	for _, e := range mockdata.Emails() {
		if e.ID == id {
			return &e
		}
	}
	return nil
}

func emailStatusChoices() []string {
	out := []string{query.AllFilter}
	for _, s := range model.EmailStatuses {
		out = append(out, string(s))
	}
	return out
}

func emailsTable(snap query.Snapshot[model.Email], now time.Time) *ux.Table {
	rows := make([][]string, 0, len(snap.Items))
	for _, e := range snap.Items {
		rows = append(rows, []string{
			e.ID,
			ux.Truncate(e.Subject, 40),
			e.Counterparty(),
			ux.Optional(e.LeadName),
			string(e.Status),
			string(e.Direction),
			ux.Ago(e.CreatedAt, now),
		})
	}
	return &ux.Table{
		Headers: []string{"ID", "SUBJECT", "CONTACT", "LEAD", "STATUS", "DIRECTION", "WHEN"},
		Rows:    rows,
		Footer:  pageFooter(snap),
		Empty:   "No emails found.",
		Items:   newListOutput(snap),
	}
}

func emailDetails(e model.Email) *ux.Details {
	sent := ""
	if e.SentAt != nil {
		sent = ux.Date(*e.SentAt)
	}
	return &ux.Details{
		Title: e.Subject,
		Fields: []ux.Field{
			{Label: "ID", Value: e.ID},
			{Label: "From", Value: e.FromEmail},
			{Label: "To", Value: e.ToEmail},
			{Label: "Lead", Value: e.LeadName},
			{Label: "Agent", Value: e.AgentName},
			{Label: "Status", Value: string(e.Status)},
			{Label: "Direction", Value: string(e.Direction)},
			{Label: "Sent", Value: sent},
		},
		Body: e.Content,
		Item: e,
	}
}

func templatesTable(templates []model.EmailTemplate) *ux.Table {
	rows := make([][]string, 0, len(templates))
	for _, t := range templates {
		rows = append(rows, []string{
			t.ID,
			t.Name,
			t.TemplateType,
			ux.Truncate(t.Subject, 40),
			strings.Join(t.Variables, ", "),
		})
	}
	if templates == nil {
		templates = []model.EmailTemplate{}
	}
	return &ux.Table{
		Headers: []string{"ID", "NAME", "TYPE", "SUBJECT", "VARIABLES"},
		Rows:    rows,
		Footer:  ux.Count(len(templates)) + " active templates",
		Empty:   "No active templates.",
		Items:   templates,
	}
}

func init() {
	addListFlags(emailsListCmd)
	emailsListCmd.Flags().String("tab", query.TabInbox, "inbox, sent or all")
	_ = emailsListCmd.RegisterFlagCompletionFunc("tab", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return query.EmailTabs, cobra.ShellCompDirectiveNoFileComp
	})
	_ = emailsListCmd.RegisterFlagCompletionFunc("status", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return emailStatusChoices(), cobra.ShellCompDirectiveNoFileComp
	})

	emailsCmd.AddCommand(emailsListCmd)
	emailsCmd.AddCommand(emailsShowCmd)
	emailsCmd.AddCommand(emailsTemplatesCmd)
	rootCmd.AddCommand(emailsCmd)
}
