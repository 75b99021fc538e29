package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/richmansdream/crmdesk/internal/errors"
	"github.com/richmansdream/crmdesk/internal/model"
	"github.com/richmansdream/crmdesk/internal/ux"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the CRM session",
	Long: `Manage the session used by every other command.

The access token is kept in the configured token store (a file under
~/.crmdesk by default, or Redis when session.store is "redis").

Subcommands:
  login   Sign in with email and password
  logout  Sign out and forget the stored token
  status  Show who is signed in

Examples:
  crmdesk auth login --email sarah.johnson@richmansdream.com
  crmdesk auth status -o json
  crmdesk auth logout`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the CRM",
	Long: `Sign in with your email and password. Missing values are prompted
for when a terminal is attached.

Examples:
  crmdesk auth login --email sarah.johnson@richmansdream.com
  crmdesk auth login --email michael.chen@richmansdream.com --password password123`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		cc, err := NewCommandContext(cmd)
		if err != nil {
			return err
		}
		defer cc.Close()

		email, password, err = ux.PromptCredentials(email, password)
		if err != nil {
			return err
		}
		if email == "" || password == "" {
			return errors.NewInvalidCredentialsError()
		}

		mgr, _, err := cc.Session(cmd.Context())
		if err != nil {
			return err
		}

		result := mgr.Login(cmd.Context(), email, password)
		if !result.Success {
			if errors.CodeOf(result.Err) == errors.ErrCodeTransport {
				return result.Err
			}
			return errors.Wrap(errors.ErrCodeLoginRejected, result.Error, result.Err).
				WithSuggestion("Check the email and password and try again")
		}

		user := mgr.Snapshot().User
		cc.Printf("Signed in as %s (%s)\n", user.Name, user.Role)
		if cc.Output != "text" {
			return cc.Print(statusView(user))
		}
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cc, err := NewCommandContext(cmd)
		if err != nil {
			return err
		}
		defer cc.Close()

		mgr, _, err := cc.Session(cmd.Context())
		if err != nil {
			return err
		}
		user := mgr.Snapshot().User
		if user == nil {
			cc.Printf("Not signed in.\n")
			return nil
		}

		if err := mgr.Logout(cmd.Context()); err != nil {
			return err
		}
		cc.Printf("Signed out %s.\n", user.Email)
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show who is signed in",
	RunE: func(cmd *cobra.Command, args []string) error {
		cc, err := NewCommandContext(cmd)
		if err != nil {
			return err
		}
		defer cc.Close()

		mgr, _, err := cc.Session(cmd.Context())
		if err != nil {
			return err
		}
		user := mgr.Snapshot().User
		if user == nil {
			return notSignedInError()
		}
		return cc.Print(statusView(user))
	},
}

type authStatus struct {
	Authenticated bool        `json:"authenticated" yaml:"authenticated"`
	User          *model.User `json:"user" yaml:"user"`
}

func statusView(user *model.User) *ux.Details {
	return &ux.Details{
		Title: "Signed in",
		Fields: []ux.Field{
			{Label: "Name", Value: user.Name},
			{Label: "Email", Value: user.Email},
			{Label: "Role", Value: fmt.Sprint(user.Role)},
			{Label: "ID", Value: user.ID},
		},
		Item: authStatus{Authenticated: true, User: user},
	}
}

func init() {
	authLoginCmd.Flags().String("email", "", "account email")
	authLoginCmd.Flags().String("password", "", "account password (prompted when omitted)")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}
