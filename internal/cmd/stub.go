package cmd

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/richmansdream/crmdesk/internal/stubapi"
)

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Local stand-in for the CRM API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var stubServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the CRM API from bundled sample data",
	Long: `Serve the CRM API on a local address, backed by the bundled sample
leads, emails and users. Every seeded user signs in with password123.

Requests and responses are checked against the API contract unless
stub.validate is false. The server drains connections and exits on
SIGINT or SIGTERM.

Endpoints besides the API:
  /health/live   liveness probe
  /health/ready  readiness probe

Examples:
  crmdesk stub serve
  crmdesk stub serve --addr 127.0.0.1:9000 --latency 300ms`,
	RunE: runStubServe,
}

func runStubServe(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cc.Close()

	cfg := cc.Config.Stub
	if cmd.Flags().Changed("addr") {
		cfg.Addr, _ = cmd.Flags().GetString("addr")
	}
	if cmd.Flags().Changed("latency") {
		cfg.Latency, _ = cmd.Flags().GetDuration("latency")
	}
	if cmd.Flags().Changed("no-validate") {
		noValidate, _ := cmd.Flags().GetBool("no-validate")
		cfg.Validate = !noValidate
	}

	logger := cc.Logger.With("component", "stubapi")
	backend, err := stubapi.New(cmd.Context(), stubapi.Options{
		Secret:   cfg.Secret,
		TokenTTL: cfg.TokenTTL,
		Latency:  cfg.Latency,
		Validate: cfg.Validate,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to start stub API: %w", err)
	}

	l, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
	}

	srv := stubapi.NewServer(backend, stubapi.ServerConfig{Address: cfg.Addr}, logger)

	cc.Printf("Stub CRM API listening on http://%s%s\n", l.Addr(), stubapi.BasePath)
	cc.Printf("Sign in with any seeded user and password123, e.g.\n")
	cc.Printf("  crmdesk auth login --api-url http://%s%s --email sarah.johnson@richmansdream.com\n\n", l.Addr(), stubapi.BasePath)
	cc.Printf("Press Ctrl+C to stop the server\n")

	return srv.Run(cmd.Context(), l)
}

func init() {
	stubServeCmd.Flags().String("addr", "", "listen address (default stub.addr, 127.0.0.1:8000)")
	stubServeCmd.Flags().Duration("latency", 0, "delay added before every response")
	stubServeCmd.Flags().Bool("no-validate", false, "skip API contract validation")

	stubCmd.AddCommand(stubServeCmd)
	rootCmd.AddCommand(stubCmd)
}
