package cmd

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/richmansdream/crmdesk/internal/config"
	"github.com/richmansdream/crmdesk/internal/errors"
	"github.com/richmansdream/crmdesk/internal/ux"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or edit crmdesk configuration",
	Long: `Manage configuration stored at ~/.crmdesk/config.yaml

Settings are merged in this order, later sources winning:
  built-in defaults, the config file, .env, CRMDESK_* environment
  variables, then command-line flags.

Examples:
  # Show the effective configuration
  crmdesk config show

  # Read one value
  crmdesk config get api.base_url

  # Write a config file with the defaults
  crmdesk config init

  # Edit the config file in $EDITOR
  crmdesk config edit
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var configShowCmd = &cobra.Command{
	Use:     "show",
	Aliases: []string{"view"},
	Short:   "Display the effective configuration",
	RunE:    runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get one configuration value",
	Long:  `Retrieve one value of the effective configuration using dot notation (e.g. session.store).`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the defaults",
	RunE:  runConfigInit,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration in $EDITOR",
	RunE:  runConfigEdit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	RunE:  runConfigPath,
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configPathCmd)

	rootCmd.AddCommand(configCmd)
}

const redacted = "********"

// redact hides credentials before configuration is printed
func redact(cfg config.Config) config.Config {
	if cfg.Redis.Password != "" {
		cfg.Redis.Password = redacted
	}
	if cfg.Stub.Secret != "" {
		cfg.Stub.Secret = redacted
	}
	return cfg
}

// configDocument renders configuration as YAML in text mode
type configDocument struct {
	path string
	cfg  config.Config
}

func (d *configDocument) Data() any {
	return d.cfg
}

func (d *configDocument) RenderText(w io.Writer, _ bool) error {
	data, err := yaml.Marshal(d.cfg)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "# %s\n", d.path); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func configPath(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		return p
	}
	return config.DefaultPath()
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cc.Close()

	return cc.Print(&configDocument{path: configPath(cmd), cfg: redact(*cc.Config)})
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cc.Close()

	value, err := lookupKey(redact(*cc.Config), args[0])
	if err != nil {
		return err
	}
	return cc.Print(value)
}

// lookupKey resolves a dotted key against the YAML form of cfg
func lookupKey(cfg config.Config, key string) (string, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	var node any
	if err := yaml.Unmarshal(data, &node); err != nil {
		return "", err
	}

	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return "", unknownKeyError(key)
		}
		if node, ok = m[part]; !ok {
			return "", unknownKeyError(key)
		}
	}
	if _, ok := node.(map[string]any); ok {
		out, err := yaml.Marshal(node)
		return strings.TrimRight(string(out), "\n"), err
	}
	return fmt.Sprint(node), nil
}

func unknownKeyError(key string) error {
	return errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("unknown configuration key %q", key)).
		WithSuggestion("List the keys: crmdesk config show")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	path := configPath(cmd)

	if _, err := os.Stat(path); err == nil && !force {
		if !ux.Confirm(fmt.Sprintf("%s already exists. Overwrite it?", path), false) {
			return fmt.Errorf("%s already exists; pass --force to overwrite", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config.Default())
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
	return nil
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := runConfigInit(cmd, nil); err != nil {
			return err
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	editorCmd := exec.CommandContext(cmd.Context(), editor, path)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("failed to run editor: %w", err)
	}

	if _, err := config.Load(config.LoadOptions{Path: path}); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Warning: the configuration does not load; please fix it.")
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration updated successfully")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	fmt.Fprintln(cmd.OutOrStdout(), configPath(cmd))
	return nil
}
