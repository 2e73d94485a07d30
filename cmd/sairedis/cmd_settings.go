package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newtron-network/sairedis/pkg/cli"
	"github.com/newtron-network/sairedis/pkg/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage persistent settings",
	Long: `Manage settings stored in ~/.sairedis/settings.yaml (or --config).

Any setting can be overridden from the environment: redis.addr is
SAIREDIS_REDIS_ADDR, audit.path is SAIREDIS_AUDIT_PATH.

Examples:
  sairedis settings show
  sairedis settings set backend sql
  sairedis settings set redis.ssh.host 10.0.0.12`,
}

// settingsFile is the file settings were loaded from and are saved to.
func settingsFile() string {
	if configPath != "" {
		return configPath
	}
	return settings.DefaultSettingsPath()
}

// sensitive settings are masked by show.
var sensitive = map[string]bool{
	"redis.password":     true,
	"redis.ssh.password": true,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Settings file: %s\n\n", settingsFile())

		t := cli.NewTableTo(out, "SETTING", "VALUE")
		for _, key := range cfg.Keys() {
			value := cfg.Get(key)
			switch {
			case value == "":
				value = cli.Dim("(not set)")
			case sensitive[key]:
				value = "********"
			}
			t.Row(key, value)
		}
		t.Flush()
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <setting> <value>",
	Short: "Set a setting value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfg.SaveTo(settingsFile()); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
		return nil
	},
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file path",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), settingsFile())
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd, settingsPathCmd)
}
