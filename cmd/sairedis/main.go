// sairedis drives SAI object lifecycles against ASIC_DB, a SQL store or an
// in-memory backend.
//
// Usage:
//
//	sairedis create next-hop SAI_NEXT_HOP_ATTR_TYPE=SAI_NEXT_HOP_TYPE_IP ...
//	sairedis get next-hop oid:0x1 SAI_NEXT_HOP_ATTR_IP
//	sairedis serve --listen :8080
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newtron-network/sairedis/pkg/settings"
	"github.com/newtron-network/sairedis/pkg/util"
	"github.com/newtron-network/sairedis/pkg/version"
)

var (
	configPath  string
	backendName string
	verbose     bool
	jsonLogs    bool

	cfg *settings.Settings
)

var rootCmd = &cobra.Command{
	Use:   "sairedis",
	Short: "SAI object lifecycle dispatcher",
	Long: `sairedis creates, removes, sets and reads SAI objects through a single
serialized dispatcher. Every object gets a unique id, every request is checked
against attribute metadata, and the backend (ASIC_DB over Redis, a SQL store,
or memory) only ever sees valid, ordered operations.

Settings are read from ~/.sairedis/settings.yaml and SAIREDIS_* environment
variables; see 'sairedis settings show'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = settings.DefaultSettingsPath()
		}
		s, err := settings.LoadFrom(path)
		if err != nil {
			return err
		}
		if backendName != "" {
			s.Backend = backendName
		}
		cfg = s

		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		if err := util.SetLogLevel(level); err != nil {
			return fmt.Errorf("log level: %w", err)
		}
		if jsonLogs || cfg.Log.JSON {
			util.SetJSONFormat()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Settings file (default ~/.sairedis/settings.yaml)")
	rootCmd.PersistentFlags().StringVarP(&backendName, "backend", "b", "", "Backend: redis, sql or memory (overrides settings)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Log in JSON format")

	rootCmd.AddGroup(
		&cobra.Group{ID: "object", Title: "Object Operations:"},
		&cobra.Group{ID: "meta", Title: "Metadata, Service & Settings:"},
	)

	for _, cmd := range []*cobra.Command{createCmd, removeCmd, setCmd, getCmd, listCmd} {
		cmd.GroupID = "object"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{typesCmd, attrsCmd, serveCmd, settingsCmd, auditCmd, versionCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if version.IsDev() {
			fmt.Fprintln(cmd.OutOrStdout(), "sairedis dev build (version ldflags not set)")
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sairedis %s\n", version.Info())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
