package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/sairedis/pkg/audit"
	"github.com/newtron-network/sairedis/pkg/cli"
	"github.com/newtron-network/sairedis/pkg/sai"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "View the audit trail",
	Long: `View the audit trail of creates, removes and sets.

Auditing is enabled by setting audit.path. Each event records the backend,
operation, object, attributes, resulting status and duration.

Examples:
  sairedis audit list --last 1h
  sairedis audit list --type next-hop --failures`,
}

var (
	auditType     string
	auditOp       string
	auditLast     string
	auditLimit    int
	auditFailures bool
	auditJSON     bool
)

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Audit.Path == "" {
			return errors.New("auditing is disabled: set audit.path")
		}

		filter := audit.Filter{
			Operation:   auditOp,
			Limit:       auditLimit,
			FailureOnly: auditFailures,
		}
		if auditType != "" {
			t, err := sai.ParseObjectType(auditType)
			if err != nil {
				return err
			}
			filter.ObjectType = t.String()
		}
		if auditLast != "" {
			d, err := time.ParseDuration(auditLast)
			if err != nil {
				return fmt.Errorf("invalid duration: %s", auditLast)
			}
			filter.StartTime = time.Now().Add(-d)
		}

		logger, err := audit.NewFileLogger(cfg.Audit.Path, audit.RotationConfig{})
		if err != nil {
			return err
		}
		defer logger.Close()

		events, err := logger.Query(filter)
		if err != nil {
			return fmt.Errorf("querying audit log: %w", err)
		}

		out := cmd.OutOrStdout()
		if auditJSON {
			return json.NewEncoder(out).Encode(events)
		}
		if len(events) == 0 {
			fmt.Fprintln(out, "No audit events found")
			return nil
		}

		t := cli.NewTableTo(out, "TIMESTAMP", "OPERATION", "TYPE", "OID", "STATUS", "DURATION")
		for _, e := range events {
			oid := e.ObjectID
			if oid == "" {
				oid = "-"
			}
			t.Row(
				e.Timestamp.Format("2006-01-02 15:04:05"),
				e.Operation,
				e.ObjectType,
				oid,
				cli.Result(e.Success, e.Status),
				e.Duration.String(),
			)
		}
		t.Flush()
		return nil
	},
}

func init() {
	auditListCmd.Flags().StringVar(&auditType, "type", "", "Filter by object type")
	auditListCmd.Flags().StringVar(&auditOp, "op", "", "Filter by operation (create, remove, set)")
	auditListCmd.Flags().StringVar(&auditLast, "last", "", "Show events from last duration (e.g., 30m, 24h)")
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 100, "Maximum events to show")
	auditListCmd.Flags().BoolVar(&auditFailures, "failures", false, "Show only failed operations")
	auditListCmd.Flags().BoolVar(&auditJSON, "json", false, "Print events as JSON")

	auditCmd.AddCommand(auditListCmd)
}
