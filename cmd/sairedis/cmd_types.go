package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newtron-network/sairedis/pkg/cli"
	"github.com/newtron-network/sairedis/pkg/meta"
	"github.com/newtron-network/sairedis/pkg/sai"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List object types known to the metadata",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sch, err := loadSchema(cfg)
		if err != nil {
			return err
		}
		t := cli.NewTableTo(cmd.OutOrStdout(), "TYPE", "NAME", "ATTRIBUTES")
		for _, ot := range sch.Types() {
			objSchema, _ := sch.SchemaFor(ot)
			t.Row(ot.ShortName(), ot.String(), fmt.Sprint(len(objSchema.Attrs())))
		}
		t.Flush()
		return nil
	},
}

var attrsCmd = &cobra.Command{
	Use:   "attrs <type>",
	Short: "Describe the attributes of an object type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ot, err := sai.ParseObjectType(args[0])
		if err != nil {
			return err
		}
		sch, err := loadSchema(cfg)
		if err != nil {
			return err
		}
		objSchema, ok := sch.SchemaFor(ot)
		if !ok {
			return fmt.Errorf("%s: %w", ot, sai.ErrInvalidObjectType)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, cli.Bold(ot.String()))
		t := cli.NewTableTo(out, "ATTRIBUTE", "KIND", "ACCESS", "FLAGS", "VALUES").WithPrefix("  ")
		for _, md := range objSchema.Attrs() {
			t.Row(string(md.ID), md.Kind.String(), string(md.Access), attrFlags(md), strings.Join(md.Enum, ","))
		}
		t.Flush()
		return nil
	},
}

func attrFlags(md *meta.AttrMetadata) string {
	mandatory := ""
	if md.Mandatory {
		mandatory = "mandatory"
	}
	return cli.Flags(mandatory)
}
