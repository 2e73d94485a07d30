package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newtron-network/sairedis/pkg/api"
	"github.com/newtron-network/sairedis/pkg/cli"
	"github.com/newtron-network/sairedis/pkg/meta"
	"github.com/newtron-network/sairedis/pkg/sai"
	"github.com/newtron-network/sairedis/pkg/util"
)

// withObject opens a session and resolves the object type in typeArg.
func withObject(typeArg string, fn func(sess *session, obj *api.ObjectAPI) error) error {
	t, err := sai.ParseObjectType(typeArg)
	if err != nil {
		return err
	}
	sess, err := openSession(cfg, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			util.Warnf("closing session: %v", err)
		}
	}()

	obj, err := sess.table.Object(t)
	if err != nil {
		return err
	}
	return fn(sess, obj)
}

// parseAssignments turns NAME=value arguments into attributes of type t.
func parseAssignments(schema meta.Schema, t sai.ObjectType, args []string) ([]sai.Attribute, error) {
	attrs := make([]sai.Attribute, 0, len(args))
	for _, arg := range args {
		name, value, err := util.ParseAssignment(arg)
		if err != nil {
			return nil, err
		}
		a, err := meta.ParseAttribute(schema, t, sai.AttrID(name), value)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, a)
	}
	return attrs, nil
}

var createCmd = &cobra.Command{
	Use:   "create <type> [ATTR=value ...]",
	Short: "Create an object",
	Long: `Create an object of the given type and print its id.

Examples:
  sairedis create router-interface \
      SAI_ROUTER_INTERFACE_ATTR_VIRTUAL_ROUTER_ID=oid:0x1 \
      SAI_ROUTER_INTERFACE_ATTR_TYPE=SAI_ROUTER_INTERFACE_TYPE_PORT \
      SAI_ROUTER_INTERFACE_ATTR_PORT_ID=oid:0x2
  sairedis create next-hop-group SAI_NEXT_HOP_GROUP_ATTR_TYPE=SAI_NEXT_HOP_GROUP_TYPE_DYNAMIC_UNORDERED_ECMP`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withObject(args[0], func(sess *session, obj *api.ObjectAPI) error {
			attrs, err := parseAssignments(sess.schema, obj.Type, args[1:])
			if err != nil {
				return err
			}
			id, err := obj.Create(attrs)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		})
	},
}

var removeCmd = &cobra.Command{
	Use:     "remove <type> <oid>",
	Aliases: []string{"rm"},
	Short:   "Remove an object",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withObject(args[0], func(sess *session, obj *api.ObjectAPI) error {
			id, err := sai.ParseObjectID(args[1])
			if err != nil {
				return err
			}
			if err := obj.Remove(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", cli.Green("removed"), id)
			return nil
		})
	},
}

var setCmd = &cobra.Command{
	Use:   "set <type> <oid> <ATTR=value>",
	Short: "Set one attribute of an object",
	Long: `Set one create-and-set attribute of a live object.

Examples:
  sairedis set next-hop-group-member oid:0x7 SAI_NEXT_HOP_GROUP_MEMBER_ATTR_WEIGHT=4`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withObject(args[0], func(sess *session, obj *api.ObjectAPI) error {
			id, err := sai.ParseObjectID(args[1])
			if err != nil {
				return err
			}
			attrs, err := parseAssignments(sess.schema, obj.Type, args[2:])
			if err != nil {
				return err
			}
			if err := obj.Set(id, attrs[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", cli.Green("set"), id, attrs[0].ID)
			return nil
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get <type> <oid> <ATTR> [ATTR ...]",
	Short: "Read attributes of an object",
	Long: `Read attributes of a live object, printed in the order requested.

Examples:
  sairedis get next-hop oid:0x5 SAI_NEXT_HOP_ATTR_IP SAI_NEXT_HOP_ATTR_ROUTER_INTERFACE_ID`,
	Args: cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withObject(args[0], func(sess *session, obj *api.ObjectAPI) error {
			id, err := sai.ParseObjectID(args[1])
			if err != nil {
				return err
			}
			ids := make([]sai.AttrID, 0, len(args)-2)
			for _, name := range args[2:] {
				ids = append(ids, sai.AttrID(name))
			}
			attrs := sai.Request(ids...)
			if err := obj.Get(id, attrs); err != nil {
				return err
			}

			t := cli.NewTableTo(cmd.OutOrStdout(), "ATTRIBUTE", "VALUE")
			for _, a := range attrs {
				t.Row(string(a.ID), meta.FormatAttribute(sess.schema, obj.Type, a))
			}
			t.Flush()
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list [type]",
	Short: "List live objects",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t := sai.ObjectTypeNull
		if len(args) == 1 {
			var err error
			if t, err = sai.ParseObjectType(args[0]); err != nil {
				return err
			}
		}
		sess, err := openSession(cfg, nil)
		if err != nil {
			return err
		}
		defer sess.Close()

		out := cmd.OutOrStdout()
		tbl := cli.NewTableTo(out, "TYPE", "OID")
		for _, k := range sess.table.Dispatcher().Objects(t) {
			tbl.Row(k.Type.ShortName(), k.ID.String())
		}
		if tbl.Empty() {
			fmt.Fprintln(out, "No objects.")
			return nil
		}
		tbl.Flush()
		return nil
	},
}
