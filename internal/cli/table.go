package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/nasacl/pkg/acl"
	"github.com/mesh-intelligence/nasacl/pkg/types"
)

func newTableCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Create, delete and show ACL tables",
	}
	cmd.AddCommand(newTableCreateCmd(a), newTableDeleteCmd(a), newTableShowCmd(a))
	return cmd
}

func newTableCreateCmd(a *app) *cobra.Command {
	var (
		stage    string
		priority uint32
		allow    []string
	)
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create an ACL table",
		Example: "  nasacl table create --stage ingress --priority 10 --allow SRC_IP,DST_IP --allow L4_DST_PORT",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := types.ParseStage(stage)
			if err != nil {
				return userError(err)
			}
			var allowed []types.FilterType
			for _, name := range splitList(allow) {
				ft, err := types.ParseFilterType(name)
				if err != nil {
					return userError(err)
				}
				allowed = append(allowed, ft)
			}
			return a.run(cmd, func(s *session) error {
				id, err := s.mgr.CreateTable(st, priority, allowed, a.switchID)
				if err != nil {
					return err
				}
				return a.reportCreated(cmd, acl.EntityTable, id)
			})
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "INGRESS or EGRESS")
	cmd.Flags().Uint32Var(&priority, "priority", 0, "table priority")
	cmd.Flags().StringSliceVar(&allow, "allow", nil, "filter types entries may match on (repeatable)")
	cmd.MarkFlagRequired("stage")
	return cmd
}

func newTableDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table-id>",
		Short: "Delete an empty ACL table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tid, err := parseID("table", args[0])
			if err != nil {
				return err
			}
			return a.run(cmd, func(s *session) error {
				if err := s.mgr.DeleteTable(tid); err != nil {
					return err
				}
				return a.reportDone(cmd, fmt.Sprintf("Deleted Table %d", tid))
			})
		},
	}
}

func newTableShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [table-id]",
		Short: "Show one ACL table or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := optionalIDs(args, "table")
			if err != nil {
				return err
			}
			return a.run(cmd, func(s *session) error {
				if !a.flags.jsonMode {
					s.mgr.PrintTable(ids[0])
					return nil
				}
				tables, err := s.mgr.Tables(ids[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, tables)
			})
		},
	}
}
