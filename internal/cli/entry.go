package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/nasacl/pkg/acl"
	"github.com/mesh-intelligence/nasacl/pkg/types"
)

func newEntryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry",
		Short: "Create, modify, delete and show ACL entries",
	}
	cmd.AddCommand(
		newEntryCreateCmd(a),
		newEntryDeleteCmd(a),
		newEntryShowCmd(a),
		newEntryFilterCmd(a),
		newEntryActionCmd(a),
	)
	return cmd
}

func newEntryCreateCmd(a *app) *cobra.Command {
	var (
		priority uint32
		filters  []string
		actions  []string
	)
	cmd := &cobra.Command{
		Use:   "create <table-id>",
		Short: "Create an ACL entry",
		Example: "  nasacl entry create 1 --priority 100 --filter SRC_IP=10.0.0.0/8 \\\n" +
			"      --filter IN_PORT=e101-001-0 --action PACKET_ACTION=DROP --action SET_COUNTER=1",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tid, err := parseID("table", args[0])
			if err != nil {
				return err
			}
			return a.run(cmd, func(s *session) error {
				fm, err := parseFilters(s.parser, filters)
				if err != nil {
					return err
				}
				am, err := parseActions(s.parser, actions)
				if err != nil {
					return err
				}
				id, err := s.mgr.CreateEntry(tid, priority, fm, am, a.switchID)
				if err != nil {
					return err
				}
				return a.reportCreated(cmd, acl.EntityEntry, id)
			})
		},
	}
	cmd.Flags().Uint32Var(&priority, "priority", 0, "entry priority")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "match filter TYPE=VALUE (repeatable)")
	cmd.Flags().StringArrayVar(&actions, "action", nil, "action TYPE=VALUE or TYPE (repeatable)")
	return cmd
}

func newEntryDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table-id> <entry-id>",
		Short: "Delete an ACL entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tid, eid, err := tableAndEntry(args)
			if err != nil {
				return err
			}
			return a.run(cmd, func(s *session) error {
				if err := s.mgr.DeleteEntry(tid, eid); err != nil {
					return err
				}
				return a.reportDone(cmd, fmt.Sprintf("Deleted Entry %d", eid))
			})
		},
	}
}

func newEntryShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [table-id [entry-id]]",
		Short: "Show ACL entries",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := optionalIDs(args, "table", "entry")
			if err != nil {
				return err
			}
			return a.run(cmd, func(s *session) error {
				if !a.flags.jsonMode {
					s.mgr.PrintEntry(ids[0], ids[1])
					return nil
				}
				entries, err := s.mgr.Entries(ids[0], ids[1])
				if err != nil {
					return err
				}
				return printJSON(cmd, entries)
			})
		},
	}
}

func tableAndEntry(args []string) (uint64, uint64, error) {
	tid, err := parseID("table", args[0])
	if err != nil {
		return 0, 0, err
	}
	eid, err := parseID("entry", args[1])
	if err != nil {
		return 0, 0, err
	}
	return tid, eid, nil
}

func newEntryFilterCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Change the match filters of an entry",
	}

	single := func(use, short string, op func(s *session, tid, eid uint64, f types.Filter) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <table-id> <entry-id> TYPE=VALUE",
			Short: short,
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				tid, eid, err := tableAndEntry(args)
				if err != nil {
					return err
				}
				return a.run(cmd, func(s *session) error {
					f, err := s.parser.ParseFilterPair(args[2])
					if err != nil {
						return userError(err)
					}
					if err := op(s, tid, eid, f); err != nil {
						return err
					}
					return a.reportDone(cmd, fmt.Sprintf("Entry %d filter %s: %s", eid, f.Type, use))
				})
			},
		}
	}

	remove := &cobra.Command{
		Use:   "remove <table-id> <entry-id> TYPE",
		Short: "Remove one filter from an entry",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			tid, eid, err := tableAndEntry(args)
			if err != nil {
				return err
			}
			ft, err := types.ParseFilterType(args[2])
			if err != nil {
				return userError(err)
			}
			return a.run(cmd, func(s *session) error {
				if err := s.mgr.RemoveEntryFilter(tid, eid, ft); err != nil {
					return err
				}
				return a.reportDone(cmd, fmt.Sprintf("Entry %d filter %s: remove", eid, ft))
			})
		},
	}

	var pairs []string
	replace := &cobra.Command{
		Use:   "replace <table-id> <entry-id>",
		Short: "Replace the whole filter list of an entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tid, eid, err := tableAndEntry(args)
			if err != nil {
				return err
			}
			return a.run(cmd, func(s *session) error {
				fm, err := parseFilters(s.parser, pairs)
				if err != nil {
					return err
				}
				if err := s.mgr.ReplaceEntryFilterList(tid, eid, fm); err != nil {
					return err
				}
				return a.reportDone(cmd, fmt.Sprintf("Entry %d filter-list: replace", eid))
			})
		},
	}
	replace.Flags().StringArrayVar(&pairs, "filter", nil, "match filter TYPE=VALUE (repeatable)")

	cmd.AddCommand(
		single("append", "Add a filter to an entry", func(s *session, tid, eid uint64, f types.Filter) error {
			return s.mgr.AppendEntryFilter(tid, eid, f.Type, f.Value)
		}),
		single("mod", "Change the value of an entry filter", func(s *session, tid, eid uint64, f types.Filter) error {
			return s.mgr.ModEntryFilter(tid, eid, f.Type, f.Value)
		}),
		remove,
		replace,
	)
	return cmd
}

func newEntryActionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "action",
		Short: "Change the actions of an entry",
	}

	single := func(use, short string, op func(s *session, tid, eid uint64, act types.Action) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <table-id> <entry-id> TYPE[=VALUE]",
			Short: short,
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				tid, eid, err := tableAndEntry(args)
				if err != nil {
					return err
				}
				return a.run(cmd, func(s *session) error {
					act, err := s.parser.ParseActionPair(args[2])
					if err != nil {
						return userError(err)
					}
					if err := op(s, tid, eid, act); err != nil {
						return err
					}
					return a.reportDone(cmd, fmt.Sprintf("Entry %d action %s: %s", eid, act.Type, use))
				})
			},
		}
	}

	remove := &cobra.Command{
		Use:   "remove <table-id> <entry-id> TYPE",
		Short: "Remove one action from an entry",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			tid, eid, err := tableAndEntry(args)
			if err != nil {
				return err
			}
			at, err := types.ParseActionType(args[2])
			if err != nil {
				return userError(err)
			}
			return a.run(cmd, func(s *session) error {
				if err := s.mgr.RemoveEntryAction(tid, eid, at); err != nil {
					return err
				}
				return a.reportDone(cmd, fmt.Sprintf("Entry %d action %s: remove", eid, at))
			})
		},
	}

	var pairs []string
	replace := &cobra.Command{
		Use:   "replace <table-id> <entry-id>",
		Short: "Replace the whole action list of an entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tid, eid, err := tableAndEntry(args)
			if err != nil {
				return err
			}
			return a.run(cmd, func(s *session) error {
				am, err := parseActions(s.parser, pairs)
				if err != nil {
					return err
				}
				if err := s.mgr.ReplaceEntryActionList(tid, eid, am); err != nil {
					return err
				}
				return a.reportDone(cmd, fmt.Sprintf("Entry %d action-list: replace", eid))
			})
		},
	}
	replace.Flags().StringArrayVar(&pairs, "action", nil, "action TYPE=VALUE or TYPE (repeatable)")

	cmd.AddCommand(
		single("append", "Add an action to an entry", func(s *session, tid, eid uint64, act types.Action) error {
			return s.mgr.AppendEntryAction(tid, eid, act.Type, act.Value)
		}),
		single("mod", "Change the value of an entry action", func(s *session, tid, eid uint64, act types.Action) error {
			return s.mgr.ModEntryAction(tid, eid, act.Type, act.Value)
		}),
		remove,
		replace,
	)
	return cmd
}
