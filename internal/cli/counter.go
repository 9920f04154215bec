package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/nasacl/pkg/acl"
	"github.com/mesh-intelligence/nasacl/pkg/types"
)

func newCounterCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "counter",
		Short: "Create, delete and show ACL counters",
	}
	cmd.AddCommand(newCounterCreateCmd(a), newCounterDeleteCmd(a), newCounterShowCmd(a))
	return cmd
}

func newCounterCreateCmd(a *app) *cobra.Command {
	var names []string
	cmd := &cobra.Command{
		Use:   "create <table-id>",
		Short: "Create a counter in a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tid, err := parseID("table", args[0])
			if err != nil {
				return err
			}
			var cts []types.CounterType
			for _, n := range splitList(names) {
				ct, err := types.ParseCounterType(n)
				if err != nil {
					return userError(err)
				}
				cts = append(cts, ct)
			}
			return a.run(cmd, func(s *session) error {
				id, err := s.mgr.CreateCounter(tid, cts, a.switchID)
				if err != nil {
					return err
				}
				return a.reportCreated(cmd, acl.EntityCounter, id)
			})
		},
	}
	cmd.Flags().StringSliceVar(&names, "type", nil, "BYTE and/or PACKET (default BYTE)")
	return cmd
}

func newCounterDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table-id> <counter-id>",
		Short: "Delete a counter no entry uses",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tid, cid, err := tableAndCounter(args)
			if err != nil {
				return err
			}
			return a.run(cmd, func(s *session) error {
				if err := s.mgr.DeleteCounter(tid, cid); err != nil {
					return err
				}
				return a.reportDone(cmd, fmt.Sprintf("Deleted Counter %d", cid))
			})
		},
	}
}

func newCounterShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [table-id [counter-id]]",
		Short: "Show ACL counters",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := optionalIDs(args, "table", "counter")
			if err != nil {
				return err
			}
			return a.run(cmd, func(s *session) error {
				if !a.flags.jsonMode {
					s.mgr.PrintCounter(ids[0], ids[1])
					return nil
				}
				counters, err := s.mgr.Counters(ids[0], ids[1])
				if err != nil {
					return err
				}
				return printJSON(cmd, counters)
			})
		},
	}
}

func tableAndCounter(args []string) (uint64, uint64, error) {
	tid, err := parseID("table", args[0])
	if err != nil {
		return 0, 0, err
	}
	cid, err := parseID("counter", args[1])
	if err != nil {
		return 0, 0, err
	}
	return tid, cid, nil
}

func newStatsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show and clear counter statistics",
	}

	show := &cobra.Command{
		Use:   "show [table-id [counter-id]]",
		Short: "Show matched bytes and packets",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := optionalIDs(args, "table", "counter")
			if err != nil {
				return err
			}
			return a.run(cmd, func(s *session) error {
				if !a.flags.jsonMode {
					s.mgr.PrintStats(ids[0], ids[1])
					return nil
				}
				stats, err := s.mgr.Stats(ids[0], ids[1])
				if err != nil {
					return err
				}
				return printJSON(cmd, stats)
			})
		},
	}

	clear := &cobra.Command{
		Use:   "clear <table-id> <counter-id>",
		Short: "Reset the statistics of a counter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tid, cid, err := tableAndCounter(args)
			if err != nil {
				return err
			}
			return a.run(cmd, func(s *session) error {
				if err := s.mgr.ClearStats(tid, cid); err != nil {
					return err
				}
				return a.reportDone(cmd, fmt.Sprintf("Cleared Counter Stats %d", cid))
			})
		},
	}

	cmd.AddCommand(show, clear)
	return cmd
}
