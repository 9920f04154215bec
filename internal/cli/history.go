package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List committed transactions, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(s *session) error {
				txns, err := s.store.Transactions()
				if err != nil {
					return err
				}
				if limit > 0 && len(txns) > limit {
					txns = txns[len(txns)-limit:]
				}
				if a.flags.jsonMode {
					return printJSON(cmd, txns)
				}
				for _, t := range txns {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n",
						t.ID, t.CommittedAt.Format(time.RFC3339), strings.Join(t.Operations, "; "))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show only the last n transactions")
	return cmd
}
