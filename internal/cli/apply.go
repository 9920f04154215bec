package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/nasacl/internal/manifest"
)

func newApplyCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "apply -f <manifest.yaml>",
		Short: "Create the tables, counters and entries of a YAML manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return userError(fmt.Errorf("open manifest: %w", err))
				}
				defer f.Close()
				r = f
			}
			return a.run(cmd, func(s *session) error {
				doc, err := manifest.LoadWith(r, s.parser)
				if err != nil {
					return err
				}
				res, applyErr := manifest.Apply(s.mgr, doc)
				if a.flags.jsonMode {
					if err := printJSON(cmd, res); err != nil {
						return err
					}
				} else if res != nil {
					for _, t := range res.Tables {
						fmt.Fprintf(cmd.OutOrStdout(), "table %q: id %d, counters %v, entries %v\n",
							t.Name, t.TableID, t.Counters, t.Entries)
					}
				}
				return applyErr
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "manifest file, or - for stdin")
	cmd.MarkFlagRequired("file")
	return cmd
}
