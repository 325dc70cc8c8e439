package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/gtfstables/internal/acquire"
)

func newFetchCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download and extract the feed files",
		Long:  "Download the feed archive when the feed files are missing or stale, then show their status.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			f := a.fetcher(cmd)

			if force {
				err = f.Fetch(cmd.Context())
			} else {
				_, _, err = f.EnsureAvailable(cmd.Context())
			}
			if err != nil {
				return err
			}

			files, err := acquire.Status(a.cfg.Feed.Dir)
			if err != nil {
				return err
			}
			if flags.jsonMode {
				return printJSON(cmd, files)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FILE\tSIZE\tMODIFIED")
			for _, st := range files {
				fmt.Fprintf(w, "%s\t%d\t%s\n", st.Name, st.Size, st.ModTime.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "download even when the files are present and fresh")
	return cmd
}
