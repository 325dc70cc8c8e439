package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/gtfstables/internal/pipeline"
	"github.com/mesh-intelligence/gtfstables/internal/sink"
)

func newDeriveCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive the tables without writing to the configured sink",
		Long:  "Load the feed and derive line_stops and stop_details. With --out, write both as JSONL files.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			p := pipeline.New(a.cfg, a.fetcher(cmd), nil, a.logger)
			tables, rep, err := p.Derive(cmd.Context(), pipeline.Options{})
			if err != nil {
				return err
			}

			if out != "" {
				s, err := sink.OpenJSONL(out, a.logger)
				if err != nil {
					return err
				}
				defer s.Close()
				if err := p.Write(cmd.Context(), s, tables); err != nil {
					return err
				}
				rep.Written = true
			}

			return printReport(cmd, rep)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "directory to write <table>.jsonl files into")
	return cmd
}

// printReport writes a run summary as text or JSON.
func printReport(cmd *cobra.Command, rep *pipeline.Report) error {
	if flags.jsonMode {
		return printJSON(cmd, rep)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "line_stops: %d rows\nstop_details: %d rows\ncache hit: %t\nwritten: %t\n",
		rep.LineStops, rep.StopDetails, rep.CacheHit, rep.Written)
	return nil
}
