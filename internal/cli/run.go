package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/gtfstables/internal/pipeline"
	"github.com/mesh-intelligence/gtfstables/internal/sink"
)

func newRunCmd() *cobra.Command {
	var (
		noCache bool
		watch   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Derive the tables and write them to the configured sink",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			s, err := sink.Open(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer s.Close()

			p := pipeline.New(a.cfg, a.fetcher(cmd), s, a.logger)
			opts := pipeline.Options{NoCache: noCache}

			if watch > 0 {
				return p.Watch(ctx, watch, opts, func(rep *pipeline.Report) {
					if err := printReport(cmd, rep); err != nil {
						a.logger.Warn("print report", "error", err)
					}
				})
			}

			rep, err := p.Run(ctx, opts)
			if err != nil {
				return err
			}
			return printReport(cmd, rep)
		},
	}
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "discard cached results before deriving")
	cmd.Flags().DurationVar(&watch, "watch", 0, "rerun on this interval until interrupted")
	return cmd
}
