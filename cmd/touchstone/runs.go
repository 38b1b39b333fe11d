package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/touchstone3d/semseg/internal/apiclient"
	"github.com/touchstone3d/semseg/internal/evalstore"
	"github.com/touchstone3d/semseg/internal/evaluator"
)

// runSource lists and fetches runs from the local store when STORE_PATH is
// set, otherwise from the server.
type runSource interface {
	list(ctx context.Context, limit int) ([]*evaluator.EvaluationResult, error)
	get(ctx context.Context, id string) (*evaluator.EvaluationResult, error)
	close()
}

type storeSource struct {
	ev    *evaluator.Evaluator
	store *evalstore.Store
}

func (s storeSource) list(ctx context.Context, limit int) ([]*evaluator.EvaluationResult, error) {
	return s.ev.Runs(ctx, limit)
}

func (s storeSource) get(ctx context.Context, id string) (*evaluator.EvaluationResult, error) {
	return s.ev.Run(ctx, id)
}

func (s storeSource) close() {
	s.ev.Stop()
	s.store.Close()
}

type remoteSource struct{ c *apiclient.Client }

func (r remoteSource) list(ctx context.Context, limit int) ([]*evaluator.EvaluationResult, error) {
	return r.c.ListRuns(ctx, limit)
}

func (r remoteSource) get(ctx context.Context, id string) (*evaluator.EvaluationResult, error) {
	return r.c.GetRun(ctx, id)
}

func (remoteSource) close() {}

func openRunSource() (runSource, error) {
	if cfg.StorePath == "" {
		c, err := apiclient.New(&cfg.ClientEnvConfig)
		if err != nil {
			return nil, err
		}
		return remoteSource{c}, nil
	}

	store, err := evalstore.Open(cfg.StorePath)
	if err != nil {
		return nil, err
	}
	ev, err := evaluator.New(cfg.NumClasses, evaluator.WithStore(store))
	if err != nil {
		store.Close()
		return nil, err
	}
	return storeSource{ev: ev, store: store}, nil
}

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "inspect recorded evaluation runs",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "list recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := openRunSource()
			if err != nil {
				return err
			}
			defer src.close()

			runs, err := src.list(context.Background(), limit)
			if err != nil {
				return err
			}
			writeRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "maximum number of runs")

	show := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "print the full report of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := openRunSource()
			if err != nil {
				return err
			}
			defer src.close()

			run, err := src.get(context.Background(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s  dataset=%q  created=%s\n", run.RunID, run.Dataset,
				time.Unix(0, run.CreatedAt).UTC().Format(time.RFC3339))
			return run.Report.WriteTable(out, classNames())
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func writeRuns(w io.Writer, runs []*evaluator.EvaluationResult) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return
	}
	fmt.Fprintf(w, "%-36s  %-20s  %-9s  %-9s  %-9s  %s\n", "RUN", "CREATED", "OA", "mIoU", "mSIoU", "DATASET")
	lines := lo.Map(runs, func(r *evaluator.EvaluationResult, _ int) string {
		created := time.Unix(0, r.CreatedAt).UTC().Format("2006-01-02 15:04:05")
		if r.Report == nil {
			return fmt.Sprintf("%-36s  %-20s  %s\n", r.RunID, created, "(no report)")
		}
		return fmt.Sprintf("%-36s  %-20s  %.6f  %.6f  %.6f  %s\n",
			r.RunID, created, r.Report.OverallAccuracy, r.Report.MeanIoU, r.Report.MeanSIoU, r.Dataset)
	})
	for _, l := range lines {
		io.WriteString(w, l)
	}
}
