package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/touchstone3d/semseg/internal/apiclient"
	"github.com/touchstone3d/semseg/internal/config"
	"github.com/touchstone3d/semseg/internal/evalstore"
	"github.com/touchstone3d/semseg/internal/evaluator"
)

func evaluateCmd() *cobra.Command {
	var (
		name       string
		numClasses int
		similarity string
		save       bool
		remote     bool
		compress   bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate PRED TRUTH",
		Short: "score predicted labels against ground truth and print IoU, OA and SIoU",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pred, err := readLabels(args[0])
			if err != nil {
				return err
			}
			truth, err := readLabels(args[1])
			if err != nil {
				return err
			}
			if numClasses <= 0 {
				numClasses = cfg.NumClasses
			}
			req := evaluator.EvaluationRequest{Dataset: name, NumClasses: numClasses, Pred: pred, Truth: truth}

			var res *evaluator.EvaluationResult
			if remote {
				c, err := apiclient.New(&cfg.ClientEnvConfig)
				if err != nil {
					return err
				}
				c.CompressRequests = compress
				if res, err = c.Evaluate(context.Background(), req); err != nil {
					return err
				}
			} else {
				if similarity == "" {
					similarity = cfg.SimilarityFile
				}
				sim, err := config.LoadSimilarityMatrix(similarity, numClasses)
				if err != nil {
					return err
				}
				opts := []evaluator.Option{evaluator.WithSimilarity(sim)}
				if save {
					if cfg.StorePath == "" {
						return fmt.Errorf("--save needs STORE_PATH")
					}
					store, err := evalstore.Open(cfg.StorePath)
					if err != nil {
						return err
					}
					defer store.Close()
					opts = append(opts, evaluator.WithStore(store))
				}

				ev, err := evaluator.New(numClasses, opts...)
				if err != nil {
					return err
				}
				defer ev.Stop()
				if res, err = ev.Evaluate(context.Background(), req); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			names := classNames()
			if err := res.Report.WriteTable(out, names); err != nil {
				return err
			}
			res.Report.LogSummary(names)
			fmt.Fprintf(out, "run: %s\n", res.RunID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "dataset", "", "dataset name recorded with the run")
	cmd.Flags().IntVar(&numClasses, "classes", 0, "number of classes (defaults to NUM_CLASSES)")
	cmd.Flags().StringVar(&similarity, "similarity", "", "similarity matrix JSON (defaults to SIMILARITY_FILE, else identity)")
	cmd.Flags().BoolVar(&save, "save", false, "record the run in the sqlite store at STORE_PATH")
	cmd.Flags().BoolVar(&remote, "remote", false, "evaluate on the server at API_URL")
	cmd.Flags().BoolVar(&compress, "zstd", false, "zstd-compress the request body (with --remote)")
	return cmd
}
