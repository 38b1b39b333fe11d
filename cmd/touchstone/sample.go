package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/touchstone3d/semseg/internal/dataset"
)

func sampleCmd() *cobra.Command {
	var (
		dir    string
		mode   string
		points int
		epoch  uint64
	)

	cmd := &cobra.Command{
		Use:   "sample INDEX",
		Short: "build one sample from DATA_PATH and print its shape and label histogram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q", args[0])
			}

			dsCfg := cfg.DatasetEnvConfig
			if dir != "" {
				dsCfg.DataPath = dir
			}
			if mode != "" {
				dsCfg.Mode = mode
			}
			if points > 0 {
				dsCfg.NumPoints = points
			}

			ds, err := dataset.NewFromEnv(&dsCfg)
			if err != nil {
				return err
			}
			ds.SetEpoch(epoch)

			s, err := ds.Get(context.Background(), index)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "file:       %s\n", ds.Files()[index])
			fmt.Fprintf(out, "points:     %v\n", s.Points.Shape())
			fmt.Fprintf(out, "labels:     %v\n", s.Labels.Shape())
			if s.MinCorner != nil {
				fmt.Fprintf(out, "min corner: %v\n", s.MinCorner)
			}

			var names []string
			if cm := ds.ClassMap(); cm != nil {
				names = cm.Classes
			}
			counts := lo.CountValues(s.LabelSlice())
			labels := lo.Keys(counts)
			sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
			fmt.Fprintln(out, "label histogram:")
			for _, l := range labels {
				name := strconv.Itoa(int(l))
				if int(l) < len(names) {
					name = names[l]
				}
				fmt.Fprintf(out, "  %-16s %d\n", name, counts[l])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "data", "", "dataset directory (defaults to DATA_PATH)")
	cmd.Flags().StringVar(&mode, "mode", "", "train or eval (defaults to MODE)")
	cmd.Flags().IntVar(&points, "points", 0, "points per sample (defaults to NUM_POINTS)")
	cmd.Flags().Uint64Var(&epoch, "epoch", 0, "epoch used to derive the sampling seed")
	return cmd
}
