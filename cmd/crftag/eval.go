package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/unixpickle/crftag/dataset"
	"github.com/unixpickle/crftag/train"
)

func (a *app) evalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "eval",
		Short: "score a saved tagger on the test data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.TestData == "" {
				return errors.New("eval: no test data")
			}
			tagger, padder, err := train.LoadModel(a.cfg, creator, a.log)
			if err != nil {
				return err
			}
			defer tagger.Encoder.Close()

			examples, err := dataset.Read(a.cfg.Format, a.cfg.TestData, a.cfg.TestLabel)
			if err != nil {
				return err
			}
			t := &train.Trainer{Tagger: tagger, Padder: padder, Config: a.cfg, Log: a.log}
			eval, err := t.Evaluate(cmd.Context(), examples)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "examples: %d (skipped %d)\n", eval.Scored, eval.Skipped)
			fmt.Fprintf(out, "ACC.: %.4f, Precision: %.4f, Recall: %.4f, F1-score: %.4f\n\n",
				eval.Accuracy, eval.Precision, eval.Recall, eval.F1)
			fmt.Fprint(out, eval.Report.String())
			return nil
		},
	}
}
