package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/unixpickle/crftag/train"
	"go.uber.org/zap"
)

func (a *app) trainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "train a tagger, keeping the checkpoint with the lowest loss",
		Long: "Train a tagger, keeping the checkpoint with the lowest epoch loss.\n" +
			"The settings are written next to the checkpoint, with a .yaml suffix.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			trainer, err := train.New(a.cfg, creator, a.log)
			if err != nil {
				return err
			}
			defer trainer.Close()

			a.log.Info("press ctrl+c once to stop")
			res, err := trainer.Run(cmd.Context())
			stopped := errors.Is(err, context.Canceled)
			if err != nil && !stopped {
				return err
			}
			if res.Saved {
				if err := a.cfg.Save(a.cfg.ModelSavePath + ".yaml"); err != nil {
					return err
				}
			}
			if stopped {
				a.log.Info("stopped early", zap.Int("epochs", res.Epochs))
				return nil
			}
			a.log.Info("training done", zap.Int("epochs", res.Epochs),
				zap.Float64("best_loss", res.BestLoss))
			if res.Last != nil {
				fmt.Fprint(cmd.OutOrStdout(), res.Last.Report.String())
			}
			return nil
		},
	}
}
