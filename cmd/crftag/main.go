// Command crftag trains and runs CRF sequence taggers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/crftag/config"
	"github.com/unixpickle/crftag/logging"
	"go.uber.org/zap"
)

// app holds the state shared by every subcommand.
type app struct {
	cfg        *config.Config
	configPath string
	debug      bool

	log      *zap.Logger
	closeLog func() error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	a := &app{cfg: config.Default()}
	err := a.execute(ctx, newRootCmd(a))
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "crftag:", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "crftag",
		Short:         "train and run CRF sequence taggers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "log debug messages")
	bindFlags(root.PersistentFlags(), a.cfg)

	root.AddCommand(a.trainCmd(), a.evalCmd(), a.tagCmd())
	return root
}

// execute runs the root command and then closes the log,
// recording the command's error in it first.
func (a *app) execute(ctx context.Context, root *cobra.Command) error {
	err := root.ExecuteContext(ctx)
	if a.closeLog == nil {
		return err
	}
	if err != nil {
		a.log.Error("command failed", zap.Error(err))
	}
	if closeErr := a.closeLog(); err == nil {
		err = closeErr
	}
	return err
}

// setup loads the configuration file, re-applies the flags
// given on the command line on top of it, and creates the
// logger.
func (a *app) setup(cmd *cobra.Command) error {
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		overrides := pflag.NewFlagSet("overrides", pflag.ContinueOnError)
		bindFlags(overrides, loaded)
		var setErr error
		cmd.Flags().Visit(func(f *pflag.Flag) {
			if overrides.Lookup(f.Name) != nil && setErr == nil {
				setErr = overrides.Set(f.Name, f.Value.String())
			}
		})
		if setErr != nil {
			return setErr
		}
		*a.cfg = *loaded
	}
	opts := logging.Options{Debug: a.debug, Stderr: cmd.ErrOrStderr()}
	if a.cfg.SaveLogFile {
		opts.File = a.cfg.LogFile
	}
	var err error
	a.log, a.closeLog, err = logging.New(opts)
	return err
}

// bindFlags registers a flag for every setting of cfg,
// using the current values as defaults.
func bindFlags(fs *pflag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.Encoder.Kind, "encoder", cfg.Encoder.Kind, "encoder kind (onnx or bilstm)")
	fs.StringVar(&cfg.Encoder.ModelPath, "onnx-model", cfg.Encoder.ModelPath, "ONNX transformer model")
	fs.StringVar(&cfg.Encoder.SharedLibrary, "onnx-library", cfg.Encoder.SharedLibrary,
		"onnxruntime shared library")
	fs.StringVar(&cfg.Encoder.OutputName, "onnx-output", cfg.Encoder.OutputName,
		"ONNX output holding the hidden states")
	fs.IntVar(&cfg.Encoder.HiddenSize, "hidden-size", cfg.Encoder.HiddenSize, "encoder feature size")
	fs.IntVar(&cfg.Encoder.CacheSize, "cache-size", cfg.Encoder.CacheSize,
		"number of sentences whose features are cached")
	fs.IntVar(&cfg.Encoder.EmbedSize, "embed-size", cfg.Encoder.EmbedSize, "BiLSTM embedding size")

	fs.StringVar(&cfg.VocabFile, "vocab", cfg.VocabFile, "token vocabulary (vocab.txt or .model)")
	fs.BoolVar(&cfg.Lowercase, "lowercase", cfg.Lowercase, "fall back to lower-cased tokens")
	fs.StringVar(&cfg.TrainData, "train-data", cfg.TrainData, "training text")
	fs.StringVar(&cfg.TrainLabel, "train-label", cfg.TrainLabel, "training labels")
	fs.StringVar(&cfg.TestData, "test-data", cfg.TestData, "test text")
	fs.StringVar(&cfg.TestLabel, "test-label", cfg.TestLabel, "test labels")
	fs.StringVar(&cfg.LabelFile, "label-file", cfg.LabelFile, "tag set, one tag per line")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "corpus format (pair or conll)")
	fs.StringVar(&cfg.OutsideTag, "outside-tag", cfg.OutsideTag, "tag of [CLS], [SEP] and padding")
	fs.Float64Var(&cfg.DevRatio, "dev-ratio", cfg.DevRatio,
		"fraction of training data held out without test data")

	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "mini-batch size")
	fs.BoolVar(&cfg.Shuffle, "shuffle", cfg.Shuffle, "shuffle every epoch")
	fs.BoolVar(&cfg.DropLast, "drop-last", cfg.DropLast, "skip the last partial batch")
	fs.IntVar(&cfg.MaxLength, "max-length", cfg.MaxLength, "maximum row width including [CLS] and [SEP]")
	fs.Float64Var(&cfg.DropoutProb, "dropout", cfg.DropoutProb, "dropout probability")
	fs.StringVar(&cfg.Optimizer, "optimizer", cfg.Optimizer, "adam, rmsprop, momentum or sgd")
	fs.Float64Var(&cfg.LearningRate, "lr", cfg.LearningRate, "learning rate")
	fs.IntVar(&cfg.NumTrainEpochs, "epochs", cfg.NumTrainEpochs, "number of training epochs")

	fs.StringVar(&cfg.ModelSavePath, "model", cfg.ModelSavePath, "checkpoint path")
	fs.BoolVar(&cfg.Resume, "resume", cfg.Resume, "continue from the checkpoint")
	fs.BoolVar(&cfg.SaveLogFile, "save-log", cfg.SaveLogFile, "copy the log to log-file")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log file")
	fs.StringVar(&cfg.HistoryFile, "history", cfg.HistoryFile, "per-epoch CSV history")
	fs.StringVar(&cfg.ChartFile, "chart", cfg.ChartFile, "per-epoch PNG chart")
}

var creator = anyvec32.CurrentCreator()
