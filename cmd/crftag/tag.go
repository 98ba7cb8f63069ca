package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/unixpickle/crftag/dataset"
	"github.com/unixpickle/crftag/train"
	"go.uber.org/zap"
)

func (a *app) tagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tag [FILE]",
		Short: "tag whitespace-tokenized sentences, one per line",
		Long: "Tag sentences read from FILE, or from standard input.\n" +
			"Each token is printed with its tag, and sentences are separated by blank lines.\n" +
			"Tokens past the model's window get the outside tag.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = os.Stdin
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			sentences, err := dataset.ReadTokens(in)
			if err != nil {
				return err
			}

			tagger, padder, err := train.LoadModel(a.cfg, creator, a.log)
			if err != nil {
				return err
			}
			defer tagger.Encoder.Close()
			a.log.Info("tagging", zap.String("model", a.cfg.ModelSavePath),
				zap.Int("sentences", len(sentences)))

			out := bufio.NewWriter(cmd.OutOrStdout())
			for start := 0; start < len(sentences); start += a.cfg.BatchSize {
				end := min(start+a.cfg.BatchSize, len(sentences))
				var examples []*dataset.Example
				for _, s := range sentences[start:end] {
					examples = append(examples, &dataset.Example{Tokens: s})
				}
				tags, err := tagger.Tag(cmd.Context(), padder.Pad(examples))
				if err != nil {
					return err
				}
				for i, ex := range examples {
					for j, token := range ex.Tokens {
						tag := a.cfg.OutsideTag
						if j < len(tags[i]) {
							tag = tags[i][j]
						}
						fmt.Fprintf(out, "%s\t%s\n", token, tag)
					}
					fmt.Fprintln(out)
				}
			}
			return out.Flush()
		},
	}
}
