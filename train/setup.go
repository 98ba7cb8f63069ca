package train

import (
	"fmt"
	"os"
	"reflect"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/crftag"
	"github.com/unixpickle/crftag/anysgd"
	"github.com/unixpickle/crftag/config"
	"github.com/unixpickle/crftag/dataset"
	"github.com/unixpickle/crftag/encoder"
	"github.com/unixpickle/crftag/summary"
	"github.com/unixpickle/crftag/vocab"
	"github.com/unixpickle/essentials"
	"go.uber.org/zap"
)

// New builds a Trainer from a configuration.
//
// It loads the vocabularies and corpora, and either
// creates a new tagger or, when cfg.Resume is set and a
// checkpoint exists, continues from the checkpoint along
// with its optimizer state and history.
func New(cfg *config.Config, c anyvec.Creator, log *zap.Logger) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, essentials.AddCtx("new trainer", err)
	}
	tokens, err := loadTokens(cfg)
	if err != nil {
		return nil, essentials.AddCtx("new trainer", err)
	}
	labels, err := vocab.LoadLabels(cfg.LabelFile)
	if err != nil {
		return nil, essentials.AddCtx("new trainer", err)
	}
	trainData, testData, err := loadCorpora(cfg)
	if err != nil {
		return nil, essentials.AddCtx("new trainer", err)
	}
	log.Info("loaded data",
		zap.Int("train", trainData.Len()),
		zap.Int("test", testData.Len()),
		zap.Int("tags", labels.Len()))

	if testData.Len() == 0 {
		log.Warn("no test data, evaluation disabled")
	}

	t := &Trainer{
		Padder: &dataset.Padder{MaxLength: cfg.MaxLength, Vocab: tokens},
		Train:  trainData,
		Test:   testData,
		Config: cfg,
		Log:    log,
	}

	resume := false
	if cfg.Resume {
		if _, err := os.Stat(cfg.ModelSavePath); err == nil {
			resume = true
		} else {
			log.Warn("no checkpoint to resume from", zap.String("path", cfg.ModelSavePath))
		}
	}

	if resume {
		t.Tagger, err = LoadTagger(cfg, tokens, c, log)
		if err != nil {
			return nil, essentials.AddCtx("new trainer", err)
		}
		if !reflect.DeepEqual(t.Tagger.Labels.Tags(), labels.Tags()) {
			t.Tagger.Encoder.Close()
			return nil, fmt.Errorf("new trainer: checkpoint labels %v differ from %s",
				t.Tagger.Labels.Tags(), cfg.LabelFile)
		}
	} else {
		enc, err := encoder.New(cfg.Encoder, tokens, c, log)
		if err != nil {
			return nil, essentials.AddCtx("new trainer", err)
		}
		t.Tagger = crftag.NewTagger(c, enc, labels, cfg.DropoutProb)
	}

	t.Optimizer, err = NewOptimizer(cfg.Optimizer, t.Tagger.Parameters())
	if err == nil && resume {
		err = t.resume()
	}
	if err != nil {
		t.Close()
		return nil, essentials.AddCtx("new trainer", err)
	}
	return t, nil
}

func (t *Trainer) resume() error {
	cfg := t.Config
	restored, err := loadOptimizer(t.Optimizer, OptimizerPath(cfg.ModelSavePath))
	if err != nil {
		return err
	}
	if !restored && t.Optimizer != nil {
		t.Log.Warn("no optimizer state, starting it fresh")
	}
	if cfg.HistoryFile != "" {
		if _, err := os.Stat(cfg.HistoryFile); err == nil {
			history, err := summary.ReadCSV(cfg.HistoryFile)
			if err != nil {
				return err
			}
			t.History = history.UpToLastSave()
		}
	}
	if len(t.History) == 0 {
		// The checkpoint counts as one finished epoch, but its
		// loss is unknown, so the next epoch always saves.
		t.History = summary.History{{Epoch: 0}}
		t.Log.Warn("no history, treating the checkpoint as epoch 0")
	}
	t.Log.Info("resuming", zap.Int("epoch", len(t.History)),
		zap.String("path", cfg.ModelSavePath))
	return nil
}

// Close releases the encoder.
func (t *Trainer) Close() error {
	if t.Tagger != nil && t.Tagger.Encoder != nil {
		return t.Tagger.Encoder.Close()
	}
	return nil
}

// LoadTagger loads the checkpoint at cfg.ModelSavePath.
// Frozen encoders are not stored in checkpoints, so they
// are created from the configuration.
func LoadTagger(cfg *config.Config, tokens *vocab.Tokens, c anyvec.Creator,
	log *zap.Logger) (*crftag.Tagger, error) {
	var enc encoder.Encoder
	if cfg.Encoder.Kind == config.EncoderONNX {
		var err error
		enc, err = encoder.New(cfg.Encoder, tokens, c, log)
		if err != nil {
			return nil, err
		}
	}
	tagger, err := crftag.Load(cfg.ModelSavePath, enc)
	if err != nil {
		if enc != nil {
			enc.Close()
		}
		return nil, err
	}
	if tagger.Encoder != enc && enc != nil {
		enc.Close()
	}
	return tagger, nil
}

// LoadModel loads the vocabulary and checkpoint needed to
// tag text.
func LoadModel(cfg *config.Config, c anyvec.Creator, log *zap.Logger) (*crftag.Tagger,
	*dataset.Padder, error) {
	if err := cfg.ValidateModel(); err != nil {
		return nil, nil, essentials.AddCtx("load model", err)
	}
	tokens, err := loadTokens(cfg)
	if err != nil {
		return nil, nil, essentials.AddCtx("load model", err)
	}
	tagger, err := LoadTagger(cfg, tokens, c, log)
	if err != nil {
		return nil, nil, essentials.AddCtx("load model", err)
	}
	tagger.SetTraining(false)
	return tagger, &dataset.Padder{MaxLength: cfg.MaxLength, Vocab: tokens}, nil
}

func loadTokens(cfg *config.Config) (*vocab.Tokens, error) {
	tokens, err := vocab.LoadTokens(cfg.VocabFile)
	if err != nil {
		return nil, err
	}
	tokens.Lowercase = cfg.Lowercase
	return tokens, nil
}

// loadCorpora reads the training data and the test data.
// Without test data, a DevRatio fraction of the training
// data is held out instead.
func loadCorpora(cfg *config.Config) (trainData, testData dataset.SampleList, err error) {
	examples, err := dataset.Read(cfg.Format, cfg.TrainData, cfg.TrainLabel)
	if err != nil {
		return nil, nil, err
	}
	trainData = dataset.SampleList(examples)
	if cfg.TestData != "" {
		examples, err := dataset.Read(cfg.Format, cfg.TestData, cfg.TestLabel)
		if err != nil {
			return nil, nil, err
		}
		testData = dataset.SampleList(examples)
	} else if cfg.DevRatio > 0 {
		dev, rest := anysgd.HashSplit(trainData, cfg.DevRatio)
		testData, trainData = dev.(dataset.SampleList), rest.(dataset.SampleList)
	}
	if trainData.Len() == 0 {
		return nil, nil, fmt.Errorf("no training examples in %s", cfg.TrainData)
	}
	return trainData, testData, nil
}
