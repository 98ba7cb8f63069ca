// Package config holds the settings of a training or
// tagging run.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/unixpickle/crftag/dataset"
	"github.com/unixpickle/essentials"
	yaml "gopkg.in/yaml.v2"
)

// Encoder kinds.
const (
	EncoderONNX   = "onnx"
	EncoderBiLSTM = "bilstm"
)

// Optimizer names.
const (
	OptimizerAdam     = "adam"
	OptimizerRMSProp  = "rmsprop"
	OptimizerMomentum = "momentum"
	OptimizerSGD      = "sgd"
)

var (
	ErrMissingPath   = errors.New("missing required path")
	ErrInvalidValue  = errors.New("invalid value")
	ErrUnknownOption = errors.New("unknown option")
)

// Encoder configures the network that turns token ids
// into feature vectors.
type Encoder struct {
	// Kind is EncoderONNX or EncoderBiLSTM.
	Kind string `yaml:"kind"`

	// ModelPath is the exported transformer for the ONNX
	// encoder.
	ModelPath string `yaml:"model_path"`

	// SharedLibrary optionally points at the onnxruntime
	// shared library.
	SharedLibrary string `yaml:"shared_library"`

	// OutputName is the transformer output holding the
	// per-token hidden states.
	OutputName string `yaml:"output_name"`

	// HiddenSize is the size of each feature vector.
	// For the BiLSTM encoder, each direction gets half.
	HiddenSize int `yaml:"hidden_size"`

	// CacheSize is the number of sentences whose frozen
	// features are kept in memory.
	CacheSize int `yaml:"cache_size"`

	// EmbedSize is the BiLSTM's token embedding size.
	EmbedSize int `yaml:"embed_size"`
}

// Config stores every setting of a run.
type Config struct {
	Encoder Encoder `yaml:"encoder"`

	VocabFile  string `yaml:"vocab_file"`
	Lowercase  bool   `yaml:"lowercase"`
	TrainData  string `yaml:"train_data"`
	TrainLabel string `yaml:"train_label"`
	TestData   string `yaml:"test_data"`
	TestLabel  string `yaml:"test_label"`
	LabelFile  string `yaml:"label_file"`
	Format     string `yaml:"format"`
	OutsideTag string `yaml:"outside_tag"`

	// DevRatio is the fraction of the training data held out
	// for evaluation when TestData is empty.
	DevRatio float64 `yaml:"dev_ratio"`

	BatchSize      int     `yaml:"batch_size"`
	Shuffle        bool    `yaml:"shuffle"`
	DropLast       bool    `yaml:"drop_last"`
	MaxLength      int     `yaml:"max_length"`
	DropoutProb    float64 `yaml:"dropout_prob"`
	Optimizer      string  `yaml:"optimizer"`
	LearningRate   float64 `yaml:"learning_rate"`
	NumTrainEpochs int     `yaml:"num_train_epochs"`

	ModelSavePath string `yaml:"model_save_path"`
	Resume        bool   `yaml:"resume"`
	SaveLogFile   bool   `yaml:"save_log_file"`
	LogFile       string `yaml:"log_file"`
	HistoryFile   string `yaml:"history_file"`
	ChartFile     string `yaml:"chart_file"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Encoder: Encoder{
			Kind:       EncoderONNX,
			OutputName: "last_hidden_state",
			HiddenSize: 768,
			CacheSize:  10000,
			EmbedSize:  128,
		},
		Format:         dataset.FormatPair,
		OutsideTag:     "O",
		BatchSize:      16,
		Shuffle:        true,
		MaxLength:      128,
		DropoutProb:    0.1,
		Optimizer:      OptimizerAdam,
		LearningRate:   1e-3,
		NumTrainEpochs: 10,
		ModelSavePath:  "crftag.model",
		LogFile:        "train.log",
	}
}

// Load reads a YAML file on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, essentials.AddCtx("load config", err)
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, essentials.AddCtx("load config", err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return essentials.AddCtx("save config", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return essentials.AddCtx("save config", err)
	}
	return nil
}

// ValidateModel checks the settings needed to build or
// load a model.
func (c *Config) ValidateModel() error {
	if c.VocabFile == "" {
		return fmt.Errorf("%w: vocab_file", ErrMissingPath)
	}
	if c.MaxLength < 3 {
		return fmt.Errorf("%w: max_length must be at least 3, got %d", ErrInvalidValue, c.MaxLength)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch_size must be positive, got %d", ErrInvalidValue, c.BatchSize)
	}
	switch c.Encoder.Kind {
	case EncoderONNX:
		if c.Encoder.ModelPath == "" {
			return fmt.Errorf("%w: encoder.model_path", ErrMissingPath)
		}
		if c.Encoder.OutputName == "" {
			return fmt.Errorf("%w: encoder.output_name is empty", ErrInvalidValue)
		}
	case EncoderBiLSTM:
		if c.Encoder.EmbedSize < 1 {
			return fmt.Errorf("%w: encoder.embed_size must be positive", ErrInvalidValue)
		}
		if c.Encoder.HiddenSize%2 != 0 {
			return fmt.Errorf("%w: encoder.hidden_size must be even for a BiLSTM", ErrInvalidValue)
		}
	default:
		return fmt.Errorf("%w: encoder kind %q", ErrUnknownOption, c.Encoder.Kind)
	}
	if c.Encoder.HiddenSize < 1 {
		return fmt.Errorf("%w: encoder.hidden_size must be positive", ErrInvalidValue)
	}
	switch c.Format {
	case dataset.FormatPair, dataset.FormatCoNLL:
	default:
		return fmt.Errorf("%w: format %q", ErrUnknownOption, c.Format)
	}
	return nil
}

// Validate checks the settings needed for training.
func (c *Config) Validate() error {
	if err := c.ValidateModel(); err != nil {
		return err
	}
	if c.TrainData == "" {
		return fmt.Errorf("%w: train_data", ErrMissingPath)
	}
	if c.Format == dataset.FormatPair && c.TrainLabel == "" {
		return fmt.Errorf("%w: train_label", ErrMissingPath)
	}
	if c.TestData != "" && c.Format == dataset.FormatPair && c.TestLabel == "" {
		return fmt.Errorf("%w: test_label", ErrMissingPath)
	}
	if c.LabelFile == "" {
		return fmt.Errorf("%w: label_file", ErrMissingPath)
	}
	if c.ModelSavePath == "" {
		return fmt.Errorf("%w: model_save_path", ErrMissingPath)
	}
	if c.SaveLogFile && c.LogFile == "" {
		return fmt.Errorf("%w: log_file", ErrMissingPath)
	}
	if c.DropoutProb < 0 || c.DropoutProb >= 1 {
		return fmt.Errorf("%w: dropout_prob must be in [0, 1), got %g", ErrInvalidValue, c.DropoutProb)
	}
	if c.DevRatio < 0 || c.DevRatio >= 1 {
		return fmt.Errorf("%w: dev_ratio must be in [0, 1), got %g", ErrInvalidValue, c.DevRatio)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("%w: learning_rate must be positive", ErrInvalidValue)
	}
	if c.NumTrainEpochs < 1 {
		return fmt.Errorf("%w: num_train_epochs must be positive", ErrInvalidValue)
	}
	switch c.Optimizer {
	case OptimizerAdam, OptimizerRMSProp, OptimizerMomentum, OptimizerSGD:
	default:
		return fmt.Errorf("%w: optimizer %q", ErrUnknownOption, c.Optimizer)
	}
	return nil
}
