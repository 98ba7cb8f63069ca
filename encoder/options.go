package encoder

import (
	"github.com/unixpickle/anyvec"
	"go.uber.org/zap"
)

// Option configures an ONNX encoder.
type Option func(*onnxOptions)

type onnxOptions struct {
	sharedLibrary string
	outputName    string
	hiddenSize    int
	cacheSize     int
	creator       anyvec.Creator
	log           *zap.Logger
}

func defaultOptions() *onnxOptions {
	return &onnxOptions{
		outputName: "last_hidden_state",
		hiddenSize: 768,
		cacheSize:  10000,
		log:        zap.NewNop(),
	}
}

// WithSharedLibrary sets the path of the onnxruntime
// shared library.
// An empty path keeps the library's default lookup.
func WithSharedLibrary(path string) Option {
	return func(o *onnxOptions) {
		o.sharedLibrary = path
	}
}

// WithOutputName selects the model output holding the
// hidden states.
func WithOutputName(name string) Option {
	return func(o *onnxOptions) {
		if name != "" {
			o.outputName = name
		}
	}
}

// WithHiddenSize sets the expected hidden state size.
func WithHiddenSize(size int) Option {
	return func(o *onnxOptions) {
		if size > 0 {
			o.hiddenSize = size
		}
	}
}

// WithCacheSize sets how many sentences keep their
// features in memory.
// A size of zero disables the cache.
func WithCacheSize(size int) Option {
	return func(o *onnxOptions) {
		o.cacheSize = size
	}
}

// WithCreator sets the creator for output vectors.
func WithCreator(c anyvec.Creator) Option {
	return func(o *onnxOptions) {
		o.creator = c
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *onnxOptions) {
		if log != nil {
			o.log = log
		}
	}
}
