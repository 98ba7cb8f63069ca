package encoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/crftag/dataset"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

var (
	// ErrClosed is returned when encoding with a closed
	// encoder.
	ErrClosed = errors.New("encoder: closed")

	// ErrHiddenSize indicates that the model's hidden
	// states do not have the configured size.
	ErrHiddenSize = errors.New("encoder: unexpected hidden size")
)

var (
	ortEnvOnce sync.Once
	ortEnvErr  error
)

// initORT initializes the ONNX Runtime environment once.
// The shared library path only matters on the first call.
func initORT(sharedLibrary string) error {
	ortEnvOnce.Do(func() {
		if sharedLibrary != "" {
			ort.SetSharedLibraryPath(sharedLibrary)
		}
		ortEnvErr = ort.InitializeEnvironment()
	})
	return ortEnvErr
}

// runFunc runs a transformer on a [batch, width] block of
// ids and returns the [batch, width, hidden] features.
type runFunc func(ids, mask []int64, batch, width int) ([]float32, error)

// ONNX is a frozen, pretrained transformer exported to
// ONNX.
//
// The transformer is not fine-tuned: its weights never
// receive gradients, and training a Tagger on top of it
// only updates the dropout/projection head and the CRF.
// Fine-tuning needs an encoder written with anydiff, such
// as BiLSTM.
//
// Features are cached per sentence, since they never
// change during training.
type ONNX struct {
	opts    *onnxOptions
	session *ort.DynamicAdvancedSession
	run     runFunc
	cache   *lru.Cache

	mu     sync.Mutex
	closed bool
}

// NewONNX loads a transformer with inputs "input_ids" and
// "attention_mask".
func NewONNX(modelPath string, options ...Option) (*ONNX, error) {
	opts := defaultOptions()
	for _, o := range options {
		o(opts)
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}
	if err := initORT(opts.sharedLibrary); err != nil {
		return nil, fmt.Errorf("initializing ONNX runtime: %w", err)
	}

	sessionOpts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("creating session options: %w", err)
	}
	defer func() { _ = sessionOpts.Destroy() }()

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{opts.outputName},
		sessionOpts,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	res, err := newONNX(opts, nil)
	if err != nil {
		_ = session.Destroy()
		return nil, err
	}
	res.session = session
	res.run = res.runSession
	opts.log.Info("loaded transformer", zap.String("path", modelPath),
		zap.Int("hidden_size", opts.hiddenSize))
	return res, nil
}

func newONNX(opts *onnxOptions, run runFunc) (*ONNX, error) {
	if opts.creator == nil {
		opts.creator = anyvec32.CurrentCreator()
	}
	res := &ONNX{opts: opts, run: run}
	if opts.cacheSize > 0 {
		cache, err := lru.New(opts.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating feature cache: %w", err)
		}
		res.cache = cache
	}
	return res, nil
}

// Encode computes transformer features for the real
// positions of every row.
func (o *ONNX) Encode(ctx context.Context, b *dataset.Batch) (anyseq.Seq, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkBatch(b); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil, ErrClosed
	}

	features := make([][]float32, b.Size())
	keys := make([]string, b.Size())
	var missing []int
	for i, row := range b.InputIDs {
		keys[i] = cacheKey(row[:b.Lengths[i]])
		if o.cache != nil {
			if f, ok := o.cache.Get(keys[i]); ok {
				features[i] = f.([]float32)
				continue
			}
		}
		missing = append(missing, i)
	}
	if len(missing) > 0 {
		if err := o.compute(b, missing, features); err != nil {
			return nil, fmt.Errorf("encode: %w", err)
		}
		if o.cache != nil {
			for _, i := range missing {
				o.cache.Add(keys[i], features[i])
			}
		}
	}
	o.opts.log.Debug("encoded batch", zap.Int("rows", b.Size()),
		zap.Int("computed", len(missing)))

	return o.sequences(b, features), nil
}

// compute runs the transformer on the given rows, padded
// to the longest of them.
func (o *ONNX) compute(b *dataset.Batch, rows []int, features [][]float32) error {
	var width int
	for _, i := range rows {
		if b.Lengths[i] > width {
			width = b.Lengths[i]
		}
	}
	ids := make([]int64, len(rows)*width)
	mask := make([]int64, len(rows)*width)
	for k, i := range rows {
		for j := 0; j < width; j++ {
			ids[k*width+j] = int64(b.InputIDs[i][j])
			if b.Mask[i][j] {
				mask[k*width+j] = 1
			}
		}
	}
	out, err := o.run(ids, mask, len(rows), width)
	if err != nil {
		return err
	}
	hidden := o.opts.hiddenSize
	if len(out) != len(rows)*width*hidden {
		return fmt.Errorf("%w: got %d values for %d rows of width %d", ErrHiddenSize,
			len(out), len(rows), width)
	}
	for k, i := range rows {
		start := k * width * hidden
		features[i] = append([]float32{}, out[start:start+b.Lengths[i]*hidden]...)
	}
	return nil
}

func (o *ONNX) runSession(ids, mask []int64, batch, width int) ([]float32, error) {
	shape := ort.NewShape(int64(batch), int64(width))
	idsTensor, err := ort.NewTensor(shape, ids)
	if err != nil {
		return nil, fmt.Errorf("creating input_ids tensor: %w", err)
	}
	defer func() { _ = idsTensor.Destroy() }()
	maskTensor, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, fmt.Errorf("creating attention_mask tensor: %w", err)
	}
	defer func() { _ = maskTensor.Destroy() }()

	outputs := []ort.Value{nil}
	if err := o.session.Run([]ort.Value{idsTensor, maskTensor}, outputs); err != nil {
		return nil, fmt.Errorf("running inference: %w", err)
	}
	if outputs[0] == nil {
		return nil, errors.New("no output produced")
	}
	defer func() { _ = outputs[0].Destroy() }()

	hiddenTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, errors.New("unexpected output tensor type")
	}
	outShape := hiddenTensor.GetShape()
	if len(outShape) != 3 || outShape[2] != int64(o.opts.hiddenSize) {
		return nil, fmt.Errorf("%w: output shape %v", ErrHiddenSize, outShape)
	}
	return append([]float32{}, hiddenTensor.GetData()...), nil
}

func (o *ONNX) sequences(b *dataset.Batch, features [][]float32) anyseq.Seq {
	c := o.opts.creator
	hidden := o.opts.hiddenSize
	vecs := make([][]anyvec.Vector, len(features))
	for i, f := range features {
		vecs[i] = make([]anyvec.Vector, b.Lengths[i])
		for t := range vecs[i] {
			data := make([]float64, hidden)
			for j, x := range f[t*hidden : (t+1)*hidden] {
				data[j] = float64(x)
			}
			vecs[i][t] = c.MakeVectorData(c.MakeNumericList(data))
		}
	}
	return anyseq.ConstSeqList(c, vecs)
}

// OutSize returns the hidden size.
func (o *ONNX) OutSize() int {
	return o.opts.hiddenSize
}

// Parameters returns nil, since the transformer is
// frozen.
func (o *ONNX) Parameters() []*anydiff.Var {
	return nil
}

// Close releases the session.
func (o *ONNX) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	if o.cache != nil {
		o.cache.Purge()
	}
	if o.session != nil {
		return o.session.Destroy()
	}
	return nil
}

func cacheKey(ids []int) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(id))
	}
	return b.String()
}
