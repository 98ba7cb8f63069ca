package crftag

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/unixpickle/crftag/encoder"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

// ErrNoEncoder is returned by Load when neither the
// checkpoint nor the caller provides an encoder.
var ErrNoEncoder = errors.New("checkpoint has no encoder")

// Save writes the tagger to a file.
//
// The data goes to a temporary file which is then renamed,
// so an interrupted save never leaves a partial checkpoint.
func (t *Tagger) Save(path string) error {
	data, err := serializer.SerializeAny(t)
	if err != nil {
		return essentials.AddCtx("save tagger", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return essentials.AddCtx("save tagger", err)
	}
	temp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return essentials.AddCtx("save tagger", err)
	}
	tempPath := temp.Name()
	if _, err := temp.Write(data); err != nil {
		temp.Close()
		os.Remove(tempPath)
		return essentials.AddCtx("save tagger", err)
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempPath)
		return essentials.AddCtx("save tagger", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return essentials.AddCtx("save tagger", err)
	}
	return nil
}

// Load reads a tagger saved with Save.
//
// If the checkpoint does not include its encoder, enc is
// used instead; otherwise enc is ignored.
func Load(path string, enc encoder.Encoder) (*Tagger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, essentials.AddCtx("load tagger", err)
	}
	var t *Tagger
	if err := serializer.DeserializeAny(data, &t); err != nil {
		return nil, essentials.AddCtx("load tagger", err)
	}
	if t.Encoder == nil {
		if enc == nil {
			return nil, fmt.Errorf("load tagger: %w", ErrNoEncoder)
		}
		t.Encoder = enc
	}
	if t.Encoder.OutSize() != t.Projection.InCount {
		return nil, fmt.Errorf("load tagger: encoder output size %d does not match projection input %d",
			t.Encoder.OutSize(), t.Projection.InCount)
	}
	return t, nil
}
