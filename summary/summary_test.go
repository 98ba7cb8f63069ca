package summary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepLosses(t *testing.T) {
	mean, std := StepLosses([]float64{1, 2, 3, 4})
	assert.InDelta(t, 2.5, mean, 1e-9)
	assert.InDelta(t, 1.118034, std, 1e-6)

	mean, std = StepLosses(nil)
	assert.Zero(t, mean)
	assert.Zero(t, std)
}

func TestBestLoss(t *testing.T) {
	_, ok := History{}.BestLoss()
	assert.False(t, ok)

	h := History{
		{Epoch: 1, Loss: 3, Saved: true},
		{Epoch: 2, Loss: 1},
		{Epoch: 3, Loss: 2, Saved: true},
	}
	loss, ok := h.BestLoss()
	assert.True(t, ok)
	assert.Equal(t, 2.0, loss)
}

func TestUpToLastSave(t *testing.T) {
	h := History{
		{Epoch: 1, Saved: true},
		{Epoch: 2, Saved: true},
		{Epoch: 3},
	}
	assert.Len(t, h.UpToLastSave(), 2)
	assert.Nil(t, History{{Epoch: 1}}.UpToLastSave())
}

func TestCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	h := History{
		{Epoch: 1, Loss: 2.5, LossStdDev: 0.5, Steps: 10, Saved: true},
		{Epoch: 2, Loss: 1.5, Steps: 10, Accuracy: 0.9, F1: 0.75, Evaluated: true},
	}
	require.NoError(t, h.WriteCSV(path))
	actual, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, h, actual)

	_, err = ReadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestWriteChart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.png")
	assert.ErrorIs(t, History{{Epoch: 1, Loss: 1}}.WriteChart(path), ErrTooFewPoints)

	h := History{
		{Epoch: 1, Loss: 3, F1: 0.2, Evaluated: true},
		{Epoch: 2, Loss: 2, F1: 0.4, Evaluated: true},
		{Epoch: 3, Loss: 1.5, F1: 0.5, Evaluated: true},
	}
	require.NoError(t, h.WriteChart(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(data[:4]))
}
