package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	var stderr bytes.Buffer
	log, closer, err := New(Options{Stderr: &stderr})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("progress")
	log.Error("failure")
	require.NoError(t, closer())

	assert.Contains(t, stderr.String(), "progress")
	assert.Contains(t, stderr.String(), "failure")
	assert.NotContains(t, stderr.String(), "hidden")
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.log")
	require.NoError(t, os.WriteFile(path, []byte("stale contents\n"), 0644))

	var stderr bytes.Buffer
	log, closer, err := New(Options{
		Debug:  true,
		File:   path,
		Stderr: &stderr,
	})
	require.NoError(t, err)
	log.Debug("step")
	log.Error("oops")
	require.NoError(t, closer())

	assert.Contains(t, stderr.String(), "step")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)
	assert.False(t, strings.Contains(contents, "stale"))
	assert.Contains(t, contents, `"msg":"step"`)
	assert.Contains(t, contents, `"msg":"oops"`)
}

func TestNewBadFile(t *testing.T) {
	_, _, err := New(Options{File: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}
