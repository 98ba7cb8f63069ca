package vocab

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var l Labels
	serializer.RegisterTypedDeserializer(l.SerializerType(), DeserializeLabels)
}

// Labels is a bidirectional mapping between tag strings
// and tag indices.
//
// Labels are immutable once created.
type Labels struct {
	tags    []string
	indices map[string]int
}

// NewLabels creates a label vocabulary from a list of
// tags, where each tag's index is its position.
func NewLabels(tags []string) (*Labels, error) {
	if len(tags) == 0 {
		return nil, errors.New("new labels: no tags")
	}
	res := &Labels{
		tags:    append([]string{}, tags...),
		indices: map[string]int{},
	}
	for i, tag := range tags {
		if tag == "" || strings.ContainsAny(tag, " \t\n") {
			return nil, fmt.Errorf("new labels: invalid tag %q", tag)
		}
		if _, ok := res.indices[tag]; ok {
			return nil, fmt.Errorf("new labels: duplicate tag %q", tag)
		}
		res.indices[tag] = i
	}
	return res, nil
}

// LoadLabels reads a label file with one tag per line.
// Blank lines are ignored.
func LoadLabels(path string) (*Labels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, essentials.AddCtx("load labels", err)
	}
	defer f.Close()
	var tags []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if tag := strings.TrimSpace(scanner.Text()); tag != "" {
			tags = append(tags, tag)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, essentials.AddCtx("load labels", err)
	}
	res, err := NewLabels(tags)
	if err != nil {
		return nil, essentials.AddCtx("load labels "+path, err)
	}
	return res, nil
}

// DeserializeLabels deserializes a Labels.
func DeserializeLabels(d []byte) (*Labels, error) {
	res, err := NewLabels(strings.Split(string(d), "\n"))
	if err != nil {
		return nil, essentials.AddCtx("deserialize Labels", err)
	}
	return res, nil
}

// Len returns the number of tags.
func (l *Labels) Len() int {
	return len(l.tags)
}

// Index returns the index of a tag.
func (l *Labels) Index(tag string) (int, bool) {
	idx, ok := l.indices[tag]
	return idx, ok
}

// Tag returns the tag for an index.
// It panics if the index is out of range.
func (l *Labels) Tag(idx int) string {
	return l.tags[idx]
}

// Tags returns a copy of the tag list.
func (l *Labels) Tags() []string {
	return append([]string{}, l.tags...)
}

// Indices converts a tag sequence to indices.
func (l *Labels) Indices(tags []string) ([]int, error) {
	res := make([]int, len(tags))
	for i, tag := range tags {
		idx, ok := l.indices[tag]
		if !ok {
			return nil, fmt.Errorf("unknown tag: %q", tag)
		}
		res[i] = idx
	}
	return res, nil
}

// SerializerType returns the unique ID used to serialize
// Labels with the serializer package.
func (l *Labels) SerializerType() string {
	return "github.com/unixpickle/crftag/vocab.Labels"
}

// Serialize serializes the tag list.
func (l *Labels) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	for i, tag := range l.tags {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(tag)
	}
	return buf.Bytes(), nil
}
