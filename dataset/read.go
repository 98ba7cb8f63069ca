// Package dataset reads labeled token sequences and turns
// them into padded batches.
package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/unixpickle/essentials"
)

// Supported corpus formats.
const (
	FormatPair  = "pair"
	FormatCoNLL = "conll"
)

// legacySeparator joins tokens in older corpora.
const legacySeparator = "&&&"

// An Example is a token sequence with one tag per token.
type Example struct {
	Tokens []string
	Labels []string
}

// Read loads a corpus in the given format.
// For FormatCoNLL, labelPath is ignored.
func Read(format, textPath, labelPath string) ([]*Example, error) {
	switch format {
	case FormatPair, "":
		return ReadPair(textPath, labelPath)
	case FormatCoNLL:
		return ReadCoNLL(textPath)
	default:
		return nil, fmt.Errorf("read corpus: unknown format %q", format)
	}
}

// ReadPair reads a text file and a label file whose lines
// correspond to each other.
// Tokens and tags are separated by whitespace or by "&&&".
// Blank lines are skipped in both files together.
func ReadPair(textPath, labelPath string) ([]*Example, error) {
	texts, err := readLines(textPath)
	if err != nil {
		return nil, essentials.AddCtx("read corpus", err)
	}
	labels, err := readLines(labelPath)
	if err != nil {
		return nil, essentials.AddCtx("read corpus", err)
	}
	if len(texts) != len(labels) {
		return nil, fmt.Errorf("read corpus: %s has %d lines but %s has %d",
			textPath, len(texts), labelPath, len(labels))
	}
	var res []*Example
	for i, line := range texts {
		tokens := splitFields(line)
		tags := splitFields(labels[i])
		if len(tokens) == 0 && len(tags) == 0 {
			continue
		}
		if len(tokens) != len(tags) {
			return nil, fmt.Errorf("read corpus: line %d: %d tokens but %d labels",
				i+1, len(tokens), len(tags))
		}
		res = append(res, &Example{Tokens: tokens, Labels: tags})
	}
	return res, nil
}

// ReadCoNLL reads a column-formatted corpus.
// The first column is the token and the last column is the
// tag; a blank line ends a sentence.
// Lines starting with -DOCSTART- are ignored.
func ReadCoNLL(path string) ([]*Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, essentials.AddCtx("read corpus", err)
	}
	defer f.Close()
	res, err := readCoNLL(f)
	if err != nil {
		return nil, essentials.AddCtx("read corpus "+path, err)
	}
	return res, nil
}

func readCoNLL(r io.Reader) ([]*Example, error) {
	var res []*Example
	cur := &Example{}
	flush := func() {
		if len(cur.Tokens) > 0 {
			res = append(res, cur)
		}
		cur = &Example{}
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var lineNum int
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			flush()
			continue
		}
		if strings.HasPrefix(line, "-DOCSTART-") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected token and tag columns", lineNum)
		}
		cur.Tokens = append(cur.Tokens, fields[0])
		cur.Labels = append(cur.Labels, fields[len(fields)-1])
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return res, nil
}

// ReadTokens reads whitespace-tokenized sentences, one per
// line, for tagging.
func ReadTokens(r io.Reader) ([][]string, error) {
	var res [][]string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if tokens := splitFields(scanner.Text()); len(tokens) > 0 {
			res = append(res, tokens)
		}
	}
	return res, scanner.Err()
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var res []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		res = append(res, scanner.Text())
	}
	return res, scanner.Err()
}

func splitFields(line string) []string {
	if strings.Contains(line, legacySeparator) {
		var res []string
		for _, f := range strings.Split(strings.TrimSpace(line), legacySeparator) {
			if f != "" {
				res = append(res, f)
			}
		}
		return res
	}
	return strings.Fields(line)
}
