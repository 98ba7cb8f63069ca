// Package metrics scores predicted tag sequences against
// true ones.
//
// Entity-level scores follow the conlleval convention: a
// chunk is a maximal run of tags with the same type, where
// B-, I-, E-, S- prefixes mark chunk boundaries (IOB1,
// IOB2, IOE and IOBES all work) and O is outside any chunk.
package metrics

import "strings"

// An Entity is a chunk of tags sharing a type.
// Start and End are inclusive offsets.
type Entity struct {
	Type  string
	Start int
	End   int
}

// Entities extracts the chunks of a single tag sequence.
func Entities(seq []string) []Entity {
	var res []Entity
	prevTag, prevType := "O", ""
	begin := 0
	for i := 0; i <= len(seq); i++ {
		chunk := "O"
		if i < len(seq) {
			chunk = seq[i]
		}
		tag, typ := splitTag(chunk)
		if endOfChunk(prevTag, tag, prevType, typ) {
			res = append(res, Entity{Type: prevType, Start: begin, End: i - 1})
		}
		if startOfChunk(prevTag, tag, prevType, typ) {
			begin = i
		}
		prevTag, prevType = tag, typ
	}
	return res
}

// allEntities extracts chunks from several sequences as if
// they were joined, with an O between them.
func allEntities(seqs [][]string) []Entity {
	var res []Entity
	offset := 0
	for _, seq := range seqs {
		for _, e := range Entities(seq) {
			e.Start += offset
			e.End += offset
			res = append(res, e)
		}
		offset += len(seq) + 1
	}
	return res
}

// splitTag splits "B-PER" into "B" and "PER".
// A tag without a type gets the type "_".
func splitTag(chunk string) (tag, typ string) {
	if chunk == "" {
		return "", "_"
	}
	tag = chunk[:1]
	rest := chunk[1:]
	if idx := strings.Index(rest, "-"); idx >= 0 {
		typ = rest[idx+1:]
	} else {
		typ = rest
	}
	if typ == "" {
		typ = "_"
	}
	return tag, typ
}

func endOfChunk(prevTag, tag, prevType, typ string) bool {
	switch {
	case prevTag == "E", prevTag == "S":
		return true
	case prevTag == "B" || prevTag == "I":
		if tag == "B" || tag == "S" || tag == "O" {
			return true
		}
	}
	return prevTag != "O" && prevTag != "." && prevType != typ
}

func startOfChunk(prevTag, tag, prevType, typ string) bool {
	switch {
	case tag == "B", tag == "S":
		return true
	case (prevTag == "E" || prevTag == "S" || prevTag == "O") && (tag == "E" || tag == "I"):
		return true
	}
	return tag != "O" && tag != "." && prevType != typ
}
