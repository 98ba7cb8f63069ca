package vocab

import (
	"errors"
	"os"

	"github.com/unixpickle/essentials"
	"google.golang.org/protobuf/encoding/protowire"
)

// wordStart is the SentencePiece marker for pieces that
// begin a word.
const wordStart = "\u2581"

// Field numbers from sentencepiece_model.proto.
const (
	modelPiecesField = 1
	pieceTextField   = 1
)

// loadSentencePiece reads the pieces of a SentencePiece
// model and maps them to HuggingFace XLM-RoBERTa ids:
//
//	<s>=0, <pad>=1, </s>=2, <unk>=3, piece n>=3 -> n+1
//
// <pad> is not part of the SentencePiece model; it is
// inserted by the HuggingFace conversion.
func loadSentencePiece(path string) (*Tokens, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, essentials.AddCtx("load sentencepiece", err)
	}
	pieces, err := parsePieces(data)
	if err != nil {
		return nil, essentials.AddCtx("load sentencepiece "+path, err)
	}
	if len(pieces) < 3 {
		return nil, essentials.AddCtx("load sentencepiece "+path, ErrMissingSpecial)
	}
	res := &Tokens{
		ids:        make(map[string]int, len(pieces)+1),
		size:       len(pieces) + 2,
		wordPrefix: wordStart,
		clsID:      0,
		padID:      1,
		sepID:      2,
		unkID:      3,
	}
	for i, piece := range pieces {
		if _, ok := res.ids[piece]; !ok {
			res.ids[piece] = spToHF(i)
		}
	}
	res.ids["<pad>"] = res.padID
	return res, nil
}

func spToHF(idx int) int {
	switch idx {
	case 0:
		return 3
	case 1:
		return 0
	case 2:
		return 2
	default:
		return idx + 1
	}
}

// parsePieces extracts the piece strings, in order, from
// a serialized ModelProto.
func parsePieces(b []byte) ([]string, error) {
	var res []string
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		if num == modelPiecesField && typ == protowire.BytesType {
			msg, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			piece, err := parsePiece(msg)
			if err != nil {
				return nil, err
			}
			res = append(res, piece)
			b = b[n:]
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
	}
	return res, nil
}

func parsePiece(b []byte) (string, error) {
	var piece string
	var found bool
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", protowire.ParseError(n)
		}
		b = b[n:]
		if num == pieceTextField && typ == protowire.BytesType {
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return "", protowire.ParseError(n)
			}
			piece, found = s, true
			b = b[n:]
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return "", protowire.ParseError(n)
		}
		b = b[n:]
	}
	if !found {
		return "", errors.New("sentencepiece entry without a piece")
	}
	return piece, nil
}
