package ingestion

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode"

	"github.com/poiesic/retrievit/core"
)

// LoadFile reads documents from the file at path. See LoadDocuments.
func LoadFile(path string) ([]core.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	docs, err := LoadDocuments(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return docs, nil
}

// record is the on-disk document shape. Older exports name the identifier
// arxiv_id.
type record struct {
	core.Document
	ArxivID string `json:"arxiv_id"`
}

func (r record) document() core.Document {
	doc := r.Document
	if doc.Identifier == "" {
		doc.Identifier = r.ArxivID
	}
	return doc
}

// LoadDocuments decodes documents from r. The input is either a single JSON
// array or a stream of JSON objects, typically one per line. Empty input
// yields no documents. An arxiv_id key is accepted in place of identifier.
func LoadDocuments(r io.Reader) ([]core.Document, error) {
	br := bufio.NewReader(r)

	first, err := firstNonSpace(br)
	if errors.Is(err, io.EOF) {
		return []core.Document{}, nil
	}
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(br)
	if first == '[' {
		var records []record
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		docs := make([]core.Document, len(records))
		for i, rec := range records {
			docs[i] = rec.document()
		}
		return docs, nil
	}

	docs := []core.Document{}
	for {
		var rec record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: document %d: %w", ErrInvalidInput, len(docs), err)
		}
		docs = append(docs, rec.document())
	}
	return docs, nil
}

// firstNonSpace peeks past leading whitespace and returns the next byte
// without consuming it.
func firstNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !unicode.IsSpace(rune(b)) {
			return b, br.UnreadByte()
		}
	}
}
