package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// =============================================================================
// Document Serialization API
// =============================================================================

// Marshal encodes doc as indented JSON.
func Marshal(doc Document) ([]byte, error) {
	return json.MarshalIndent(normalize(doc), "", "  ")
}

// Unmarshal decodes a document. Only malformed JSON is an error; use
// [ToDiagram] or [Validate] to check the content.
func Unmarshal(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// Write encodes doc as indented JSON to w.
func Write(doc Document, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(normalize(doc)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Read decodes a document from r.
func Read(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode: %w", err)
	}
	return doc, nil
}

// WriteFile writes doc to path with 0644 permissions.
func WriteFile(doc Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Write(doc, f)
}

// ReadFile reads a document from path.
func ReadFile(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// normalize replaces nil slices so empty documents encode as [] not null.
func normalize(doc Document) Document {
	if doc.Nodes == nil {
		doc.Nodes = []Node{}
	}
	if doc.Edges == nil {
		doc.Edges = []Edge{}
	}
	return doc
}
