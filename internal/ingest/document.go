package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dshills/apidex/internal/storage"
	"github.com/dshills/apidex/pkg/types"
)

// ErrInvalidDocument is returned when the input is not a valid module document
var ErrInvalidDocument = errors.New("invalid module document")

// LoadDocument reads the JSON module document at path
func LoadDocument(path string) (*types.Module, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &storage.MissingInputError{Path: path, What: "input document"}
		}
		return nil, fmt.Errorf("failed to open input document: %w", err)
	}
	defer func() { _ = f.Close() }()

	root, err := DecodeDocument(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return root, nil
}

// DecodeDocument decodes a module document. Keys outside the document shape
// are ignored; parameter kinds outside the five known values are rejected.
func DecodeDocument(r io.Reader) (*types.Module, error) {
	var root types.Module
	dec := json.NewDecoder(r)
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if err := root.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return &root, nil
}
