package knowledge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"
)

var (
	ErrNotArray     = errors.New("knowledge base is not an array of objects")
	ErrNotObject    = errors.New("record is not an object")
	ErrMissingField = errors.New("missing required field")
	ErrTrailingData = errors.New("unexpected data after knowledge base array")
	ErrEmptySource  = errors.New("knowledge base source is empty")
	ErrInvalidUTF8  = errors.New("record is not valid UTF-8")
)

// LoadError reports why a knowledge base could not be loaded. Index is -1
// when the failure is not tied to a single record.
type LoadError struct {
	Source string
	Index  int
	Field  string
	Err    error
}

func (e *LoadError) Error() string {
	switch {
	case e.Index >= 0 && e.Field != "":
		return fmt.Sprintf("load knowledge base %s: record %d: field %q: %v", e.Source, e.Index, e.Field, e.Err)
	case e.Index >= 0:
		return fmt.Sprintf("load knowledge base %s: record %d: %v", e.Source, e.Index, e.Err)
	default:
		return fmt.Sprintf("load knowledge base %s: %v", e.Source, e.Err)
	}
}

func (e *LoadError) Unwrap() error { return e.Err }

// rawRecord mirrors the on-disk shape. Pointers distinguish a missing field
// from an empty one.
type rawRecord struct {
	Name         *string   `json:"name"`
	Desc         *string   `json:"desc"`
	DiagCriteria *string   `json:"diag_criteria"`
	CureWay      *string   `json:"cure_way"`
	Symptom      *[]string `json:"symptom"`
}

// Load reads and parses the knowledge base at path. Either every record loads
// or a *LoadError is returned.
func Load(path string) (*KnowledgeBase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Source: path, Index: -1, Err: err}
	}
	defer f.Close()
	return Decode(f, path)
}

// Decode parses a knowledge base from r. source is only used in errors.
func Decode(r io.Reader, source string) (*KnowledgeBase, error) {
	dec := json.NewDecoder(r)

	var elems []json.RawMessage
	if err := dec.Decode(&elems); err != nil {
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			err = ErrEmptySource
		case errors.As(err, &typeErr):
			err = ErrNotArray
		}
		return nil, &LoadError{Source: source, Index: -1, Err: err}
	}
	if elems == nil {
		// literal null
		return nil, &LoadError{Source: source, Index: -1, Err: ErrNotArray}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &LoadError{Source: source, Index: -1, Err: ErrTrailingData}
	}

	records := make([]DisorderRecord, 0, len(elems))
	for i, elem := range elems {
		rec, err := decodeRecord(elem)
		if err != nil {
			err.Source, err.Index = source, i
			return nil, err
		}
		records = append(records, rec)
	}
	return &KnowledgeBase{source: source, records: records}, nil
}

func decodeRecord(elem json.RawMessage) (DisorderRecord, *LoadError) {
	if !bytes.HasPrefix(bytes.TrimSpace(elem), []byte("{")) {
		return DisorderRecord{}, &LoadError{Err: ErrNotObject}
	}
	// encoding/json would quietly turn bad bytes into U+FFFD
	if !utf8.Valid(elem) {
		return DisorderRecord{}, &LoadError{Err: ErrInvalidUTF8}
	}

	var raw rawRecord
	if err := json.Unmarshal(elem, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return DisorderRecord{}, &LoadError{Field: typeErr.Field, Err: err}
		}
		return DisorderRecord{}, &LoadError{Err: err}
	}

	required := []struct {
		name    string
		present bool
	}{
		{"name", raw.Name != nil},
		{"desc", raw.Desc != nil},
		{"diag_criteria", raw.DiagCriteria != nil},
		{"cure_way", raw.CureWay != nil},
		{"symptom", raw.Symptom != nil},
	}
	for _, f := range required {
		if !f.present {
			return DisorderRecord{}, &LoadError{Field: f.name, Err: ErrMissingField}
		}
	}

	return NewRecord(*raw.Name, *raw.Desc, *raw.DiagCriteria, *raw.CureWay, *raw.Symptom...), nil
}
