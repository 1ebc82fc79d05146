package docindex

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// MaxPayloadBytes bounds how much LoadReader will read from a stream.
const MaxPayloadBytes = 64 << 20

var (
	utf8BOM = []byte("\xef\xbb\xbf")

	// assignmentPrefix matches `var documenterSearchIndex = ` and friends.
	assignmentPrefix = regexp.MustCompile(`^(?:(?:var|let|const)\s+)?[A-Za-z_$][\w$.]*\s*=\s*`)
)

// Load parses a search index payload: either the generator's JavaScript
// assignment or the bare {"docs": [...]} object.
func Load(raw []byte) (*Index, error) {
	body, err := unwrapAssignment(raw)
	if err != nil {
		return nil, err
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return nil, &FormatError{Path: "$", Reason: "payload is not valid JSON", Err: err}
	}

	if err := validatePayload(doc); err != nil {
		return nil, err
	}

	return fromDocument(doc)
}

// LoadReader reads a payload from r, inflating it first when it is gzip
// compressed.
func LoadReader(r io.Reader) (*Index, error) {
	br := bufio.NewReader(r)

	var src io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip payload: %w", err)
		}
		defer zr.Close()
		src = zr
	}

	raw, err := io.ReadAll(io.LimitReader(src, MaxPayloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	if len(raw) > MaxPayloadBytes {
		return nil, &FormatError{Path: "$", Reason: fmt.Sprintf("payload exceeds %d bytes", MaxPayloadBytes)}
	}

	return Load(raw)
}

// LoadFile loads the payload stored at path.
func LoadFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open search index: %w", err)
	}
	defer f.Close()

	idx, err := LoadReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return idx, nil
}

func unwrapAssignment(raw []byte) ([]byte, error) {
	body := bytes.TrimPrefix(raw, utf8BOM)
	if !utf8.Valid(body) {
		return nil, &FormatError{Path: "$", Reason: "payload is not valid UTF-8"}
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, &FormatError{Path: "$", Reason: "payload is empty"}
	}

	if body[0] != '{' && body[0] != '[' {
		loc := assignmentPrefix.FindIndex(body)
		if loc == nil {
			return nil, &FormatError{Path: "$", Reason: "payload is neither a JSON object nor a variable assignment"}
		}
		body = body[loc[1]:]
	}

	body = bytes.TrimSuffix(bytes.TrimSpace(body), []byte(";"))
	return bytes.TrimSpace(body), nil
}

// fromDocument converts a schema-validated payload into an Index.
func fromDocument(doc any) (*Index, error) {
	root, ok := doc.(map[string]any)
	if !ok {
		return nil, &FormatError{Path: "$", Reason: "payload is not an object"}
	}
	items, ok := root["docs"].([]any)
	if !ok {
		return nil, &FormatError{Path: "$.docs", Reason: "docs is not an array"}
	}

	fragments := make([]DocFragment, len(items))
	for i, item := range items {
		record, ok := item.(map[string]any)
		if !ok {
			return nil, &FormatError{Path: fmt.Sprintf("$.docs[%d]", i), Reason: "record is not an object"}
		}

		// text is optional, everything else was required by the schema
		text, _ := record["text"].(string)
		fragments[i] = DocFragment{
			Location: stringField(record, "location"),
			Page:     stringField(record, "page"),
			Title:    stringField(record, "title"),
			Text:     text,
			Category: stringField(record, "category"),
		}
	}

	return &Index{fragments: fragments}, nil
}

func stringField(record map[string]any, key string) string {
	s, _ := record[key].(string)
	return s
}
