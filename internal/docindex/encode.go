package docindex

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// VariableName is the global the generator assigns the payload to.
const VariableName = "documenterSearchIndex"

// Marshal serializes idx in the generator's wire format.
func Marshal(idx *Index) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := idx.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo writes the payload as `var documenterSearchIndex = {"docs": [...]}`.
func (idx *Index) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteString("var " + VariableName + " = {\"docs\":\n[")
	i := 0
	for f := range idx.All() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(f); err != nil {
			return 0, fmt.Errorf("failed to encode fragment %d: %w", i, err)
		}
		// Encoder terminates each value with a newline
		buf.Truncate(buf.Len() - 1)
		i++
	}
	buf.WriteString("]\n}\n")

	return buf.WriteTo(w)
}
