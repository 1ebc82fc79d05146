package docindex

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatError reports a payload that does not have the shape of a search
// index. It is the only error kind returned by Load.
type FormatError struct {
	// Path is the JSON path of the offending value, "$" for the payload itself.
	Path   string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Path == "" || e.Path == "$" {
		return "docindex: invalid search index: " + e.Reason
	}
	return fmt.Sprintf("docindex: invalid search index at %s: %s", e.Path, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// jsonPath renders an instance location such as ["docs", "3", "page"] as $.docs[3].page
func jsonPath(location []string) string {
	var sb strings.Builder
	sb.WriteString("$")
	for _, token := range location {
		if _, err := strconv.Atoi(token); err == nil {
			sb.WriteString("[" + token + "]")
			continue
		}
		sb.WriteString("." + token)
	}
	return sb.String()
}
