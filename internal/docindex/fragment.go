// Package docindex loads the search-index payloads that static documentation
// generators emit next to a built site (search_index.js) and exposes them as
// an ordered, read-only sequence of fragments.
package docindex

import "strings"

// Fragment categories emitted by the documentation generator. The set is open:
// payloads may carry other categories and those load unchanged.
const (
	CategoryPage    = "page"
	CategorySection = "section"
	CategoryType    = "type"
	CategoryMethod  = "method"
)

// DocFragment is one indexed unit of a documentation site: a page body
// paragraph, a heading or an API docstring.
type DocFragment struct {
	Location string `json:"location"`
	Page     string `json:"page"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	Category string `json:"category"`
}

// Path returns the page part of the location, without the anchor.
func (f DocFragment) Path() string {
	path, _ := SplitLocation(f.Location)
	return path
}

// Anchor returns the in-page anchor of the location, or "" for page bodies.
func (f DocFragment) Anchor() string {
	_, anchor := SplitLocation(f.Location)
	return anchor
}

// IsAPI reports whether the fragment documents a code symbol.
func (f DocFragment) IsAPI() bool {
	return f.Category == CategoryType || f.Category == CategoryMethod
}

// SplitLocation splits "api/#Foo" into "api/" and "Foo".
func SplitLocation(location string) (path, anchor string) {
	path, anchor, _ = strings.Cut(location, "#")
	return path, anchor
}
