package docindex

import (
	"iter"
	"slices"
)

// Index is the ordered collection of fragments of one documentation build.
// It is immutable after construction and safe for concurrent readers.
type Index struct {
	fragments []DocFragment
}

// Page groups the fragments that share a page name.
type Page struct {
	Name string `json:"name"`
	// Location is the path of the first fragment seen for the page.
	Location  string        `json:"location"`
	Fragments []DocFragment `json:"fragments"`
}

// New builds an index from fragments in traversal order. The slice is copied.
func New(fragments []DocFragment) *Index {
	return &Index{fragments: slices.Clone(fragments)}
}

// Len returns the number of fragments.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.fragments)
}

// At returns the i-th fragment in traversal order.
func (idx *Index) At(i int) DocFragment {
	return idx.fragments[i]
}

// All yields the fragments in traversal order. The sequence can be ranged
// over any number of times.
func (idx *Index) All() iter.Seq[DocFragment] {
	return func(yield func(DocFragment) bool) {
		if idx == nil {
			return
		}
		for _, f := range idx.fragments {
			if !yield(f) {
				return
			}
		}
	}
}

// Fragments returns a copy of all fragments.
func (idx *Index) Fragments() []DocFragment {
	if idx == nil {
		return nil
	}
	return slices.Clone(idx.fragments)
}

// Pages groups fragments by page name. Pages appear in the order they are
// first seen; fragments keep traversal order within a page.
func (idx *Index) Pages() []Page {
	var pages []Page
	positions := make(map[string]int)
	for f := range idx.All() {
		pos, ok := positions[f.Page]
		if !ok {
			pos = len(pages)
			positions[f.Page] = pos
			pages = append(pages, Page{Name: f.Page, Location: f.Path()})
		}
		pages[pos].Fragments = append(pages[pos].Fragments, f)
	}
	return pages
}

// ByLocation returns the fragments addressed by location. A location without
// an anchor also matches every anchored fragment of that page.
func (idx *Index) ByLocation(location string) []DocFragment {
	path, anchor := SplitLocation(location)

	var out []DocFragment
	for f := range idx.All() {
		if f.Location == location || (anchor == "" && f.Path() == path) {
			out = append(out, f)
		}
	}
	return out
}

// Categories counts fragments per category.
func (idx *Index) Categories() map[string]int {
	counts := make(map[string]int)
	for f := range idx.All() {
		counts[f.Category]++
	}
	return counts
}

// Equal reports whether both indexes hold the same fragments in the same order.
func (idx *Index) Equal(other *Index) bool {
	return slices.Equal(idx.Fragments(), other.Fragments())
}
