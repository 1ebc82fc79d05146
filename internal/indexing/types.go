package indexing

// SearchDoc is one document of the bleve index, derived from a documentation
// fragment (or a part of one when its text is long).
type SearchDoc struct {
	ID         string   `json:"id"`
	Version    string   `json:"version"`  // Documentation build the fragment belongs to
	Ordinal    int      `json:"ordinal"`  // Position of the fragment in traversal order
	Location   string   `json:"location"` // e.g. "api/#ImplicitDifferentiation.ImplicitFunction"
	Path       string   `json:"path"`     // Location without anchor
	Anchor     string   `json:"anchor,omitempty"`
	Page       string   `json:"page"`
	Title      string   `json:"title"`
	Category   string   `json:"category"`
	Text       string   `json:"text"`
	URL        string   `json:"url,omitempty"`
	Breadcrumb string   `json:"breadcrumb,omitempty"` // "Page > Title"
	Keywords   []string `json:"keywords,omitempty"`
	TokenCount int      `json:"token_count,omitempty"`
	Part       int      `json:"part,omitempty"` // 1-based part number for subdivided text
}
