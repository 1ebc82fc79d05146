package tools

import (
	"embed"
)

// Embed a search index snapshot into the binary so documentation search
// works before the first download and without network access.
//
//go:embed data/search_index.js
var embeddedFS embed.FS

// embeddedPayloadPath is the location of the bundled search index in embeddedFS
const embeddedPayloadPath = "data/search_index.js"

// embeddedDataProvider implements DataProvider using embed.FS.
type embeddedDataProvider struct {
	fs embed.FS
}

// NewEmbeddedDataProvider creates a production DataProvider that uses embedded files.
func NewEmbeddedDataProvider() DataProvider {
	return &embeddedDataProvider{fs: embeddedFS}
}

// ReadFile reads the named file from the embedded filesystem.
func (p *embeddedDataProvider) ReadFile(name string) ([]byte, error) {
	return p.fs.ReadFile(name)
}

// Default provider used by package-level functions
var defaultDataProvider DataProvider = NewEmbeddedDataProvider()
