package indexing

// Chunking strategy constants
const (
	// TargetChunkTokens is the preferred size of a subdivided part (~2000 chars)
	TargetChunkTokens = 500

	// MaxChunkTokens is the fragment size above which text is subdivided (~3200 chars)
	MaxChunkTokens = 800

	// OverlapTokens is the overlap between consecutive parts (~400 chars)
	OverlapTokens = 100

	// CharsPerToken is the approximation for token estimation
	CharsPerToken = 4

	// MaxKeywords caps the keywords stored per document
	MaxKeywords = 10

	// IndexSchemaVersion increments when the document shape or mapping changes
	// v1: one document per fragment, v2: subdivided fragments with version field
	IndexSchemaVersion = 2
)
