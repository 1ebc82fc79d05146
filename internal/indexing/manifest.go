package indexing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/documenter-search/mcp-server/internal/docindex"
)

// ManifestFile is stored next to the index directory, beside .index_version
const ManifestFile = ".index_sources"

// Manifest identifies the payloads an index was built from: the base URL
// used for result links, then one "<version> <fragments> <sha256>" line per
// version in index order. Two indexes with equal manifests hold the same
// documents.
func Manifest(baseURL string, versions []string, indexes []*docindex.Index) (string, error) {
	if len(versions) != len(indexes) {
		return "", fmt.Errorf("manifest: %d versions for %d indexes", len(versions), len(indexes))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "base_url %s\n", baseURL)
	for i, version := range versions {
		raw, err := docindex.Marshal(indexes[i])
		if err != nil {
			return "", fmt.Errorf("manifest: version %s: %w", version, err)
		}
		sum := sha256.Sum256(raw)
		fmt.Fprintf(&sb, "%s %d %s\n", version, indexes[i].Len(), hex.EncodeToString(sum[:]))
	}
	return sb.String(), nil
}
