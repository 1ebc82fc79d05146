package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/documenter-search/mcp-server/internal/config"
	"github.com/documenter-search/mcp-server/internal/docindex"
	"github.com/documenter-search/mcp-server/internal/indexing"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownVersion is returned for a documentation version that is not loaded
var ErrUnknownVersion = errors.New("unknown documentation version")

// docSet is the in-memory view of every loaded documentation build.
// It is replaced wholesale on refresh, never modified.
type docSet struct {
	versions []string                   // configured order
	indexes  map[string]*docindex.Index // by version
	bundled  bool                       // loaded from the embedded snapshot
}

// get returns the index of version, or of the first version when version is empty
func (d *docSet) get(version string) (*docindex.Index, string, error) {
	if d == nil || len(d.versions) == 0 {
		return nil, "", fmt.Errorf("documentation is not loaded")
	}
	if version == "" {
		version = d.versions[0]
	}
	idx, ok := d.indexes[version]
	if !ok {
		return nil, version, fmt.Errorf("%w %q (available: %v)", ErrUnknownVersion, version, d.versions)
	}
	return idx, version, nil
}

// fragmentCount returns the number of fragments across all versions
func (d *docSet) fragmentCount() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, idx := range d.indexes {
		n += idx.Len()
	}
	return n
}

// manifest describes the payloads of d for the index manifest file
func (d *docSet) manifest(baseURL string) (string, error) {
	indexes := make([]*docindex.Index, len(d.versions))
	for i, version := range d.versions {
		indexes[i] = d.indexes[version]
	}
	return indexing.Manifest(baseURL, d.versions, indexes)
}

// fetchedSource is one downloaded and validated payload
type fetchedSource struct {
	source config.Source
	raw    []byte
	index  *docindex.Index
}

func sourceDir(version string) string {
	return filepath.Join(dataDir, docsDir, filepath.FromSlash(version))
}

func payloadPath(version string) string {
	return filepath.Join(sourceDir(version), payloadFile)
}

func cacheMetaPath(version string) string {
	return filepath.Join(sourceDir(version), cacheMetaFile)
}

// needsRefresh reports whether any configured source is missing from the
// cache or older than the cache TTL
func needsRefresh() bool {
	for _, src := range settings.sources {
		info, err := os.Stat(cacheMetaPath(src.Version))
		if err != nil {
			return true
		}
		if time.Since(info.ModTime()) > settings.cacheTTL {
			return true
		}
	}
	return false
}

// lastUpdate returns the oldest cache time across sources, zero if any is missing
func lastUpdate() time.Time {
	var oldest time.Time
	for _, src := range settings.sources {
		info, err := os.Stat(cacheMetaPath(src.Version))
		if err != nil {
			return time.Time{}
		}
		if oldest.IsZero() || info.ModTime().Before(oldest) {
			oldest = info.ModTime()
		}
	}
	return oldest
}

// loadCachedDocSet loads every configured source from the local cache
func loadCachedDocSet() (*docSet, error) {
	set := &docSet{indexes: make(map[string]*docindex.Index, len(settings.sources))}
	for _, src := range settings.sources {
		idx, err := docindex.LoadFile(payloadPath(src.Version))
		if err != nil {
			return nil, fmt.Errorf("version %s: %w", src.Version, err)
		}
		set.versions = append(set.versions, src.Version)
		set.indexes[src.Version] = idx
	}
	return set, nil
}

// loadEmbeddedDocSet loads the bundled snapshot, served under the first
// configured version until the first refresh
func loadEmbeddedDocSet() (*docSet, error) {
	raw, err := defaultDataProvider.ReadFile(embeddedPayloadPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded search index: %w", err)
	}
	idx, err := docindex.Load(raw)
	if err != nil {
		return nil, fmt.Errorf("embedded search index: %w", err)
	}

	version := config.DefaultSource(settings.baseURL).Version
	if len(settings.sources) > 0 {
		version = settings.sources[0].Version
	}
	return &docSet{
		versions: []string{version},
		indexes:  map[string]*docindex.Index{version: idx},
		bundled:  true,
	}, nil
}

// loadDocSet prefers the local cache and falls back to the embedded snapshot
func loadDocSet() (*docSet, error) {
	set, err := loadCachedDocSet()
	if err == nil {
		return set, nil
	}

	var formatErr *docindex.FormatError
	if errors.As(err, &formatErr) {
		log.Printf("Warning: Cached search index is invalid, using embedded snapshot: %v", err)
	} else if !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: Could not load cached search index, using embedded snapshot: %v", err)
	}
	return loadEmbeddedDocSet()
}

// fetchSources downloads and validates every source concurrently. Any failure
// cancels the remaining downloads and nothing is returned.
func fetchSources(ctx context.Context, sources []config.Source) ([]fetchedSource, error) {
	fetched := make([]fetchedSource, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelDownloads)
	for i, src := range sources {
		g.Go(func() error {
			f, err := fetchSource(ctx, src)
			if err != nil {
				return fmt.Errorf("version %s: %w", src.Version, err)
			}
			fetched[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fetched, nil
}

// fetchSource downloads one search_index.js and parses it
func fetchSource(ctx context.Context, src config.Source) (fetchedSource, error) {
	log.Printf("Downloading search index from %s", src.URL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return fetchedSource{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fetchedSource{}, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fetchedSource{}, fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, docindex.MaxPayloadBytes+1))
	if err != nil {
		return fetchedSource{}, fmt.Errorf("failed to read response: %w", err)
	}

	idx, err := docindex.LoadReader(bytes.NewReader(raw))
	if err != nil {
		return fetchedSource{}, err
	}

	return fetchedSource{source: src, raw: raw, index: idx}, nil
}

// writeSources stores downloaded payloads and their cache metadata
func writeSources(fetched []fetchedSource) error {
	now := time.Now()
	for _, f := range fetched {
		dir := sourceDir(f.source.Version)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create docs directory: %w", err)
		}

		// write then rename, a reader never sees a partial payload
		tmp := payloadPath(f.source.Version) + ".tmp"
		if err := os.WriteFile(tmp, f.raw, 0644); err != nil {
			return fmt.Errorf("failed to write search index: %w", err)
		}
		if err := os.Rename(tmp, payloadPath(f.source.Version)); err != nil {
			os.Remove(tmp)
			return fmt.Errorf("failed to store search index: %w", err)
		}

		meta := fmt.Sprintf("last_update: %s\nurl: %s\nfragments: %d\n",
			now.Format(time.RFC3339), f.source.URL, f.index.Len())
		if err := os.WriteFile(cacheMetaPath(f.source.Version), []byte(meta), 0644); err != nil {
			return fmt.Errorf("failed to write meta file: %w", err)
		}
	}
	return nil
}

// newDocSet builds the in-memory view of freshly fetched sources
func newDocSet(fetched []fetchedSource) *docSet {
	set := &docSet{indexes: make(map[string]*docindex.Index, len(fetched))}
	for _, f := range fetched {
		set.versions = append(set.versions, f.source.Version)
		set.indexes[f.source.Version] = f.index
	}
	return set
}
