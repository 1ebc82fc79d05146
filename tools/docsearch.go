package tools

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/documenter-search/mcp-server/internal/config"
	"github.com/documenter-search/mcp-server/internal/indexing"
	"github.com/documenter-search/mcp-server/internal/metrics"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	docsDir       = "docs"
	payloadFile   = "search_index.js"
	cacheMetaFile = "cache.meta"
	indexDir      = "search/index"
	lockFile      = "search/index.lock"
	lockTimeout   = 5 * time.Second // Max time to wait for lock
	lockRetryWait = 500 * time.Millisecond

	indexVersionFile  = "search/.index_version"
	indexManifestFile = "search/" + indexing.ManifestFile

	defaultMaxResults    = 10
	maxResultsLimit      = 20
	maxParallelDownloads = 4
	downloadTimeout      = 60 * time.Second
	batchSize            = 100
)

// serviceSettings are the parts of the configuration used by this package
type serviceSettings struct {
	baseURL    string
	sources    []config.Source
	cacheTTL   time.Duration
	maxResults int
}

var (
	dataDir  = filepath.Join(".", "data") // Data directory for payloads and the search index
	settings = serviceSettings{
		baseURL:    config.DefaultBaseURL,
		sources:    []config.Source{config.DefaultSource(config.DefaultBaseURL)},
		cacheTTL:   7 * 24 * time.Hour,
		maxResults: defaultMaxResults,
	}
	httpClient = &http.Client{Timeout: downloadTimeout}
)

// Configure points the package at the configured data directory and sources.
// It must be called before InitializeDocSearch.
func Configure(cfg *config.Config) error {
	for _, sub := range []string{docsDir, "search"} {
		if err := os.MkdirAll(filepath.Join(cfg.DataDir, sub), 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	dataDir = cfg.DataDir
	settings = serviceSettings{
		baseURL:    cfg.BaseURL,
		sources:    cfg.Sources,
		cacheTTL:   cfg.CacheTTL,
		maxResults: cfg.MaxResults,
	}
	log.Printf("✓ Data directory: %s (%d sources)", dataDir, len(cfg.Sources))
	return nil
}

// indexHolder manages concurrent access to the Bleve index and the loaded payloads
type indexHolder struct {
	// current holds the active index pointer (atomic access for lock-free reads)
	current atomic.Pointer[Index]

	// docs holds the payloads the current index was built from
	docs atomic.Pointer[docSet]

	// refreshMu prevents concurrent refresh operations
	// NOT used for searches - they are lock-free via atomic pointer
	refreshMu sync.Mutex

	// wg tracks in-flight search operations for graceful cleanup of old indexes
	wg sync.WaitGroup
}

var indexMgr = &indexHolder{}

// InitializeDocSearch loads the documentation payloads and opens the search index.
// Priority: Local payloads (from a previous refresh) > Embedded snapshot (always available)
func InitializeDocSearch() error {
	startTime := time.Now()
	log.Printf("Initializing documentation search...")

	log.Printf("Acquiring index lock...")
	lockStart := time.Now()
	if err := acquireLock(); err != nil {
		return fmt.Errorf("failed to acquire index lock: %w", err)
	}
	log.Printf("Lock acquired in %v", time.Since(lockStart).Round(time.Millisecond))

	set, err := loadDocSet()
	if err != nil {
		return err
	}
	storeDocSet(set)

	indexPath := filepath.Join(dataDir, indexDir)

	// Strategy 1: open the local index from a previous run
	if _, err := os.Stat(indexPath); err == nil {
		switch currentVersion := getIndexVersion(); {
		case currentVersion != indexing.IndexSchemaVersion:
			log.Printf("Index schema version mismatch (have: v%d, want: v%d), invalidating old index...",
				currentVersion, indexing.IndexSchemaVersion)
			removeIndex()
		case !indexBuiltFrom(set):
			log.Printf("Local index was built from other documentation (versions: %v), invalidating old index...", set.versions)
			removeIndex()
		default:
			openStart := time.Now()
			index, err := bleve.Open(indexPath)
			if err == nil {
				wrapped := NewBleveIndexWrapper(index)
				indexMgr.current.Store(&wrapped)
				count, _ := wrapped.DocCount()
				metrics.SetIndexedDocuments(count)
				elapsed := time.Since(startTime).Round(time.Millisecond)
				log.Printf("✓ Documentation search initialized (%d docs, local index v%d) in %v",
					count, indexing.IndexSchemaVersion, elapsed)

				if needsRefresh() {
					log.Printf("ℹ️  Local documentation is older than %v. Consider using refresh_documentation_index to update.", settings.cacheTTL)
				}
				return nil
			}

			log.Printf("Warning: Local index corrupted (open failed in %v), removing...", time.Since(openStart).Round(time.Millisecond))
			removeIndex()
		}
	}

	// Strategy 2: build the index from the loaded payloads
	log.Printf("No usable local index, building from %d fragments...", set.fragmentCount())
	if err := indexChunks(set); err != nil {
		return fmt.Errorf("failed to build search index: %w", err)
	}

	elapsed := time.Since(startTime).Round(time.Millisecond)
	if set.bundled {
		log.Printf("✓ Documentation search initialized (embedded snapshot) in %v", elapsed)
		log.Printf("ℹ️  Using embedded documentation (build-time). Use refresh_documentation_index to get latest docs.")
	} else {
		log.Printf("✓ Documentation search initialized (cached payloads) in %v", elapsed)
	}
	return nil
}

// storeDocSet publishes set and updates the fragment gauges
func storeDocSet(set *docSet) {
	indexMgr.docs.Store(set)
	for _, version := range set.versions {
		metrics.SetLoadedFragments(version, set.indexes[version].Len())
	}
}

// buildSearchDocs converts every loaded version into search documents
func buildSearchDocs(set *docSet) []indexing.SearchDoc {
	var docs []indexing.SearchDoc
	for _, version := range set.versions {
		docs = append(docs, indexing.BuildDocuments(version, settings.baseURL, set.indexes[version])...)
	}
	return docs
}

// initializeOnce runs InitializeDocSearch on first use unless ready reports
// that another caller already did. Calls are serialized with refreshes.
func initializeOnce(ready func() bool) error {
	indexMgr.refreshMu.Lock()
	defer indexMgr.refreshMu.Unlock()

	if ready() {
		return nil
	}
	return InitializeDocSearch()
}

func removeIndex() {
	os.RemoveAll(filepath.Join(dataDir, indexDir))
	os.Remove(filepath.Join(dataDir, indexVersionFile))
	os.Remove(filepath.Join(dataDir, indexManifestFile))
}

// indexBuiltFrom reports whether the local index manifest matches set
func indexBuiltFrom(set *docSet) bool {
	want, err := set.manifest(settings.baseURL)
	if err != nil {
		return false
	}
	have, err := os.ReadFile(filepath.Join(dataDir, indexManifestFile))
	return err == nil && string(have) == want
}

// getIndexVersion reads the current index schema version from disk
func getIndexVersion() int {
	versionPath := filepath.Join(dataDir, indexVersionFile)
	data, err := os.ReadFile(versionPath)
	if err != nil {
		return 0 // No version file = unknown format
	}

	version := 0
	fmt.Sscanf(string(data), "%d", &version)
	return version
}

// writeIndexVersion writes the current index schema version to disk
func writeIndexVersion() error {
	versionPath := filepath.Join(dataDir, indexVersionFile)
	os.MkdirAll(filepath.Dir(versionPath), 0755)

	content := fmt.Sprintf("%d", indexing.IndexSchemaVersion)
	return os.WriteFile(versionPath, []byte(content), 0644)
}

// averageTokens calculates the average token count across documents
func averageTokens(docs []indexing.SearchDoc) int {
	if len(docs) == 0 {
		return 0
	}
	total := 0
	for _, doc := range docs {
		total += doc.TokenCount
	}
	return total / len(docs)
}

// indexChunks builds a new Bleve index from set in a temp location, moves it
// into place and swaps it in for searches
func indexChunks(set *docSet) error {
	startTime := time.Now()
	docs := buildSearchDocs(set)
	manifest, err := set.manifest(settings.baseURL)
	if err != nil {
		return err
	}
	indexPath := filepath.Join(dataDir, indexDir)
	tempIndexPath := filepath.Join(dataDir, indexDir+".tmp")

	// Clean up any leftover temp index from previous crash
	os.RemoveAll(tempIndexPath)

	if err := os.MkdirAll(filepath.Dir(tempIndexPath), 0755); err != nil {
		return fmt.Errorf("failed to create temp index directory: %w", err)
	}

	log.Printf("Creating new index with %d documents (avg: %d tokens) in temp location...", len(docs), averageTokens(docs))
	newIndex, err := bleve.New(tempIndexPath, indexing.NewIndexMapping())
	if err != nil {
		return fmt.Errorf("failed to create temp index: %w", err)
	}

	indexStart := time.Now()
	batch := newIndex.NewBatch()
	for i, doc := range docs {
		if err := batch.Index(doc.ID, doc); err != nil {
			newIndex.Close()
			os.RemoveAll(tempIndexPath)
			return fmt.Errorf("failed to add document %s to batch: %w", doc.ID, err)
		}

		if batch.Size() >= batchSize {
			if err := newIndex.Batch(batch); err != nil {
				newIndex.Close()
				os.RemoveAll(tempIndexPath)
				return fmt.Errorf("failed to index batch: %w", err)
			}
			batch = newIndex.NewBatch()
			log.Printf("Indexed %d/%d documents...", i+1, len(docs))
		}
	}

	if batch.Size() > 0 {
		if err := newIndex.Batch(batch); err != nil {
			newIndex.Close()
			os.RemoveAll(tempIndexPath)
			return fmt.Errorf("failed to index final batch: %w", err)
		}
	}
	log.Printf("Indexed %d documents in %v", len(docs), time.Since(indexStart).Round(time.Millisecond))

	if err := newIndex.Close(); err != nil {
		os.RemoveAll(tempIndexPath)
		return fmt.Errorf("failed to close temp index: %w", err)
	}

	swapStart := time.Now()
	if err := os.RemoveAll(indexPath); err != nil && !os.IsNotExist(err) {
		os.RemoveAll(tempIndexPath)
		return fmt.Errorf("failed to remove old index: %w", err)
	}
	if err := os.Rename(tempIndexPath, indexPath); err != nil {
		os.RemoveAll(tempIndexPath)
		return fmt.Errorf("failed to rename temp index: %w", err)
	}
	log.Printf("Index swapped in %v", time.Since(swapStart).Round(time.Millisecond))

	finalIndex, err := bleve.Open(indexPath)
	if err != nil {
		return fmt.Errorf("failed to open new index: %w", err)
	}

	wrapped := NewBleveIndexWrapper(finalIndex)
	oldIndexPtr := indexMgr.current.Swap(&wrapped)
	metrics.SetIndexedDocuments(uint64(len(docs)))

	// Graceful cleanup of old index in background
	go func(oldPtr *Index) {
		if oldPtr == nil {
			return
		}

		waitStart := time.Now()
		indexMgr.wg.Wait()
		log.Printf("All searches completed, closing old index (waited %v)...",
			time.Since(waitStart).Round(time.Millisecond))

		old := *oldPtr
		if err := old.Close(); err != nil {
			log.Printf("Warning: Error closing old index: %v", err)
		} else {
			log.Printf("✓ Old index closed successfully")
		}
	}(oldIndexPtr)

	log.Printf("✓ Index swap completed in %v, searches now using new index",
		time.Since(startTime).Round(time.Millisecond))

	if err := writeIndexVersion(); err != nil {
		log.Printf("Warning: Failed to write index version: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, indexManifestFile), []byte(manifest), 0644); err != nil {
		log.Printf("Warning: Failed to write index manifest: %v", err)
	}

	return nil
}

// refreshDocumentationIndex downloads every source and re-indexes them.
// It reports whether a refresh happened.
func refreshDocumentationIndex(ctx context.Context, force bool) (bool, error) {
	startTime := time.Now()

	if !force && !needsRefresh() {
		log.Printf("Documentation cache is fresh, skipping refresh")
		metrics.RecordRefresh(metrics.OutcomeSkipped)
		return false, nil
	}

	// Serialize refresh operations (prevent concurrent refreshes)
	indexMgr.refreshMu.Lock()
	defer indexMgr.refreshMu.Unlock()

	// Another goroutine may have already refreshed while we were waiting
	if !force && !needsRefresh() {
		log.Printf("Documentation was refreshed by another goroutine, skipping")
		metrics.RecordRefresh(metrics.OutcomeSkipped)
		return false, nil
	}

	updated, err := refreshLocked(ctx, force)
	if err != nil {
		metrics.RecordRefresh(metrics.OutcomeError)
		return false, err
	}
	metrics.RecordRefresh(metrics.OutcomeOK)

	log.Printf("✓ Documentation refresh completed in %v", time.Since(startTime).Round(time.Millisecond))
	return updated, nil
}

func refreshLocked(ctx context.Context, force bool) (bool, error) {
	log.Printf("Starting documentation refresh (force=%v, %d sources)...", force, len(settings.sources))

	// Inter-process lock is released by CloseDocSearch() when the process exits
	if err := acquireLock(); err != nil {
		return false, fmt.Errorf("failed to acquire lock for refresh: %w", err)
	}

	downloadStart := time.Now()
	fetched, err := fetchSources(ctx, settings.sources)
	if err != nil {
		return false, fmt.Errorf("download failed: %w", err)
	}
	log.Printf("Download completed in %v", time.Since(downloadStart).Round(time.Millisecond))

	set := newDocSet(fetched)
	if err := indexChunks(set); err != nil {
		return false, fmt.Errorf("indexing failed: %w", err)
	}
	storeDocSet(set)

	if err := writeSources(fetched); err != nil {
		return true, fmt.Errorf("failed to cache search indexes: %w", err)
	}
	return true, nil
}

// RefreshDocumentationIndexInput defines input for refresh_documentation_index tool
type RefreshDocumentationIndexInput struct {
	Force bool `json:"force,omitempty" jsonschema:"Force re-download and re-indexing (optional, defaults to false)"`
}

// RefreshDocumentationIndexOutput defines output for refresh_documentation_index tool
type RefreshDocumentationIndexOutput struct {
	Updated          bool      `json:"updated"`
	LastUpdate       time.Time `json:"last_update"`
	Versions         []string  `json:"versions"`
	FragmentsIndexed int       `json:"fragments_indexed"`
	Message          string    `json:"message"`
}

// RefreshDocumentationIndex downloads the configured search indexes and rebuilds the search index
func RefreshDocumentationIndex(ctx context.Context, req *mcp.CallToolRequest, input RefreshDocumentationIndexInput) (*mcp.CallToolResult, RefreshDocumentationIndexOutput, error) {
	output := RefreshDocumentationIndexOutput{Versions: []string{}}

	updated, err := refreshDocumentationIndex(ctx, input.Force)
	if err != nil {
		return nil, output, fmt.Errorf("refresh failed: %w", err)
	}

	set := indexMgr.docs.Load()
	output.Updated = updated
	output.LastUpdate = lastUpdate()
	output.FragmentsIndexed = set.fragmentCount()
	if set != nil {
		output.Versions = set.versions
	}

	if updated {
		output.Message = fmt.Sprintf("Documentation refreshed successfully, %d fragments indexed", output.FragmentsIndexed)
	} else {
		output.Message = fmt.Sprintf("Cache is fresh (last updated: %s)", output.LastUpdate.Format(time.RFC3339))
	}
	return nil, output, nil
}

// RegisterDocSearchTools registers documentation search tools and resources
func RegisterDocSearchTools(server *mcp.Server) error {
	if err := InitializeDocSearch(); err != nil {
		log.Printf("Warning: Documentation search initialization failed: %v", err)
		log.Printf("Documentation search will attempt to initialize on first use")
	}

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "search_documentation",
			Description: "Full-text search over the documentation search index (pages, sections, types and methods). Returns the best matching fragments with links, grouped by page.",
		},
		SearchDocumentation,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "refresh_documentation_index",
			Description: "Re-download the documentation search indexes and rebuild the search index (auto-skipped while the cache is fresh unless force is set)",
		},
		RefreshDocumentationIndex,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "list_documentation_pages",
			Description: "List the pages of a documentation version in reading order with their location and number of entries",
		},
		ListDocumentationPages,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "get_documentation_page",
			Description: "Return every documentation entry at a location, e.g. \"api/\" for a whole page or \"api/#MyPackage.func\" for one docstring",
		},
		GetDocumentationPage,
	)

	registerSearchIndexResources(server)
	return nil
}

// CloseDocSearch closes the documentation search index and releases the lock
func CloseDocSearch() error {
	var closeErr error

	// Atomically swap index to nil (prevents new searches)
	if indexPtr := indexMgr.current.Swap(nil); indexPtr != nil {
		log.Printf("Waiting for in-flight searches to complete before closing...")
		indexMgr.wg.Wait()

		index := *indexPtr
		closeErr = index.Close()
		if closeErr != nil {
			log.Printf("Error closing doc index: %v", closeErr)
		} else {
			log.Printf("✓ Doc index closed successfully")
		}
	}

	// Always attempt to release inter-process lock, even if close failed
	if err := releaseLock(); err != nil {
		log.Printf("Error releasing lock: %v", err)
		if closeErr == nil {
			closeErr = err
		}
	}

	return closeErr
}
