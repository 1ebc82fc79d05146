package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/documenter-search/mcp-server/internal/config"
	"github.com/documenter-search/mcp-server/internal/docindex"
	"github.com/documenter-search/mcp-server/internal/indexing"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const batchSize = 100

// payloadSpec is one <version>=<search_index.js> argument
type payloadSpec struct {
	version string
	path    string
}

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "indexer <index-dir> <version>=<search_index.js>...",
		Short: "Build the documentation search index from search_index.js files",
		Example: "  indexer search/index stable=build/search_index.js\n" +
			"  indexer search/index v0.1.0=v0.1.0/search_index.js previews/PR40=previews/PR40/search_index.js",
		Args:         cobra.MinimumNArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, err := parseSpecs(args[1:])
			if err != nil {
				return err
			}
			return run(args[0], baseURL, specs)
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", config.DefaultBaseURL, "documentation site root used to build result URLs")
	return cmd
}

func parseSpecs(args []string) ([]payloadSpec, error) {
	specs := make([]payloadSpec, 0, len(args))
	seen := make(map[string]bool)
	for _, arg := range args {
		version, path, ok := strings.Cut(arg, "=")
		if !ok || version == "" || path == "" {
			return nil, fmt.Errorf("invalid argument %q, want <version>=<search_index.js>", arg)
		}
		if seen[version] {
			return nil, fmt.Errorf("version %q given twice", version)
		}
		seen[version] = true
		specs = append(specs, payloadSpec{version: version, path: path})
	}
	return specs, nil
}

// loadPayloads loads every payload concurrently, keeping argument order
func loadPayloads(specs []payloadSpec) ([]*docindex.Index, error) {
	indexes := make([]*docindex.Index, len(specs))

	var g errgroup.Group
	for i, spec := range specs {
		g.Go(func() error {
			idx, err := docindex.LoadFile(spec.path)
			if err != nil {
				return fmt.Errorf("version %s: %w", spec.version, err)
			}
			indexes[i] = idx
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return indexes, nil
}

func run(indexDir, baseURL string, specs []payloadSpec) error {
	log.Printf("Documentation Search Indexer v%d", indexing.IndexSchemaVersion)
	log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	indexes, err := loadPayloads(specs)
	if err != nil {
		log.Printf("Failed to load search indexes: %v", err)
		return err
	}

	versions := make([]string, len(specs))
	var docs []indexing.SearchDoc
	for i, spec := range specs {
		versions[i] = spec.version
		versionDocs := indexing.BuildDocuments(spec.version, baseURL, indexes[i])
		log.Printf("✓ %s: %d fragments, %d search documents", spec.version, indexes[i].Len(), len(versionDocs))
		docs = append(docs, versionDocs...)
	}

	if err := buildIndex(indexDir, docs); err != nil {
		log.Printf("Failed to build index: %v", err)
		return err
	}

	manifest, err := indexing.Manifest(baseURL, versions, indexes)
	if err != nil {
		return err
	}

	versionFile := filepath.Join(filepath.Dir(indexDir), ".index_version")
	versionContent := fmt.Sprintf("%d", indexing.IndexSchemaVersion)
	if err := os.WriteFile(versionFile, []byte(versionContent), 0644); err != nil {
		log.Printf("Warning: Failed to write version file: %v", err)
	} else {
		log.Printf("✓ Index schema version: v%d", indexing.IndexSchemaVersion)
	}
	manifestFile := filepath.Join(filepath.Dir(indexDir), indexing.ManifestFile)
	if err := os.WriteFile(manifestFile, []byte(manifest), 0644); err != nil {
		log.Printf("Warning: Failed to write index manifest: %v", err)
	}

	log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("✓ Indexing complete!")
	log.Printf("  Location:   %s", indexDir)
	log.Printf("  Versions:   %d", len(specs))
	log.Printf("  Documents:  %d", len(docs))
	return nil
}

// buildIndex replaces indexDir with a fresh index holding docs
func buildIndex(indexDir string, docs []indexing.SearchDoc) error {
	if err := os.RemoveAll(indexDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove old index: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(indexDir), 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	log.Printf("Creating search index: %s", indexDir)
	index, err := bleve.New(indexDir, indexing.NewIndexMapping())
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	batch := index.NewBatch()
	for i, doc := range docs {
		if err := batch.Index(doc.ID, doc); err != nil {
			index.Close()
			return fmt.Errorf("failed to add document %s to batch: %w", doc.ID, err)
		}

		if (i+1)%batchSize == 0 {
			if err := index.Batch(batch); err != nil {
				index.Close()
				return fmt.Errorf("failed to index batch: %w", err)
			}
			batch = index.NewBatch()
			log.Printf("  Indexed %d/%d documents...", i+1, len(docs))
		}
	}

	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			index.Close()
			return fmt.Errorf("failed to index final batch: %w", err)
		}
	}

	if err := index.Close(); err != nil {
		return fmt.Errorf("failed to close index: %w", err)
	}
	log.Printf("✓ Indexed %d documents successfully", len(docs))
	return nil
}
