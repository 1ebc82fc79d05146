package tools

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/documenter-search/mcp-server/internal/docindex"
	"github.com/documenter-search/mcp-server/internal/indexing"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	resourceScheme  = "docs://"
	resourceSuffix  = "/" + payloadFile
	payloadMIMEType = "text/javascript"
)

// PageSummary describes one page of a documentation version
type PageSummary struct {
	Name       string `json:"name"`
	Location   string `json:"location"`
	URL        string `json:"url"`
	Fragments  int    `json:"fragments"`
	APIEntries int    `json:"api_entries"`
}

// ListDocumentationPagesInput defines input for list_documentation_pages tool
type ListDocumentationPagesInput struct {
	Version string `json:"version,omitempty" jsonschema:"Documentation version (optional, defaults to the first configured version)"`
}

// ListDocumentationPagesOutput defines output for list_documentation_pages tool
type ListDocumentationPagesOutput struct {
	Version  string        `json:"version"`
	Versions []string      `json:"versions"`
	Bundled  bool          `json:"bundled"` // served from the embedded snapshot
	Pages    []PageSummary `json:"pages"`
}

// GetDocumentationPageInput defines input for get_documentation_page tool
type GetDocumentationPageInput struct {
	Location string `json:"location" jsonschema:"Location of a page (\"api/\") or of one entry (\"api/#MyPackage.func\")"`
	Version  string `json:"version,omitempty" jsonschema:"Documentation version (optional, defaults to the first configured version)"`
}

// GetDocumentationPageOutput defines output for get_documentation_page tool
type GetDocumentationPageOutput struct {
	Version   string                 `json:"version"`
	Location  string                 `json:"location"`
	URL       string                 `json:"url"`
	Fragments []docindex.DocFragment `json:"fragments"`
}

// currentDocSet returns the loaded payloads, initializing on first use
func currentDocSet() (*docSet, error) {
	if set := indexMgr.docs.Load(); set != nil {
		return set, nil
	}
	log.Printf("Documentation not loaded, initializing now...")
	if err := initializeOnce(func() bool { return indexMgr.docs.Load() != nil }); err != nil {
		return nil, fmt.Errorf("failed to initialize documentation index: %w", err)
	}
	return indexMgr.docs.Load(), nil
}

func listDocumentationPages(version string) (ListDocumentationPagesOutput, error) {
	set, err := currentDocSet()
	if err != nil {
		return ListDocumentationPagesOutput{}, err
	}
	idx, version, err := set.get(version)
	if err != nil {
		return ListDocumentationPagesOutput{}, err
	}

	pages := idx.Pages()
	output := ListDocumentationPagesOutput{
		Version:  version,
		Versions: set.versions,
		Bundled:  set.bundled,
		Pages:    make([]PageSummary, 0, len(pages)),
	}
	for _, page := range pages {
		api := 0
		for _, f := range page.Fragments {
			if f.IsAPI() {
				api++
			}
		}
		output.Pages = append(output.Pages, PageSummary{
			Name:       page.Name,
			Location:   page.Location,
			URL:        indexing.BuildURL(settings.baseURL, version, page.Location),
			Fragments:  len(page.Fragments),
			APIEntries: api,
		})
	}
	return output, nil
}

func getDocumentationPage(location, version string) (GetDocumentationPageOutput, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return GetDocumentationPageOutput{}, fmt.Errorf("location must not be empty")
	}

	set, err := currentDocSet()
	if err != nil {
		return GetDocumentationPageOutput{}, err
	}
	idx, version, err := set.get(version)
	if err != nil {
		return GetDocumentationPageOutput{}, err
	}

	fragments := idx.ByLocation(location)
	if len(fragments) == 0 {
		return GetDocumentationPageOutput{}, fmt.Errorf("no documentation at location %q in version %s", location, version)
	}
	return GetDocumentationPageOutput{
		Version:   version,
		Location:  location,
		URL:       indexing.BuildURL(settings.baseURL, version, location),
		Fragments: fragments,
	}, nil
}

// ListDocumentationPages lists the pages of one documentation version
func ListDocumentationPages(ctx context.Context, req *mcp.CallToolRequest, input ListDocumentationPagesInput) (*mcp.CallToolResult, ListDocumentationPagesOutput, error) {
	output, err := listDocumentationPages(input.Version)
	if err != nil {
		return nil, ListDocumentationPagesOutput{}, err
	}
	return nil, output, nil
}

// GetDocumentationPage returns the fragments stored at a location
func GetDocumentationPage(ctx context.Context, req *mcp.CallToolRequest, input GetDocumentationPageInput) (*mcp.CallToolResult, GetDocumentationPageOutput, error) {
	output, err := getDocumentationPage(input.Location, input.Version)
	if err != nil {
		return nil, GetDocumentationPageOutput{}, err
	}
	return nil, output, nil
}

func searchIndexURI(version string) string {
	return resourceScheme + version + resourceSuffix
}

// registerSearchIndexResources exposes one docs://<version>/search_index.js
// resource per configured source
func registerSearchIndexResources(server *mcp.Server) {
	for _, src := range settings.sources {
		server.AddResource(&mcp.Resource{
			URI:         searchIndexURI(src.Version),
			Name:        "search_index-" + src.Version,
			Title:       "Search index (" + src.Version + ")",
			Description: "Documentation search index of version " + src.Version + ", as loaded by the server",
			MIMEType:    payloadMIMEType,
		}, readSearchIndexResource)
	}
	log.Printf("✓ Search index resources registered: %d", len(settings.sources))
}

// readSearchIndexResource serializes the loaded payload of the requested version
func readSearchIndexResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	version, ok := strings.CutPrefix(uri, resourceScheme)
	if ok {
		version, ok = strings.CutSuffix(version, resourceSuffix)
	}
	if !ok || version == "" {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	set, err := currentDocSet()
	if err != nil {
		return nil, err
	}
	idx, ok := set.indexes[version]
	if !ok {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	raw, err := docindex.Marshal(idx)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize search index: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: payloadMIMEType,
			Text:     string(raw),
		}},
	}, nil
}

// Service exposes documentation search to transports other than MCP tools
type Service struct{}

// Search runs a documentation search
func (Service) Search(ctx context.Context, input SearchDocumentationInput) (SearchDocumentationOutput, error) {
	return searchDocumentation(ctx, input)
}

// Pages lists the pages of a documentation version
func (Service) Pages(ctx context.Context, version string) (ListDocumentationPagesOutput, error) {
	return listDocumentationPages(version)
}
