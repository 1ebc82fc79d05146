package tools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/documenter-search/mcp-server/internal/docindex"
	"github.com/documenter-search/mcp-server/internal/metrics"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ErrEmptyQuery is returned when a search has no query text
var ErrEmptyQuery = errors.New("query must not be empty")

// searchFields are the stored fields decoded from every hit
var searchFields = []string{"version", "ordinal", "location", "page", "title", "category", "text", "url", "breadcrumb", "part"}

// SearchResult is one matching fragment with its score
type SearchResult struct {
	Fragment   docindex.DocFragment `json:"fragment"`
	Version    string               `json:"version"`
	URL        string               `json:"url"`
	Breadcrumb string               `json:"breadcrumb"`
	Part       int                  `json:"part,omitempty"` // matched part of a long fragment
	Score      float64              `json:"score"`
}

// PageHits groups the results that belong to one page
type PageHits struct {
	Version  string  `json:"version"`
	Page     string  `json:"page"`
	Hits     int     `json:"hits"`
	TopScore float64 `json:"top_score"`
}

// SearchDocumentationInput defines input for search_documentation tool
type SearchDocumentationInput struct {
	Query      string `json:"query" jsonschema:"Search query for documentation"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Maximum number of results (optional, defaults to 10, at most 20)"`
	Category   string `json:"category,omitempty" jsonschema:"Only return entries of this category: page, section, type or method (optional)"`
	Version    string `json:"version,omitempty" jsonschema:"Only search this documentation version (optional)"`
}

// SearchDocumentationOutput defines output for search_documentation tool
type SearchDocumentationOutput struct {
	Results   []SearchResult `json:"results"`
	Pages     []PageHits     `json:"pages"`
	Query     string         `json:"query"`
	TotalHits int            `json:"total_hits"`
}

// buildQuery matches the query text against the prose fields, optionally
// restricted to a category and a version
func buildQuery(input SearchDocumentationInput) (query.Query, error) {
	text := strings.TrimSpace(input.Query)
	if text == "" {
		return nil, ErrEmptyQuery
	}

	match := func(field string, boost float64) query.Query {
		q := bleve.NewMatchQuery(text)
		q.SetField(field)
		q.SetBoost(boost)
		return q
	}
	textQuery := bleve.NewDisjunctionQuery(
		match("title", 3),
		match("text", 1),
		match("keywords", 1.5),
		match("page", 1),
	)

	if input.Category == "" && input.Version == "" {
		return textQuery, nil
	}

	conj := bleve.NewConjunctionQuery(textQuery)
	if input.Category != "" {
		q := bleve.NewTermQuery(input.Category)
		q.SetField("category")
		conj.AddQuery(q)
	}
	if input.Version != "" {
		q := bleve.NewTermQuery(input.Version)
		q.SetField("version")
		conj.AddQuery(q)
	}
	return conj, nil
}

// clampResults applies the default and upper bound to a requested result count
func clampResults(n int) int {
	if n <= 0 {
		n = settings.maxResults
	}
	if n <= 0 {
		n = defaultMaxResults
	}
	return min(n, maxResultsLimit)
}

// searchDocumentation runs a search against the current index
func searchDocumentation(ctx context.Context, input SearchDocumentationInput) (output SearchDocumentationOutput, err error) {
	started := time.Now()
	defer func() { metrics.ObserveSearch(started, uint64(output.TotalHits), err) }()

	q, err := buildQuery(input)
	if err != nil {
		return SearchDocumentationOutput{}, err
	}

	// Track in-flight searches for graceful cleanup (MUST be before Load)
	indexMgr.wg.Add(1)
	defer indexMgr.wg.Done()

	indexPtr := indexMgr.current.Load()
	if indexPtr == nil {
		log.Printf("Doc index not initialized, initializing now...")
		err := initializeOnce(func() bool { return indexMgr.current.Load() != nil })
		if err != nil {
			return SearchDocumentationOutput{}, fmt.Errorf("failed to initialize documentation index: %w", err)
		}
		indexPtr = indexMgr.current.Load()
		if indexPtr == nil {
			return SearchDocumentationOutput{}, fmt.Errorf("index still nil after initialization")
		}
	}
	index := *indexPtr

	set := indexMgr.docs.Load()
	if input.Version != "" {
		if _, _, err := set.get(input.Version); err != nil {
			return SearchDocumentationOutput{}, err
		}
	}

	req := bleve.NewSearchRequest(q)
	req.Size = clampResults(input.MaxResults)
	req.Fields = searchFields

	res, err := index.Search(ctx, req)
	if err != nil {
		return SearchDocumentationOutput{}, fmt.Errorf("search failed: %w", err)
	}

	results := make([]SearchResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		results = append(results, decodeHit(hit, set))
	}

	return SearchDocumentationOutput{
		Results:   results,
		Pages:     groupByPage(results),
		Query:     input.Query,
		TotalHits: int(res.Total),
	}, nil
}

// decodeHit rebuilds a result from stored fields. The full fragment comes
// from the loaded payload when it is available, since long fragments are
// indexed in parts.
func decodeHit(hit *search.DocumentMatch, set *docSet) SearchResult {
	str := func(name string) string {
		s, _ := hit.Fields[name].(string)
		return s
	}
	num := func(name string) int {
		f, _ := hit.Fields[name].(float64)
		return int(f)
	}

	result := SearchResult{
		Version:    str("version"),
		URL:        str("url"),
		Breadcrumb: str("breadcrumb"),
		Part:       num("part"),
		Score:      hit.Score,
		Fragment: docindex.DocFragment{
			Location: str("location"),
			Page:     str("page"),
			Title:    str("title"),
			Text:     str("text"),
			Category: str("category"),
		},
	}

	if set != nil {
		ordinal := num("ordinal")
		if idx, ok := set.indexes[result.Version]; ok && ordinal >= 0 && ordinal < idx.Len() {
			if f := idx.At(ordinal); f.Location == result.Fragment.Location {
				result.Fragment = f
			}
		}
	}
	return result
}

// groupByPage groups results by version and page in order of first appearance
func groupByPage(results []SearchResult) []PageHits {
	type key struct{ version, page string }

	pages := []PageHits{}
	pos := make(map[key]int)
	for _, r := range results {
		k := key{r.Version, r.Fragment.Page}
		i, ok := pos[k]
		if !ok {
			i = len(pages)
			pos[k] = i
			pages = append(pages, PageHits{Version: r.Version, Page: r.Fragment.Page})
		}
		pages[i].Hits++
		pages[i].TopScore = max(pages[i].TopScore, r.Score)
	}
	return pages
}

// SearchDocumentation searches the documentation search index
func SearchDocumentation(ctx context.Context, req *mcp.CallToolRequest, input SearchDocumentationInput) (*mcp.CallToolResult, SearchDocumentationOutput, error) {
	output, err := searchDocumentation(ctx, input)
	if err != nil {
		return nil, SearchDocumentationOutput{}, err
	}
	return nil, output, nil
}
