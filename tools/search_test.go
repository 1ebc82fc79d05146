package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/documenter-search/mcp-server/internal/docindex"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name    string
		input   SearchDocumentationInput
		wantErr error
		want    string // query type
	}{
		{"empty", SearchDocumentationInput{Query: ""}, ErrEmptyQuery, ""},
		{"blank", SearchDocumentationInput{Query: "   "}, ErrEmptyQuery, ""},
		{"text only", SearchDocumentationInput{Query: "implicit"}, nil, "disjunction"},
		{"category filter", SearchDocumentationInput{Query: "implicit", Category: "type"}, nil, "conjunction"},
		{"version filter", SearchDocumentationInput{Query: "implicit", Version: "stable"}, nil, "conjunction"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := buildQuery(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("buildQuery() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}

			switch q := q.(type) {
			case *query.DisjunctionQuery:
				if tt.want != "disjunction" {
					t.Errorf("Got disjunction, want %s", tt.want)
				}
				if len(q.Disjuncts) != 4 {
					t.Errorf("Expected 4 field queries, got %d", len(q.Disjuncts))
				}
			case *query.ConjunctionQuery:
				if tt.want != "conjunction" {
					t.Errorf("Got conjunction, want %s", tt.want)
				}
				if len(q.Conjuncts) != 2 {
					t.Errorf("Expected text query plus one filter, got %d", len(q.Conjuncts))
				}
			default:
				t.Errorf("Unexpected query type %T", q)
			}
		})
	}
}

func TestClampResults(t *testing.T) {
	origSettings := settings
	defer func() { settings = origSettings }()
	settings.maxResults = 7

	tests := []struct {
		requested int
		want      int
	}{
		{0, 7},
		{-3, 7},
		{5, 5},
		{20, 20},
		{50, 20},
	}

	for _, tt := range tests {
		if got := clampResults(tt.requested); got != tt.want {
			t.Errorf("clampResults(%d) = %d, want %d", tt.requested, got, tt.want)
		}
	}

	settings.maxResults = 0
	if got := clampResults(0); got != defaultMaxResults {
		t.Errorf("clampResults(0) without configured default = %d, want %d", got, defaultMaxResults)
	}
}

func TestSearchDocumentation_WithMockIndex(t *testing.T) {
	setupDocSearch(t)

	fragments := []docindex.DocFragment{
		{Location: "#Home", Page: "Home", Title: "Home", Text: "Full home text", Category: "page"},
		{Location: "api/#Foo", Page: "API", Title: "Foo", Text: "Full Foo docstring", Category: "type"},
		{Location: "api/#bar", Page: "API", Title: "bar", Text: "Full bar docstring", Category: "method"},
	}
	indexMgr.docs.Store(&docSet{
		versions: []string{"stable"},
		indexes:  map[string]*docindex.Index{"stable": docindex.New(fragments)},
	})

	mock := newMockIndex(1)
	mock.hits = search.DocumentMatchCollection{
		mockHit("stable", 1, "api/#Foo", "API", "Foo", "type", 2.5),
		mockHit("stable", 0, "#Home", "Home", "Home", "page", 1.5),
		mockHit("stable", 2, "api/#bar", "API", "bar", "method", 1.0),
	}
	idx := Index(mock)
	indexMgr.current.Store(&idx)

	_, output, err := SearchDocumentation(context.Background(), nil, SearchDocumentationInput{Query: "foo", MaxResults: 50})
	if err != nil {
		t.Fatalf("SearchDocumentation failed: %v", err)
	}

	if req := mock.lastRequest.Load(); req == nil || req.Size != maxResultsLimit {
		t.Errorf("Expected request size clamped to %d", maxResultsLimit)
	}
	if output.TotalHits != 3 || len(output.Results) != 3 {
		t.Fatalf("Expected 3 results, got %d (total %d)", len(output.Results), output.TotalHits)
	}

	// Fragments are restored in full from the loaded payload
	if output.Results[0].Fragment != fragments[1] {
		t.Errorf("Expected fragment %+v, got %+v", fragments[1], output.Results[0].Fragment)
	}
	if output.Results[0].URL != "https://docs.example.org/stable/api/#Foo" {
		t.Errorf("Unexpected URL: %s", output.Results[0].URL)
	}

	if len(output.Pages) != 2 {
		t.Fatalf("Expected 2 page groups, got %d", len(output.Pages))
	}
	if output.Pages[0].Page != "API" || output.Pages[0].Hits != 2 || output.Pages[0].TopScore != 2.5 {
		t.Errorf("Unexpected first group: %+v", output.Pages[0])
	}
	if output.Pages[1].Page != "Home" || output.Pages[1].Hits != 1 {
		t.Errorf("Unexpected second group: %+v", output.Pages[1])
	}
}

func TestSearchDocumentation_SearchError(t *testing.T) {
	setupDocSearch(t)

	mock := newMockIndex(1)
	mock.searchError = errors.New("boom")
	idx := Index(mock)
	indexMgr.current.Store(&idx)

	if _, _, err := SearchDocumentation(context.Background(), nil, SearchDocumentationInput{Query: "foo"}); err == nil {
		t.Error("Expected search error to be returned")
	}

	if _, _, err := SearchDocumentation(context.Background(), nil, SearchDocumentationInput{}); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("Expected ErrEmptyQuery, got %v", err)
	}

	mock.searchError = nil
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := SearchDocumentation(ctx, nil, SearchDocumentationInput{Query: "foo"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestSearchDocumentation_UnknownVersionWithMockIndex(t *testing.T) {
	setupDocSearch(t)

	mock := newMockIndex(1)
	mock.hits = search.DocumentMatchCollection{mockHit("stable", 0, "#Home", "Home", "Home", "page", 1)}
	idx := Index(mock)
	indexMgr.current.Store(&idx)
	indexMgr.docs.Store(&docSet{
		versions: []string{"stable"},
		indexes: map[string]*docindex.Index{"stable": docindex.New([]docindex.DocFragment{
			{Location: "#Home", Page: "Home", Title: "Home", Category: "page"},
		})},
	})

	_, _, err := SearchDocumentation(context.Background(), nil, SearchDocumentationInput{Query: "home", Version: "v9"})
	if !errors.Is(err, ErrUnknownVersion) {
		t.Fatalf("Expected ErrUnknownVersion, got %v", err)
	}
	if mock.lastRequest.Load() != nil {
		t.Error("Expected no index search for an unknown version")
	}
}

func TestDecodeHit_StaleOrdinal(t *testing.T) {
	set := &docSet{
		versions: []string{"stable"},
		indexes: map[string]*docindex.Index{"stable": docindex.New([]docindex.DocFragment{
			{Location: "other/", Page: "Other", Title: "Other", Category: "page"},
		})},
	}

	hit := mockHit("stable", 0, "api/#Foo", "API", "Foo", "type", 1)
	hit.Fields["text"] = "stored text"

	result := decodeHit(hit, set)
	if result.Fragment.Location != "api/#Foo" || result.Fragment.Text != "stored text" {
		t.Errorf("Expected stored fields when the payload does not match, got %+v", result.Fragment)
	}

	hit = mockHit("dev", 9, "api/#Foo", "API", "Foo", "type", 1)
	if result := decodeHit(hit, set); result.Fragment.Title != "Foo" {
		t.Errorf("Expected stored fields for unknown version, got %+v", result.Fragment)
	}
}

func TestSearchDocumentation_Bleve(t *testing.T) {
	setupDocSearch(t)

	if err := InitializeDocSearch(); err != nil {
		t.Fatalf("InitializeDocSearch failed: %v", err)
	}

	tests := []struct {
		name      string
		input     SearchDocumentationInput
		wantTotal int
		wantFirst string // expected title of the first hit, "" to skip
		wantErr   error
	}{
		{"text match", SearchDocumentationInput{Query: "implicit"}, 2, "", nil},
		{"category filter", SearchDocumentationInput{Query: "implicit", Category: "type"}, 1, "ImplicitDifferentiation.ImplicitFunction", nil},
		{"method", SearchDocumentationInput{Query: "forward problem", Category: "method"}, 1, "ImplicitDifferentiation.forward", nil},
		{"version filter", SearchDocumentationInput{Query: "implicit", Version: "stable"}, 2, "", nil},
		{"unknown version", SearchDocumentationInput{Query: "implicit", Version: "v9"}, 0, "", ErrUnknownVersion},
		{"no match", SearchDocumentationInput{Query: "zebra"}, 0, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, output, err := SearchDocumentation(context.Background(), nil, tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SearchDocumentation() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if output.TotalHits != tt.wantTotal {
				t.Fatalf("Expected %d hits, got %d", tt.wantTotal, output.TotalHits)
			}
			if tt.wantFirst != "" && output.Results[0].Fragment.Title != tt.wantFirst {
				t.Errorf("Expected first hit %q, got %q", tt.wantFirst, output.Results[0].Fragment.Title)
			}
			for _, r := range output.Results {
				if r.Version != "stable" {
					t.Errorf("Unexpected version %q", r.Version)
				}
				if r.Breadcrumb == "" {
					t.Errorf("Missing breadcrumb for %s", r.Fragment.Location)
				}
			}
		})
	}
}
