package tools

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
)

// mockIndex is an in-memory Index returning canned hits
type mockIndex struct {
	id          int
	docCount    uint64
	hits        search.DocumentMatchCollection
	searchError error
	closeError  error
	closed      atomic.Bool
	lastRequest atomic.Pointer[bleve.SearchRequest]
}

// newMockIndex creates a new mock index with the given ID
func newMockIndex(id int) *mockIndex {
	return &mockIndex{
		id:       id,
		docCount: 100,
	}
}

func (m *mockIndex) Search(ctx context.Context, req *bleve.SearchRequest) (*bleve.SearchResult, error) {
	if m.closed.Load() {
		return nil, fmt.Errorf("index closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.lastRequest.Store(req)
	if m.searchError != nil {
		return nil, m.searchError
	}

	hits := m.hits
	if len(hits) > req.Size {
		hits = hits[:req.Size]
	}
	return &bleve.SearchResult{
		Request: req,
		Hits:    hits,
		Total:   uint64(len(m.hits)),
	}, nil
}

func (m *mockIndex) DocCount() (uint64, error) {
	if m.closed.Load() {
		return 0, fmt.Errorf("index closed")
	}
	return m.docCount, nil
}

func (m *mockIndex) Close() error {
	if m.closed.Load() {
		return fmt.Errorf("already closed")
	}
	m.closed.Store(true)
	return m.closeError
}

// IsClosed returns true if the index has been closed
func (m *mockIndex) IsClosed() bool {
	return m.closed.Load()
}

// mockHit builds a hit carrying the stored fields of a search document
func mockHit(version string, ordinal int, location, page, title, category string, score float64) *search.DocumentMatch {
	return &search.DocumentMatch{
		ID:    fmt.Sprintf("%s/%d", version, ordinal),
		Score: score,
		Fields: map[string]interface{}{
			"version":  version,
			"ordinal":  float64(ordinal),
			"location": location,
			"page":     page,
			"title":    title,
			"category": category,
			"url":      "https://docs.example.org/" + version + "/" + location,
		},
	}
}
