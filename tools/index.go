package tools

import (
	"context"

	"github.com/blevesearch/bleve/v2"
)

// Index is the part of a search index the documentation service uses.
// Tests substitute mockIndex.
type Index interface {
	// Search runs req, giving up when ctx is done
	Search(ctx context.Context, req *bleve.SearchRequest) (*bleve.SearchResult, error)

	DocCount() (uint64, error)
	Close() error
}

type bleveIndex struct {
	index bleve.Index
}

// NewBleveIndexWrapper adapts a bleve.Index opened from disk
func NewBleveIndexWrapper(index bleve.Index) Index {
	return &bleveIndex{index: index}
}

func (b *bleveIndex) Search(ctx context.Context, req *bleve.SearchRequest) (*bleve.SearchResult, error) {
	return b.index.SearchInContext(ctx, req)
}

func (b *bleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

func (b *bleveIndex) Close() error {
	return b.index.Close()
}
