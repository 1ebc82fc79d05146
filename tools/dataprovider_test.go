package tools

import (
	"io/fs"
	"testing"

	"github.com/documenter-search/mcp-server/internal/docindex"
)

func TestMockDataProvider_ReadFile(t *testing.T) {
	mock := NewMockDataProvider()
	mock.AddFile("data/test.js", []byte("test content"))

	content, err := mock.ReadFile("data/test.js")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if string(content) != "test content" {
		t.Errorf("Expected 'test content', got: %s", string(content))
	}

	if _, err := mock.ReadFile("data/missing.js"); err != fs.ErrNotExist {
		t.Errorf("Expected fs.ErrNotExist, got: %v", err)
	}
}

func TestMockDataProvider_SetAndReset(t *testing.T) {
	mock := NewMockDataProvider()

	originalProvider := defaultDataProvider
	defer func() { defaultDataProvider = originalProvider }()

	SetDefaultDataProvider(mock)
	if defaultDataProvider != mock {
		t.Fatal("Expected mock provider to be installed")
	}

	ResetDefaultDataProvider()
	if defaultDataProvider == mock {
		t.Error("Expected defaultDataProvider to be reset")
	}
}

func TestEmbeddedDataProvider_SearchIndex(t *testing.T) {
	provider := NewEmbeddedDataProvider()

	raw, err := provider.ReadFile(embeddedPayloadPath)
	if err != nil {
		t.Fatalf("Embedded search index missing: %v", err)
	}

	idx, err := docindex.Load(raw)
	if err != nil {
		t.Fatalf("Embedded search index does not load: %v", err)
	}
	if idx.Len() != 61 {
		t.Errorf("Expected 61 fragments in embedded snapshot, got %d", idx.Len())
	}
	if first := idx.At(0); first.Location != "api/#API-reference" {
		t.Errorf("Unexpected first fragment %q", first.Location)
	}
}

func TestLoadEmbeddedDocSet_MissingSnapshot(t *testing.T) {
	originalProvider := defaultDataProvider
	defer func() { defaultDataProvider = originalProvider }()
	SetDefaultDataProvider(NewMockDataProvider())

	if _, err := loadEmbeddedDocSet(); err == nil {
		t.Error("Expected error without embedded snapshot")
	}
}
