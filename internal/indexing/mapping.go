package indexing

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// DocType is the bleve document type used for SearchDoc.
const DocType = "fragment"

// Type lets bleve pick the DocType mapping for SearchDoc values.
func (SearchDoc) Type() string {
	return DocType
}

// NewIndexMapping returns the bleve mapping for SearchDoc: prose fields are
// analysed in English, identifiers are stored as exact keywords.
func NewIndexMapping() mapping.IndexMapping {
	textField := func() *mapping.FieldMapping {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = en.AnalyzerName
		f.Store = true
		f.IncludeTermVectors = true
		return f
	}
	keywordField := func() *mapping.FieldMapping {
		f := bleve.NewKeywordFieldMapping()
		f.Store = true
		return f
	}
	numericField := func() *mapping.FieldMapping {
		f := bleve.NewNumericFieldMapping()
		f.Store = true
		return f
	}

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("title", textField())
	doc.AddFieldMappingsAt("text", textField())
	doc.AddFieldMappingsAt("page", textField())
	doc.AddFieldMappingsAt("breadcrumb", textField())
	doc.AddFieldMappingsAt("keywords", textField())

	doc.AddFieldMappingsAt("id", keywordField())
	doc.AddFieldMappingsAt("version", keywordField())
	doc.AddFieldMappingsAt("category", keywordField())
	doc.AddFieldMappingsAt("location", keywordField())
	doc.AddFieldMappingsAt("path", keywordField())
	doc.AddFieldMappingsAt("anchor", keywordField())
	doc.AddFieldMappingsAt("url", keywordField())

	doc.AddFieldMappingsAt("ordinal", numericField())
	doc.AddFieldMappingsAt("token_count", numericField())
	doc.AddFieldMappingsAt("part", numericField())

	im := bleve.NewIndexMapping()
	im.AddDocumentMapping(DocType, doc)
	im.DefaultMapping = doc
	im.DefaultAnalyzer = en.AnalyzerName
	return im
}
