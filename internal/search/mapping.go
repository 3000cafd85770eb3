package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for plant documents.
//
//   - name: English analyzer, stored for display
//   - folded: simple analyzer over the accent-free name, used for prefix
//     and fuzzy matching
//   - user_id: exact keyword, every query filters on it
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = en.AnalyzerName
	nameFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)

	foldedFieldMapping := bleve.NewTextFieldMapping()
	foldedFieldMapping.Analyzer = simple.Name
	foldedFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("folded", foldedFieldMapping)

	userFieldMapping := bleve.NewTextFieldMapping()
	userFieldMapping.Analyzer = keyword.Name
	userFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("user_id", userFieldMapping)

	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	idFieldMapping.Store = true
	idFieldMapping.Index = false
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}
