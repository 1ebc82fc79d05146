package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/documenter-search/mcp-server/internal/docindex"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var knownCategories = map[string]bool{
	docindex.CategoryPage:    true,
	docindex.CategorySection: true,
	docindex.CategoryType:    true,
	docindex.CategoryMethod:  true,
}

// isFilePath determines if a string looks like a file path rather than payload content
func isFilePath(s string) bool {
	if s == "" || strings.Contains(s, "\n") {
		return false
	}

	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") ||
		strings.HasPrefix(trimmed, "var ") || strings.Contains(trimmed, "=") {
		return false
	}

	// Unix absolute or relative path
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../") {
		return true
	}

	// Windows absolute path (C:\, D:\, etc.)
	if len(s) >= 3 && s[1] == ':' && (s[2] == '\\' || s[2] == '/') {
		return true
	}

	return strings.HasSuffix(s, ".js") || strings.HasSuffix(s, ".js.gz") || strings.HasSuffix(s, ".json")
}

// ValidationResult represents the result of search index validation
type ValidationResult struct {
	Valid      bool                `json:"valid"`
	Method     string              `json:"method"` // "file" or "content"
	Errors     []ValidationError   `json:"errors"`
	Warnings   []ValidationWarning `json:"warnings"`
	Summary    string              `json:"summary"`
	Fragments  int                 `json:"fragments"`
	Pages      int                 `json:"pages"`
	Categories map[string]int      `json:"categories,omitempty"`
}

// ValidationError represents a validation error with its JSON path
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidationWarning represents a validation warning
type ValidationWarning struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Level   string `json:"level"` // "warning", "info"
}

// ValidateSearchIndexInput defines input for validate_search_index tool
type ValidateSearchIndexInput struct {
	Payload string `json:"payload" jsonschema:"search_index.js content or a path to a search_index.js file (gzip allowed)"`
}

// ValidateSearchIndexOutput defines output for validate_search_index tool
type ValidateSearchIndexOutput struct {
	ValidationResult
}

// validatePayload checks a payload, read from disk when input looks like a path
func validatePayload(input string) ValidationResult {
	result := ValidationResult{
		Errors:   []ValidationError{},
		Warnings: []ValidationWarning{},
	}

	var (
		idx *docindex.Index
		err error
	)
	if isFilePath(input) {
		result.Method = "file"
		idx, err = docindex.LoadFile(input)
	} else {
		result.Method = "content"
		idx, err = docindex.Load([]byte(input))
	}

	if err != nil {
		var formatErr *docindex.FormatError
		switch {
		case errors.As(err, &formatErr):
			result.Errors = append(result.Errors, ValidationError{
				Path:    formatErr.Path,
				Message: formatErr.Reason,
				Code:    "INVALID_FORMAT",
			})
			result.Summary = "Payload is not a valid search index"
		case errors.Is(err, os.ErrNotExist):
			result.Errors = append(result.Errors, ValidationError{
				Path:    input,
				Message: fmt.Sprintf("Search index file not found: %s", input),
				Code:    "FILE_READ_ERROR",
			})
			result.Summary = "Search index file could not be read"
		default:
			result.Errors = append(result.Errors, ValidationError{
				Path:    input,
				Message: err.Error(),
				Code:    "READ_ERROR",
			})
			result.Summary = "Search index could not be read"
		}
		return result
	}

	result.Valid = true
	result.Fragments = idx.Len()
	result.Pages = len(idx.Pages())
	result.Categories = idx.Categories()
	result.Warnings = lintFragments(idx)
	result.Summary = fmt.Sprintf("Valid search index: %d fragments on %d pages (%d warnings)",
		result.Fragments, result.Pages, len(result.Warnings))
	return result
}

// lintFragments reports records that load but are likely generator mistakes
func lintFragments(idx *docindex.Index) []ValidationWarning {
	warnings := []ValidationWarning{}
	seen := make(map[string]int)
	unknown := make(map[string]bool)

	for i := 0; i < idx.Len(); i++ {
		f := idx.At(i)
		path := fmt.Sprintf("$.docs[%d]", i)

		if first, ok := seen[f.Location]; ok {
			warnings = append(warnings, ValidationWarning{
				Path:    path + ".location",
				Message: fmt.Sprintf("location %q already used by $.docs[%d]", f.Location, first),
				Level:   "warning",
			})
		} else {
			seen[f.Location] = i
		}

		if strings.TrimSpace(f.Title) == "" {
			warnings = append(warnings, ValidationWarning{
				Path:    path + ".title",
				Message: "empty title",
				Level:   "warning",
			})
		}

		if !knownCategories[f.Category] {
			unknown[f.Category] = true
		}
	}

	categories := make([]string, 0, len(unknown))
	for c := range unknown {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		warnings = append(warnings, ValidationWarning{
			Path:    "$.docs",
			Message: fmt.Sprintf("category %q is not one of page, section, type or method", c),
			Level:   "info",
		})
	}

	return warnings
}

// ValidateSearchIndex checks that a payload loads and reports suspicious records
func ValidateSearchIndex(ctx context.Context, req *mcp.CallToolRequest, input ValidateSearchIndexInput) (*mcp.CallToolResult, ValidateSearchIndexOutput, error) {
	if strings.TrimSpace(input.Payload) == "" {
		return nil, ValidateSearchIndexOutput{}, fmt.Errorf("payload is required")
	}
	return nil, ValidateSearchIndexOutput{ValidationResult: validatePayload(input.Payload)}, nil
}

// RegisterValidationTools registers the payload validation tool with the MCP server
func RegisterValidationTools(server *mcp.Server) error {
	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "validate_search_index",
			Description: "Validate a search_index.js payload (content or file path). Reports format errors with their JSON path, fragment and page counts, and warnings for duplicate locations, empty titles and unknown categories.",
		},
		ValidateSearchIndex,
	)
	return nil
}
