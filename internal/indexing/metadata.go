package indexing

import (
	"net/url"
	"strings"
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "as": true, "by": true, "is": true,
	"it": true, "be": true, "with": true, "from": true, "that": true,
	"this": true, "we": true, "are": true, "can": true, "use": true,
}

// EstimateTokens estimates the token count for a text string
func EstimateTokens(text string) int {
	return len(text) / CharsPerToken
}

// ExtractKeywords extracts key terms from title and content
func ExtractKeywords(title, content string) []string {
	// Title words first, then the first 200 chars of content
	words := splitWords(title)

	contentPreview := content
	if len(content) > 200 {
		contentPreview = content[:runeStart(content, 200)]
	}
	words = append(words, splitWords(contentPreview)...)

	seen := make(map[string]bool)
	keywords := make([]string, 0, MaxKeywords)
	for _, word := range words {
		if len(word) <= 2 || stopWords[word] || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
		if len(keywords) == MaxKeywords {
			break
		}
	}

	return keywords
}

// splitWords lowercases text and splits it on anything that is not a letter
// or digit, so "ImplicitDifferentiation.ImplicitFunction" yields two words.
func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r > 0x7f)
	})
}

// BuildBreadcrumb joins page and title, dropping the title when it repeats
// the page name.
func BuildBreadcrumb(page, title string) string {
	switch {
	case page == "":
		return title
	case title == "" || title == page:
		return page
	default:
		return page + " > " + title
	}
}

// BuildURL resolves a fragment location against the site root of a version.
// Returns "" when baseURL is empty or unparsable.
func BuildURL(baseURL, version, location string) string {
	if baseURL == "" {
		return ""
	}
	root := strings.TrimSuffix(baseURL, "/") + "/"
	if version != "" {
		root += strings.Trim(version, "/") + "/"
	}

	base, err := url.Parse(root)
	if err != nil {
		return ""
	}
	path, anchor, hasAnchor := strings.Cut(location, "#")
	ref := &url.URL{Path: path}
	if hasAnchor {
		ref.Fragment = anchor
	}
	return base.ResolveReference(ref).String()
}

// EnrichMetadata adds breadcrumb, keywords, URL, and token count to a document
func EnrichMetadata(doc *SearchDoc, baseURL string) {
	doc.Breadcrumb = BuildBreadcrumb(doc.Page, doc.Title)
	doc.URL = BuildURL(baseURL, doc.Version, doc.Location)
	doc.Keywords = ExtractKeywords(doc.Title, doc.Text)
	doc.TokenCount = EstimateTokens(doc.Text)
}
