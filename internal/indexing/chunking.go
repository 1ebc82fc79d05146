package indexing

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/documenter-search/mcp-server/internal/docindex"
)

// ForceSplitText splits text by character count at word boundaries
func ForceSplitText(text string, maxChars, overlapChars int) []string {
	var parts []string

	for len(text) > 0 {
		chunkSize := maxChars
		if len(text) < chunkSize {
			chunkSize = len(text)
		}

		// Try to break at word boundary
		if chunkSize < len(text) {
			for i := chunkSize; i > chunkSize-100 && i > 0; i-- {
				if text[i] == ' ' || text[i] == '\n' {
					chunkSize = i
					break
				}
			}
		}

		chunkSize = runeStart(text, chunkSize)
		if chunkSize == 0 {
			_, chunkSize = utf8.DecodeRuneInString(text)
		}

		parts = append(parts, text[:chunkSize])

		// Move forward with overlap
		next := chunkSize
		if chunkSize+overlapChars < len(text) && chunkSize > overlapChars {
			if start := runeStart(text, chunkSize-overlapChars); start > 0 {
				next = start
			}
		}
		text = text[next:]
	}

	return parts
}

// SubdivideText splits long fragment text into parts of roughly
// TargetChunkTokens, each prefixed with the tail of the previous part.
// Text at or below MaxChunkTokens is returned as a single part.
func SubdivideText(text string) []string {
	if EstimateTokens(text) <= MaxChunkTokens {
		return []string{text}
	}

	maxChars := MaxChunkTokens * CharsPerToken
	overlapChars := OverlapTokens * CharsPerToken

	// Split by paragraphs, falling back to lines for code blocks
	paragraphs := strings.Split(text, "\n\n")
	if len(paragraphs) <= 1 {
		paragraphs = strings.Split(text, "\n")
	}

	var parts []string
	var current strings.Builder
	previous := ""

	flush := func() {
		if current.Len() == 0 {
			return
		}
		content := current.String()
		if previous != "" {
			content = tail(previous, overlapChars) + "\n\n" + content
		}
		parts = append(parts, content)
		previous = current.String()
		current.Reset()
	}

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		// A single oversized paragraph is force-split on its own
		if EstimateTokens(para) > MaxChunkTokens {
			flush()
			for _, part := range ForceSplitText(para, maxChars, overlapChars) {
				parts = append(parts, part)
				previous = part
			}
			continue
		}

		if current.Len() > 0 && EstimateTokens(current.String())+EstimateTokens(para) > TargetChunkTokens {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	if len(parts) == 0 {
		return ForceSplitText(text, maxChars, overlapChars)
	}
	return parts
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[runeStart(s, len(s)-n):]
}

// runeStart moves byte offset i back to the first byte of the rune it falls in
func runeStart(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// BuildDocuments converts every fragment of idx into search documents for
// the given documentation version. Fragments with long text produce several
// documents sharing the fragment's ordinal.
func BuildDocuments(version, baseURL string, idx *docindex.Index) []SearchDoc {
	docs := make([]SearchDoc, 0, idx.Len())

	ordinal := 0
	for fragment := range idx.All() {
		path, anchor := docindex.SplitLocation(fragment.Location)
		base := SearchDoc{
			ID:       fmt.Sprintf("%s/%d", version, ordinal),
			Version:  version,
			Ordinal:  ordinal,
			Location: fragment.Location,
			Path:     path,
			Anchor:   anchor,
			Page:     fragment.Page,
			Title:    fragment.Title,
			Category: fragment.Category,
			Text:     fragment.Text,
		}

		parts := SubdivideText(fragment.Text)
		if len(parts) == 1 {
			EnrichMetadata(&base, baseURL)
			docs = append(docs, base)
		} else {
			for i, part := range parts {
				doc := base
				doc.ID = fmt.Sprintf("%s_sub%d", base.ID, i)
				doc.Text = part
				doc.Part = i + 1
				EnrichMetadata(&doc, baseURL)
				docs = append(docs, doc)
			}
		}
		ordinal++
	}

	return docs
}
