// Package kb implements the support knowledge base: markdown document
// indexing, embedding-based retrieval, and processed ticket history.
package kb

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	maxChunkSize = 1000
	chunkOverlap = 100
)

// Chunk is one indexed passage of a knowledge base document
type Chunk struct {
	DocName   string    `json:"doc_name"`
	Section   string    `json:"section"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"-"`
}

var sectionSlugPattern = regexp.MustCompile(`[^a-z0-9-]`)

// sectionSlug normalizes a header into a citation-friendly slug
func sectionSlug(header string) string {
	s := strings.ToLower(strings.TrimSpace(header))
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "/", "-")
	s = sectionSlugPattern.ReplaceAllString(s, "")
	if s == "" {
		return "general"
	}
	return s
}

// LoadChunks reads every *.md file in dir and splits it into
// section-aware chunks. Splitting follows markdown headers (#, ##,
// ###); oversized sections are further split on paragraph boundaries.
func LoadChunks(dir string) ([]Chunk, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge base dir: %w", err)
	}

	var chunks []Chunk
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		docName := strings.TrimSuffix(entry.Name(), ".md")
		chunks = append(chunks, splitDocument(docName, string(content))...)
	}

	log.Printf("Loaded %d knowledge base chunks from %s", len(chunks), dir)
	return chunks, nil
}

// splitDocument splits markdown content on headers, carrying the
// deepest header seen as the chunk's section
func splitDocument(docName, content string) []Chunk {
	var chunks []Chunk

	section := "general"
	var buf []string

	flush := func() {
		text := strings.TrimSpace(strings.Join(buf, "\n"))
		buf = buf[:0]
		if text == "" {
			return
		}
		for _, part := range splitLongText(text) {
			chunks = append(chunks, Chunk{
				DocName: docName,
				Section: section,
				Text:    part,
			})
		}
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if header, ok := headerText(trimmed); ok {
			flush()
			section = sectionSlug(header)
			buf = append(buf, line) // keep the header in the chunk text
			continue
		}
		buf = append(buf, line)
	}
	flush()

	return chunks
}

// headerText returns the title of an h1..h3 markdown header line
func headerText(line string) (string, bool) {
	for _, prefix := range []string{"### ", "## ", "# "} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimPrefix(line, prefix), true
		}
	}
	return "", false
}

// splitLongText breaks text over the chunk size limit on paragraph,
// then line, then sentence boundaries, keeping a small overlap
func splitLongText(text string) []string {
	if len(text) <= maxChunkSize {
		return []string{text}
	}

	var parts []string
	rest := text
	for len(rest) > maxChunkSize {
		cut := findBreak(rest, maxChunkSize)
		parts = append(parts, strings.TrimSpace(rest[:cut]))

		overlapStart := cut - chunkOverlap
		if overlapStart < 0 {
			overlapStart = 0
		}
		rest = rest[overlapStart:]
	}
	if trimmed := strings.TrimSpace(rest); trimmed != "" {
		parts = append(parts, trimmed)
	}
	return parts
}

// findBreak picks the latest natural boundary at or before limit
func findBreak(text string, limit int) int {
	window := text[:limit]
	for _, sep := range []string{"\n\n", "\n", ". ", " "} {
		if idx := strings.LastIndex(window, sep); idx > limit/2 {
			return idx + len(sep)
		}
	}
	return limit
}
