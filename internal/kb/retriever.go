package kb

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/deskwatch/deskwatch/internal/llm"
)

const (
	defaultTopK       = 5
	maxPassageLength  = 500
	maxCitationLength = 100
)

// Hit is a single knowledge base search result
type Hit struct {
	DocName        string  `json:"doc_name"`
	Section        string  `json:"section"`
	Passage        string  `json:"passage"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Citation formats the hit as a [KB:doc#section] reference
func (h Hit) Citation() string {
	return fmt.Sprintf("[KB:%s#%s]", h.DocName, h.Section)
}

// categoryContext adds category keywords to contextual searches
var categoryContext = map[string]string{
	"billing":         "billing payment invoice charge refund",
	"bug":             "bug error crash issue fix",
	"outage":          "outage down unavailable incident",
	"security":        "security vulnerability breach access",
	"onboarding":      "setup getting started configuration",
	"feature_request": "feature request enhancement",
}

// Retriever answers similarity searches over indexed document chunks
type Retriever struct {
	client llm.Client
	chunks []Chunk
}

// NewRetriever indexes the markdown documents under dir and embeds
// every chunk up front
func NewRetriever(client llm.Client, dir string) (*Retriever, error) {
	chunks, err := LoadChunks(dir)
	if err != nil {
		return nil, err
	}
	return NewRetrieverFromChunks(client, chunks)
}

// NewRetrieverFromChunks builds a retriever over pre-split chunks
func NewRetrieverFromChunks(client llm.Client, chunks []Chunk) (*Retriever, error) {
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		vectors, err := client.Embed(texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed knowledge base: %w", err)
		}
		for i := range chunks {
			chunks[i].Embedding = vectors[i]
		}
	}
	return &Retriever{client: client, chunks: chunks}, nil
}

// Size returns the number of indexed chunks
func (r *Retriever) Size() int {
	return len(r.chunks)
}

// Search returns the top-k chunks by cosine similarity to the query.
// k <= 0 uses the default.
func (r *Retriever) Search(query string, k int) ([]Hit, error) {
	if k <= 0 {
		k = defaultTopK
	}
	if len(r.chunks) == 0 {
		return nil, nil
	}

	vectors, err := r.client.Embed([]string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	queryVec := vectors[0]

	hits := make([]Hit, 0, len(r.chunks))
	for _, chunk := range r.chunks {
		passage := chunk.Text
		if len(passage) > maxPassageLength {
			passage = passage[:maxPassageLength]
		}
		hits = append(hits, Hit{
			DocName:        chunk.DocName,
			Section:        chunk.Section,
			Passage:        passage,
			RelevanceScore: CosineSimilarity(queryVec, chunk.Embedding),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].RelevanceScore > hits[j].RelevanceScore
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// SearchWithContext builds a query from ticket subject, body and
// category keywords for better relevance
func (r *Retriever) SearchWithContext(subject, body, category string, k int) ([]Hit, error) {
	parts := []string{subject}
	if len(body) > maxPassageLength {
		body = body[:maxPassageLength]
	}
	parts = append(parts, body)
	if keywords, ok := categoryContext[category]; ok {
		parts = append(parts, keywords)
	}
	return r.Search(strings.Join(parts, " "), k)
}

// FormatCitations renders hits as a citations block for replies
func FormatCitations(hits []Hit) string {
	if len(hits) == 0 {
		return ""
	}
	lines := make([]string, 0, len(hits))
	for _, hit := range hits {
		passage := hit.Passage
		if len(passage) > maxCitationLength {
			passage = passage[:maxCitationLength]
		}
		lines = append(lines, fmt.Sprintf("%s: %q...", hit.Citation(), passage))
	}
	return strings.Join(lines, "\n")
}

// CosineSimilarity computes the cosine of the angle between two
// vectors. Mismatched lengths or zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
