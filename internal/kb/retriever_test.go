package kb

import (
	"strings"
	"testing"

	"github.com/deskwatch/deskwatch/internal/llm"
)

func testChunks() []Chunk {
	return []Chunk{
		{DocName: "billing", Section: "refund-policy", Text: "Refunds are processed within 5 business days after approval."},
		{DocName: "billing", Section: "invoices", Text: "Invoices are emailed on the first of every month."},
		{DocName: "troubleshooting", Section: "login-errors", Text: "Login errors usually mean an expired session token."},
	}
}

func newTestRetriever(t *testing.T) *Retriever {
	t.Helper()
	r, err := NewRetrieverFromChunks(llm.NewMockClient(), testChunks())
	if err != nil {
		t.Fatalf("failed to build retriever: %v", err)
	}
	return r
}

func TestRetriever_SearchRanksExactMatchFirst(t *testing.T) {
	r := newTestRetriever(t)

	hits, err := r.Search("Refunds are processed within 5 business days after approval.", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Section != "refund-policy" {
		t.Errorf("top hit = %s#%s", hits[0].DocName, hits[0].Section)
	}
	if hits[0].RelevanceScore < 0.99 {
		t.Errorf("identical text should score ~1.0, got %v", hits[0].RelevanceScore)
	}
	if hits[0].RelevanceScore < hits[1].RelevanceScore {
		t.Error("hits not sorted by relevance")
	}
}

func TestRetriever_SearchDefaultK(t *testing.T) {
	r := newTestRetriever(t)

	hits, err := r.Search("anything", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	// Only 3 chunks indexed; default k is larger.
	if len(hits) != 3 {
		t.Errorf("expected all 3 chunks, got %d", len(hits))
	}
}

func TestRetriever_Empty(t *testing.T) {
	r, err := NewRetrieverFromChunks(llm.NewMockClient(), nil)
	if err != nil {
		t.Fatalf("empty retriever: %v", err)
	}
	hits, err := r.Search("query", 5)
	if err != nil || hits != nil {
		t.Errorf("empty index must return no hits, got %v, %v", hits, err)
	}
}

func TestRetriever_SearchWithContext(t *testing.T) {
	r := newTestRetriever(t)

	hits, err := r.SearchWithContext("Where is my refund", "I was told refunds are processed quickly", "billing", 3)
	if err != nil {
		t.Fatalf("SearchWithContext failed: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected hits")
	}
	if hits[0].DocName != "billing" {
		t.Errorf("expected a billing doc first, got %s#%s", hits[0].DocName, hits[0].Section)
	}
}

func TestHitCitation(t *testing.T) {
	hit := Hit{DocName: "billing", Section: "refund-policy"}
	if got := hit.Citation(); got != "[KB:billing#refund-policy]" {
		t.Errorf("citation = %q", got)
	}
}

func TestFormatCitations(t *testing.T) {
	hits := []Hit{
		{DocName: "billing", Section: "refund-policy", Passage: "Refunds are processed within 5 business days."},
		{DocName: "troubleshooting", Section: "login-errors", Passage: "Login errors usually mean an expired token."},
	}

	block := FormatCitations(hits)
	lines := strings.Split(block, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 citation lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "[KB:billing#refund-policy]:") {
		t.Errorf("unexpected citation line: %q", lines[0])
	}

	if FormatCitations(nil) != "" {
		t.Error("no hits must format to empty string")
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}
