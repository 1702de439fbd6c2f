package testhelpers

import (
	"net/http"
	"os"
	"testing"
	"time"
)

func TestHTTPTestContext(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	NewHTTPTestContext(t, http.MethodGet, "/health", nil).
		WithBearerToken("tok").
		ExecuteFunc(handler).
		AssertStatus(http.StatusOK).
		AssertHeader("Content-Type", "application/json").
		AssertBodyContains("ok")

	var body struct {
		Status string `json:"status"`
	}
	ctx := NewHTTPTestContext(t, http.MethodGet, "/health", nil).
		WithBearerToken("tok").
		ExecuteFunc(handler)
	ctx.DecodeJSON(&body)
	if body.Status != "ok" {
		t.Errorf("status = %q", body.Status)
	}
}

func TestHTTPTestContext_JSONBody(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})

	NewHTTPTestContext(t, http.MethodPost, "/tickets/process", nil).
		WithJSONBody(map[string]string{"subject": "help"}).
		ExecuteFunc(handler).
		AssertStatus(http.StatusCreated)
}

func TestSetupTestDB(t *testing.T) {
	db := SetupTestDB(t)

	issue := NewIssueBuilder().Build()
	if err := db.Create(&issue).Error; err != nil {
		t.Fatalf("failed to create issue: %v", err)
	}

	var count int64
	db.Table("issues").Count(&count)
	if count != 1 {
		t.Errorf("expected 1 issue, got %d", count)
	}
}

func TestMustCompleteWithin(t *testing.T) {
	MustCompleteWithin(t, time.Second, func() {})
}

func TestWriteTestFile(t *testing.T) {
	dir := t.TempDir()

	path := WriteTestFile(t, dir, "docs/guide.md", "## Refunds")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written file: %v", err)
	}
	if string(data) != "## Refunds" {
		t.Errorf("content = %q", data)
	}
}
