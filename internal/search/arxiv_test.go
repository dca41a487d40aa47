package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/api/2501.00001v1</id>
    <title>Scaling
      Laws   Revisited</title>
    <summary>  We revisit scaling laws with new experiments.  </summary>
    <published>2025-01-01T00:00:00Z</published>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2501.00002v1</id>
    <title>Second Paper</title>
    <summary>` + "PLACEHOLDER" + `</summary>
    <published>2025-01-02T00:00:00Z</published>
  </entry>
</feed>`

func TestParseAtomFeed(t *testing.T) {
	longSummary := strings.Repeat("word ", 100)
	body := strings.Replace(sampleFeed, "PLACEHOLDER", longSummary, 1)

	results, err := parseAtomFeed([]byte(body))
	if err != nil {
		t.Fatalf("parseAtomFeed failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	first := results[0]
	if first.URL != "http://arxiv.org/abs/2501.00001v1" {
		t.Errorf("api URL not folded to abs form: %q", first.URL)
	}
	if first.Title != "Scaling Laws Revisited" {
		t.Errorf("title whitespace not collapsed: %q", first.Title)
	}
	if first.Summary != "We revisit scaling laws with new experiments." {
		t.Errorf("summary not trimmed: %q", first.Summary)
	}

	second := results[1]
	if !strings.HasSuffix(second.Summary, "...") || len(second.Summary) != 203 {
		t.Errorf("long summary not truncated to 200 chars with ellipsis, got %d bytes", len(second.Summary))
	}
}

func TestParseAtomFeedMalformed(t *testing.T) {
	if _, err := parseAtomFeed([]byte("this is not xml <<<")); err == nil {
		t.Fatal("expected an error for malformed XML")
	}
}

func TestParseAtomFeedSkipsEmptyIDs(t *testing.T) {
	body := `<feed xmlns="http://www.w3.org/2005/Atom"><entry><id> </id><title>No link</title></entry></feed>`
	results, err := parseAtomFeed([]byte(body))
	if err != nil {
		t.Fatalf("parseAtomFeed failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("entries without an id must be skipped, got %d results", len(results))
	}
}

func TestArxivSearchRequestShape(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		if r.URL.Query().Get("sortBy") != "submittedDate" {
			t.Errorf("sortBy = %q, want submittedDate", r.URL.Query().Get("sortBy"))
		}
		w.Write([]byte(strings.Replace(sampleFeed, "PLACEHOLDER", "short", 1)))
	}))
	defer srv.Close()

	provider := NewArxivProvider()
	provider.baseURL = srv.URL
	provider.rateLimit = time.Millisecond

	results, err := provider.Search(context.Background(), `all:"World Model"`, 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if gotQuery != `all:"World Model"` {
		t.Errorf("search_query = %q", gotQuery)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestArxivSearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	provider := NewArxivProvider()
	provider.baseURL = srv.URL
	provider.rateLimit = time.Millisecond

	if _, err := provider.Search(context.Background(), "all:test", 5); err == nil {
		t.Fatal("expected an error for a 503 response")
	}
}

func TestNewProviderFactory(t *testing.T) {
	if _, err := NewProvider(ProviderTypeArxiv, GoogleCredentials{}); err != nil {
		t.Errorf("arxiv provider should need no credentials: %v", err)
	}
	if _, err := NewProvider(ProviderTypeGoogle, GoogleCredentials{}); err == nil {
		t.Error("google provider without credentials must fail")
	}
	if _, err := NewProvider(ProviderType("bogus"), GoogleCredentials{}); err == nil {
		t.Error("unknown provider type must fail")
	}
	p, err := NewProvider(ProviderTypeMock, GoogleCredentials{})
	if err != nil || p.GetName() != "Mock" {
		t.Errorf("mock provider: %v, %v", p, err)
	}
}
