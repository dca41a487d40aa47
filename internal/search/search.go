// Package search wraps the citation-search collaborators behind a single
// Provider interface so the reference collector does not care whether
// candidates come from arXiv, a web search API, or a test double.
package search

import (
	"context"
	"fmt"
)

// Provider defines the unified interface for citation-search providers.
type Provider interface {
	// Search performs a search and returns at most maxResults results.
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)

	// GetName returns the name of the search provider.
	GetName() string
}

// Result represents a unified search result.
type Result struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Summary   string `json:"summary"`
	Published string `json:"published"`
	Source    string `json:"source"` // Provider-specific source identifier
}

// ProviderType represents the type of search provider.
type ProviderType string

const (
	ProviderTypeArxiv  ProviderType = "arxiv"
	ProviderTypeGoogle ProviderType = "google"
	ProviderTypeMock   ProviderType = "mock"
)

// GoogleCredentials carries the Custom Search API key pair.
type GoogleCredentials struct {
	APIKey   string
	SearchID string
}

// NewProvider creates a search provider of the given type.
func NewProvider(providerType ProviderType, google GoogleCredentials) (Provider, error) {
	switch providerType {
	case ProviderTypeArxiv:
		return NewArxivProvider(), nil
	case ProviderTypeGoogle:
		if google.APIKey == "" || google.SearchID == "" {
			return nil, fmt.Errorf("google provider requires an API key and search engine id")
		}
		return NewGoogleProvider(google.APIKey, google.SearchID), nil
	case ProviderTypeMock:
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown search provider type: %s", providerType)
	}
}
