package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"google.golang.org/genai"
)

const (
	// DefaultModel is the default Gemini model for editorial decisions.
	DefaultModel = "gemini-flash-lite-latest"
)

// Completer is the narrow oracle interface the pipeline depends on. The
// completion service is a nondeterministic black box; tests substitute a
// deterministic MockCompleter.
type Completer interface {
	// Complete sends a single prompt and returns the raw response text.
	Complete(ctx context.Context, prompt string, temperature float32) (string, error)
}

// Client wraps the Gemini API behind the Completer interface. It carries
// no retry logic of its own; retries belong to the stage executor.
type Client struct {
	apiKey    string
	modelName string
	gClient   *genai.Client
}

// NewClient creates a new oracle client. The API key is resolved from the
// environment (GEMINI_API_KEY and friends) or from oracle.api_key in the
// config file.
func NewClient(modelName string) (*Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		if apiKey = os.Getenv("GOOGLE_GEMINI_API_KEY"); apiKey == "" {
			if apiKey = os.Getenv("GOOGLE_AI_API_KEY"); apiKey == "" {
				apiKey = viper.GetString("oracle.api_key")
			}
		}
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY environment variable or oracle.api_key in config file")
	}

	if modelName == "" {
		modelName = viper.GetString("oracle.model")
		if modelName == "" {
			modelName = DefaultModel
		}
	}

	ctx := context.Background()
	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		apiKey:    apiKey,
		modelName: modelName,
		gClient:   gClient,
	}, nil
}

// Complete implements Completer with a single GenerateContent call.
func (c *Client) Complete(ctx context.Context, prompt string, temperature float32) (string, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temperature),
	}

	resp, err := c.gClient.Models.GenerateContent(ctx, c.modelName, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}

	return text, nil
}

// ModelName returns the model this client talks to.
func (c *Client) ModelName() string {
	return c.modelName
}
