// Package llm provides the completion backends the LLM-backed scenario
// generator talks to. Providers are deliberately thin HTTP clients; prompt
// construction and response interpretation live with the generator.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// sharedHTTPClient is used by all providers; scenario generation responses
// can be large, so the timeout is generous.
var sharedHTTPClient = &http.Client{
	Timeout: 3 * time.Minute,
}

// defaultMaxTokens is the fallback when Request.MaxTokens is not set.
const defaultMaxTokens = 8192

// Request holds the parameters for a completion call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

// Response holds the result of a completion call.
type Response struct {
	Content string
	Model   string // actual model used, echoed back for metadata
}

// Provider is the interface for completion backends.
type Provider interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// NewProvider parses a "provider:model" string and returns the matching
// Provider. API keys come from the environment and are validated up front.
// Example: "anthropic:claude-sonnet-4-5" or "openai:gpt-4o".
func NewProvider(providerModel string) (Provider, error) {
	parts := strings.SplitN(providerModel, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid model format %q: expected provider:model", providerModel)
	}
	switch parts[0] {
	case "anthropic":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
		return &anthropicProvider{model: parts[1], apiKey: apiKey}, nil
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
		return &openaiProvider{model: parts[1], apiKey: apiKey}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q: supported providers are anthropic, openai", parts[0])
	}
}

// truncate limits a string to maxLen runes, appending "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
