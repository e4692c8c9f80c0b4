package gemini

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sp4m-08/crop-chat-agent/internal/utils"
	"github.com/sp4m-08/crop-chat-agent/providers/llm"
	"github.com/sp4m-08/crop-chat-agent/providers/observability"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.0-flash-lite"

	// defaultTimeout bounds every generateContent call so a stalled
	// upstream can never hang a run.
	defaultTimeout = 60 * time.Second
)

// Provider implements llm.Provider for Google's Gemini generateContent API.
type Provider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// Compile-time check that Provider implements llm.Provider.
var _ llm.Provider = (*Provider)(nil)

// New creates a Gemini provider with defaults from the environment.
// Environment variables:
//   - GEMINI_API_KEY: API key for authentication
//   - GEMINI_API_BASE_URL: base URL override (optional)
//   - GEMINI_MODEL: model override (optional)
func New() *Provider {
	baseURL := os.Getenv("GEMINI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = defaultModel
	}

	return &Provider{
		apiKey:  os.Getenv("GEMINI_API_KEY"),
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// WithAPIKey sets the API key for the provider.
func (p *Provider) WithAPIKey(apiKey string) *Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the base URL for the API.
func (p *Provider) WithBaseURL(baseURL string) *Provider {
	p.baseURL = baseURL
	return p
}

// WithModel sets the model used for generation.
func (p *Provider) WithModel(model string) *Provider {
	p.model = model
	return p
}

// WithHTTPClient sets a custom HTTP client.
func (p *Provider) WithHTTPClient(httpClient *http.Client) *Provider {
	p.client = httpClient
	return p
}

// Generate implements llm.Provider. It posts the instruction as the system
// instruction and the payload as a single user turn, returning the text of
// the first candidate.
func (p *Provider) Generate(ctx context.Context, instruction, payload string) (string, error) {
	span := observability.SpanFromContext(ctx)

	if p.apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY is not set")
	}

	if span != nil {
		span.AddEvent(observability.EventLLMRequestStart,
			observability.String(observability.AttrLLMProvider, "gemini"),
			observability.String(observability.AttrLLMEndpoint, p.baseURL),
			observability.String(observability.AttrLLMModel, p.model),
		)
		defer span.AddEvent(observability.EventLLMRequestEnd)
	}

	requestURL := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, p.model)

	request := generateContentRequest{
		SystemInstruction: &content{Parts: []part{{Text: instruction}}},
		Contents: []content{
			{Role: "user", Parts: []part{{Text: payload}}},
		},
	}

	_, response, err := utils.DoPostSync[generateContentResponse](
		ctx,
		p.client,
		requestURL,
		"", // Gemini authenticates via the x-goog-api-key header, not Bearer.
		request,
		utils.HeaderOption{Key: "x-goog-api-key", Value: p.apiKey},
	)
	if err != nil {
		return "", fmt.Errorf("gemini generateContent failed: %w", err)
	}

	text := response.firstCandidateText()
	if text == "" {
		return "", fmt.Errorf("gemini returned no candidates (finish reason: %s)", response.firstFinishReason())
	}

	return strings.TrimSpace(text), nil
}
