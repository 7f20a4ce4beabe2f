package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/Joenasriani/vibedeal/config"
	"github.com/Joenasriani/vibedeal/models"
)

// DealFetcher is the one outbound contract the session machine
// depends on. Exactly one remote call happens per invocation.
type DealFetcher interface {
	FetchDeals(ctx context.Context, params models.SearchParams) (*genai.GenerateContentResponse, error)
}

// contentGenerator is the slice of the genai client we actually use,
// kept narrow so tests can stand in for the remote service.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient builds the deal-discovery prompt and issues the
// grounded generate call. The underlying genai client is created
// lazily so a missing credential fails the request, not the boot.
type GeminiClient struct {
	cfg   *config.Config
	Stats *TokenStats

	mu  sync.Mutex
	gen contentGenerator
}

func NewGeminiClient(cfg *config.Config) *GeminiClient {
	return &GeminiClient{
		cfg:   cfg,
		Stats: &TokenStats{},
	}
}

func (c *GeminiClient) generator(ctx context.Context) (contentGenerator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != nil {
		return c.gen, nil
	}
	if c.cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: set GEMINI_API_KEY before searching", models.ErrMissingCredential)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", models.ErrRequestFailed, err)
	}

	c.gen = client.Models
	return c.gen, nil
}

// BuildDealPrompt serializes the full search parameters into the
// natural-language instruction sent to the model. The literal product
// query, location, distance, currency and condition all appear in the
// text alongside the JSON form.
func BuildDealPrompt(params models.SearchParams) string {
	encoded, _ := json.Marshal(params)

	return fmt.Sprintf(`Act as VibeDeal, a precise, delivery-aware deal discovery engine.

User Query: %s

Task:
1. Resolve the product accurately using real-time search if needed.
2. Provide a detailed, natural language (Markdown) summary of potential deals for the product '%s' considering 'delivery_location: %s', 'max_distance_km: %d', 'currency: %s', and 'condition: %s'.
3. Include information about pricing, shipping, taxes, and stock status in your narrative.
4. For any potential deals or products mentioned, ensure to use the googleSearch tool to find and provide actual, active URLs as grounding metadata.
5. Discuss the top offers and any relevant verification notes.
6. If 'price_history' is enabled in optional features, provide a general trend description in the text.
7. Generate a comprehensive, human-readable response that incorporates real-time information from search results.`,
		string(encoded),
		params.ProductQuery,
		params.DeliveryLocation,
		params.MaxDistanceKM,
		params.Currency,
		params.Condition,
	)
}

// FetchDeals validates the params, then issues a single grounded
// generate call. The raw response comes back unmodified; there is no
// retry and no structural parsing, because search grounding only
// guarantees prose.
func (c *GeminiClient) FetchDeals(ctx context.Context, params models.SearchParams) (*genai.GenerateContentResponse, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	params = params.Normalize()

	gen, err := c.generator(ctx)
	if err != nil {
		return nil, err
	}

	prompt := BuildDealPrompt(params)

	temp := c.cfg.GeminiTemperature
	genCfg := &genai.GenerateContentConfig{
		// Low temperature for factual/consistent phrasing.
		Temperature: &temp,
		// ResponseMIMEType and a response schema are NOT allowed
		// together with the googleSearch tool; grounding forces a
		// free-text answer.
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
	}
	if c.cfg.GeminiMaxOutputTokens > 0 {
		genCfg.MaxOutputTokens = int32(c.cfg.GeminiMaxOutputTokens)
	}

	resp, err := gen.GenerateContent(ctx, c.cfg.GeminiModel, genai.Text(prompt), genCfg)
	if err != nil {
		zap.L().Error("Gemini generate call failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", models.ErrRequestFailed, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: Gemini returned nil response", models.ErrRequestFailed)
	}

	if resp.UsageMetadata != nil {
		c.Stats.Record(resp.UsageMetadata, true)
	}

	return resp, nil
}
