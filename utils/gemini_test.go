package utils

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/Joenasriani/vibedeal/config"
	"github.com/Joenasriani/vibedeal/models"
)

type spyGenerator struct {
	calls    int
	model    string
	contents []*genai.Content
	cfg      *genai.GenerateContentConfig

	resp *genai.GenerateContentResponse
	err  error
}

func (s *spyGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.calls++
	s.model = model
	s.contents = contents
	s.cfg = cfg
	return s.resp, s.err
}

func (s *spyGenerator) promptText() string {
	var out string
	for _, c := range s.contents {
		for _, p := range c.Parts {
			out += p.Text
		}
	}
	return out
}

func testConfig() *config.Config {
	return &config.Config{
		GeminiAPIKey:      "test-key",
		GeminiModel:       "gemini-2.5-flash",
		GeminiTemperature: 0.2,
	}
}

func newTestClient(spy *spyGenerator) *GeminiClient {
	c := NewGeminiClient(testConfig())
	c.gen = spy
	return c
}

func validParams() models.SearchParams {
	return models.SearchParams{
		ProductQuery:     "USB-C cable",
		DeliveryLocation: "Berlin",
		MaxDistanceKM:    50,
		Currency:         "EUR",
		Condition:        "new",
		OptionalFeatures: models.DefaultFeatures(),
	}
}

func groundedResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []*genai.Part{{Text: text}},
			},
			GroundingMetadata: &genai.GroundingMetadata{
				GroundingChunks: []*genai.GroundingChunk{{
					Web: &genai.GroundingChunkWeb{
						URI:   "https://shop.example.com/usb-c",
						Title: "USB-C cable — shop.example.com",
					},
				}},
			},
		}},
	}
}

func TestFetchDealsPromptContainsLiterals(t *testing.T) {
	spy := &spyGenerator{resp: groundedResponse("Found 3 options...")}
	c := newTestClient(spy)

	_, err := c.FetchDeals(context.Background(), validParams())
	require.NoError(t, err)
	require.Equal(t, 1, spy.calls)

	prompt := spy.promptText()
	for _, literal := range []string{"USB-C cable", "Berlin", "max_distance_km: 50", "currency: EUR", "condition: new"} {
		assert.Contains(t, prompt, literal)
	}
	assert.Contains(t, prompt, "googleSearch tool")
	assert.Contains(t, prompt, "price_history")
}

func TestFetchDealsCallConfig(t *testing.T) {
	spy := &spyGenerator{resp: groundedResponse("ok")}
	c := newTestClient(spy)

	_, err := c.FetchDeals(context.Background(), validParams())
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-flash", spy.model)

	require.NotNil(t, spy.cfg.Temperature)
	assert.InDelta(t, 0.2, float64(*spy.cfg.Temperature), 1e-6)

	require.Len(t, spy.cfg.Tools, 1)
	assert.NotNil(t, spy.cfg.Tools[0].GoogleSearch)

	// Grounding and structured output are mutually exclusive.
	assert.Empty(t, spy.cfg.ResponseMIMEType)
	assert.Nil(t, spy.cfg.ResponseSchema)
}

func TestFetchDealsBlankLocationSkipsCall(t *testing.T) {
	spy := &spyGenerator{resp: groundedResponse("ok")}
	c := newTestClient(spy)

	params := validParams()
	params.DeliveryLocation = "   "

	_, err := c.FetchDeals(context.Background(), params)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrLocationRequired))
	assert.Zero(t, spy.calls)
}

func TestFetchDealsMissingCredential(t *testing.T) {
	cfg := testConfig()
	cfg.GeminiAPIKey = ""
	c := NewGeminiClient(cfg)

	_, err := c.FetchDeals(context.Background(), validParams())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrMissingCredential))
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
	assert.Nil(t, c.gen)
}

func TestFetchDealsTransportError(t *testing.T) {
	spy := &spyGenerator{err: errors.New("401 unauthorized")}
	c := newTestClient(spy)

	_, err := c.FetchDeals(context.Background(), validParams())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrRequestFailed))
	assert.Equal(t, 1, spy.calls, "a failed attempt is terminal, no retry")
}

func TestFetchDealsNilResponse(t *testing.T) {
	spy := &spyGenerator{}
	c := newTestClient(spy)

	_, err := c.FetchDeals(context.Background(), validParams())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrRequestFailed))
}

func TestFetchDealsReturnsRawResponse(t *testing.T) {
	want := groundedResponse("Found 3 options...")
	spy := &spyGenerator{resp: want}
	c := newTestClient(spy)

	got, err := c.FetchDeals(context.Background(), validParams())
	require.NoError(t, err)
	assert.Same(t, want, got, "the raw response must come back unmodified")
}

func TestFetchDealsRecordsTokenUsage(t *testing.T) {
	resp := groundedResponse("ok")
	resp.UsageMetadata = &genai.GenerateContentResponseUsageMetadata{
		PromptTokenCount:     120,
		CandidatesTokenCount: 300,
		TotalTokenCount:      420,
	}
	spy := &spyGenerator{resp: resp}
	c := newTestClient(spy)

	_, err := c.FetchDeals(context.Background(), validParams())
	require.NoError(t, err)

	stats := c.Stats.Snapshot()
	assert.Equal(t, 1, stats.TotalRequests)
	assert.Equal(t, int64(120), stats.TotalInputTokens)
	assert.Equal(t, int64(300), stats.TotalOutputTokens)
	assert.Equal(t, int64(420), stats.TotalTokens)
	assert.Equal(t, 1, stats.RequestsWithGrounding)
}

func TestBuildDealPromptEmbedsFullParams(t *testing.T) {
	params := validParams()
	min := 20.0
	params.BudgetMin = &min

	prompt := BuildDealPrompt(params)

	assert.Contains(t, prompt, `"product_query":"USB-C cable"`)
	assert.Contains(t, prompt, `"delivery_location":"Berlin"`)
	assert.Contains(t, prompt, `"budget_min":20`)
	assert.Contains(t, prompt, `"seller_risk_filter":true`)
	assert.True(t, strings.HasPrefix(prompt, "Act as VibeDeal"))
}
