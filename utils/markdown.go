package utils

import (
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"google.golang.org/genai"

	"github.com/Joenasriani/vibedeal/models"
)

// NarrativeText concatenates the text parts of the first candidate.
// Grounded responses carry their answer as plain Markdown prose.
func NarrativeText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return ""
	}
	var out string
	for _, part := range cand.Content.Parts {
		if part != nil && part.Text != "" {
			out += part.Text
		}
	}
	return out
}

// RenderNarrative converts the model's Markdown answer to HTML for
// the page. The text is handed over verbatim; no parsing of offers is
// attempted.
func RenderNarrative(md string) string {
	if md == "" {
		return ""
	}
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(md))

	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank,
	})
	return string(markdown.Render(doc, renderer))
}

// ExtractCitations walks the grounding metadata of the first
// candidate and collects every web or maps source. Chunks carrying
// neither variant are skipped.
func ExtractCitations(resp *genai.GenerateContentResponse) []models.Citation {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	meta := resp.Candidates[0].GroundingMetadata
	if meta == nil {
		return nil
	}

	var citations []models.Citation
	for _, chunk := range meta.GroundingChunks {
		if chunk == nil {
			continue
		}
		switch {
		case chunk.Web != nil:
			citations = append(citations, models.Citation{
				URI:   chunk.Web.URI,
				Title: chunk.Web.Title,
				Kind:  "web",
			})
		case chunk.Maps != nil:
			citations = append(citations, models.Citation{
				URI:   chunk.Maps.URI,
				Title: chunk.Maps.Title,
				Kind:  "maps",
			})
		}
	}
	return citations
}
