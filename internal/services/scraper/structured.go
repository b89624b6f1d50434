package scraper

import (
	"encoding/json"
	"html"
	"log/slog"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
)

// StructuredRecipe is a schema.org Recipe object embedded in a page as JSON-LD.
// The raw object is kept whole so it can be shown to the model verbatim.
type StructuredRecipe struct {
	Raw map[string]any
}

func (r *StructuredRecipe) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Raw)
}

func (r *StructuredRecipe) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &r.Raw)
}

// Name returns the recipe's name field, cleaned.
func (r *StructuredRecipe) Name() string {
	if r == nil {
		return ""
	}
	s, _ := r.Raw["name"].(string)
	return cleanText(s)
}

// Ingredients returns recipeIngredient (or the legacy ingredients field) as strings.
func (r *StructuredRecipe) Ingredients() []string {
	if r == nil {
		return nil
	}
	v, ok := r.Raw["recipeIngredient"]
	if !ok {
		v = r.Raw["ingredients"]
	}

	var out []string
	switch items := v.(type) {
	case string:
		if s := cleanText(items); s != "" {
			out = append(out, s)
		}
	case []any:
		for _, item := range items {
			if s, ok := item.(string); ok {
				if s = cleanText(s); s != "" {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

// Instructions flattens recipeInstructions into one string per step. Entries
// may be plain strings, HowToStep objects with a text field, or HowToSection
// objects whose itemListElement holds steps.
func (r *StructuredRecipe) Instructions() []string {
	if r == nil {
		return nil
	}
	var out []string
	collectInstructions(r.Raw["recipeInstructions"], &out)
	return out
}

func collectInstructions(v any, out *[]string) {
	switch item := v.(type) {
	case string:
		// A single string often carries every step separated by newlines.
		for _, line := range strings.Split(item, "\n") {
			if s := cleanText(line); s != "" {
				*out = append(*out, s)
			}
		}
	case []any:
		for _, child := range item {
			collectInstructions(child, out)
		}
	case map[string]any:
		if elements, ok := item["itemListElement"]; ok {
			collectInstructions(elements, out)
			return
		}
		text, _ := item["text"].(string)
		if text == "" {
			text, _ = item["name"].(string)
		}
		if s := cleanText(text); s != "" {
			*out = append(*out, s)
		}
	}
}

// extractStructuredRecipe scans JSON-LD script blocks for the first object
// whose @type is or contains "Recipe". Blocks that fail to parse are skipped.
func extractStructuredRecipe(doc *goquery.Document) *StructuredRecipe {
	var found *StructuredRecipe
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(i int, s *goquery.Selection) bool {
		var payload any
		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			slog.Debug("Skipping malformed JSON-LD block", "index", i, "error", err)
			return true
		}
		if recipe := findRecipe(payload); recipe != nil {
			found = &StructuredRecipe{Raw: recipe}
			return false
		}
		return true
	})
	return found
}

func findRecipe(v any) map[string]any {
	switch node := v.(type) {
	case []any:
		for _, child := range node {
			if recipe := findRecipe(child); recipe != nil {
				return recipe
			}
		}
	case map[string]any:
		if isRecipeType(node["@type"]) {
			return node
		}
		if graph, ok := node["@graph"]; ok {
			return findRecipe(graph)
		}
	}
	return nil
}

func isRecipeType(v any) bool {
	switch t := v.(type) {
	case string:
		return strings.Contains(t, "Recipe")
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.Contains(s, "Recipe") {
				return true
			}
		}
	}
	return false
}

// cleanText turns a JSON-LD string (sometimes HTML, often entity-encoded) into one plain line.
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.Contains(s, "<") && strings.Contains(s, ">") {
		if md, err := htmltomarkdown.ConvertString(s); err == nil {
			s = md
		}
	}
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}
