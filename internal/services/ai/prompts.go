package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/socialchef/recipebox/internal/services/scraper"
)

// NoRecipeSentinel is the exact reply the model gives when the content holds no recipe.
const NoRecipeSentinel = "NO_RECIPE_FOUND"

// SystemPrompt is sent as the system message with every extraction request.
const SystemPrompt = "You are a recipe extraction expert specializing in converting cooking content into clean, minimalist, metric-based recipes. Your priority is capturing ALL cooking steps and ingredients without omission. Focus on thoroughness and accuracy."

const roleSection = `You're a recipe extraction expert. Extract ONLY the essential recipe info from this content.`

const completenessSection = `CRITICAL: You MUST include ALL cooking steps. Do not skip any steps, even if they seem minor.`

const outputFormatSection = `Return in this EXACT format:
# [Recipe Name]

**Ingredients:**
• [ingredient 1]
• [ingredient 2]
...

**Method:**
1. [step 1]
2. [step 2]
3. [step 3]
...`

const extractionRulesSection = `EXTRACTION RULES:
- Convert ALL measurements to METRIC: grams (g), ml, litres, Celsius (°C)
- Examples: "225g flour", "500ml milk", "180°C", "2 tbsp = 30ml"
- Keep ingredient format: "225g plain flour" not "flour (225g)"
- Include EVERY cooking step - do not combine or skip steps
- Include ESSENTIAL cooking details: temperatures, times, visual cues, doneness indicators
- Examples: "brown until golden", "rest 30 minutes", "cook until internal temp 74°C", "simmer until thickened"
- Convert Fahrenheit to Celsius: 350°F = 175°C, 375°F = 190°C, 165°F = 74°C
- Keep steps direct but include critical timing/visual cues
- Remove fluff, ads, life stories, nutrition info, but keep ALL technical cooking steps
- Look carefully through the content for ALL method/instructions/steps
- Pay special attention to pre-extracted ingredients and instructions sections
- Ignore navigation, comments, ratings, related recipes, subscription offers`

const closingRulesSection = `- If no clear recipe exists, return only: "` + NoRecipeSentinel + `"
- Don't include URL in output
- Be thorough - include every step mentioned in the original recipe

DOUBLE-CHECK: Ensure you haven't missed any cooking steps from the original recipe.`

// sourceContext returns the context sentence and the extra rule line for a source type.
func sourceContext(sourceType scraper.SourceType) (string, string) {
	switch sourceType {
	case scraper.SourceYouTube:
		return "This is a transcript from a YouTube cooking video.",
			`- For video transcripts: ignore "like and subscribe", introductions, and off-topic chat`
	case scraper.SourcePhotoOCR:
		return "This is OCR text extracted from a photo of a recipe.",
			"- For OCR text: ignore any misread characters, focus on extracting the recipe content"
	default:
		return "This is from a recipe webpage.", ""
	}
}

// BuildContent layers the document's content most-reliable first: structured
// data, then pre-extracted sections, then the full text.
func BuildContent(doc *scraper.ScrapedDocument) string {
	var sb strings.Builder

	if doc.Structured != nil && len(doc.Structured.Raw) > 0 {
		if data, err := json.MarshalIndent(doc.Structured.Raw, "", "  "); err == nil {
			sb.WriteString("STRUCTURED DATA:\n")
			sb.Write(data)
			sb.WriteString("\n\n")
		}
	}

	text := strings.TrimSpace(doc.RawText)
	if doc.Sections.Empty() {
		sb.WriteString(text)
		return sb.String()
	}

	if len(doc.Sections.Ingredients) > 0 {
		sb.WriteString("PRE-EXTRACTED INGREDIENTS:\n")
		sb.WriteString(strings.Join(doc.Sections.Ingredients, "\n"))
		sb.WriteString("\n\n")
	}
	if len(doc.Sections.Instructions) > 0 {
		sb.WriteString("PRE-EXTRACTED INSTRUCTIONS:\n")
		sb.WriteString(strings.Join(doc.Sections.Instructions, "\n"))
		sb.WriteString("\n\n")
	}
	sb.WriteString("FULL PAGE CONTENT:\n")
	sb.WriteString(text)
	return sb.String()
}

// BuildExtractionPrompt builds the user prompt for one document.
func BuildExtractionPrompt(doc *scraper.ScrapedDocument) string {
	intro, rule := sourceContext(doc.SourceType)

	var sb strings.Builder
	sb.WriteString(roleSection)
	sb.WriteString("\n\n")
	sb.WriteString(intro)
	sb.WriteString("\n\n")
	sb.WriteString(completenessSection)
	sb.WriteString("\n\n")
	sb.WriteString(outputFormatSection)
	sb.WriteString("\n\n")
	sb.WriteString(extractionRulesSection)
	sb.WriteString("\n")
	if rule != "" {
		sb.WriteString(rule)
		sb.WriteString("\n")
	}
	sb.WriteString(closingRulesSection)
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("URL: %s\n\nContent:\n", doc.SourceURL))
	sb.WriteString(BuildContent(doc))
	sb.WriteString("\n")

	return sb.String()
}
