// Package formatter renders recipe documents as Markdown, either from model
// output or deterministically from the scraped document itself.
package formatter

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/socialchef/recipebox/internal/services/ai"
	"github.com/socialchef/recipebox/internal/services/scraper"
	"github.com/socialchef/recipebox/internal/services/segmenter"
)

const (
	DefaultTitle = "Untitled Recipe"

	maxIngredients  = 20
	maxSteps        = 15
	maxHeadingRunes = 50

	noIngredients  = "No ingredients found"
	noInstructions = "No instructions found"
)

var (
	ingredientHeading = regexp.MustCompile(`(?i)\bingredients?\b`)
	ingredientStop    = regexp.MustCompile(`(?i)\b(method|instructions?|directions?|steps?)\b`)
	trailingSection   = regexp.MustCompile(`(?i)^(notes?|nutrition|tips)\b`)
	stepWord          = regexp.MustCompile(`(?i)^step\s*\d+\s*[:.)\-]?\s*`)
	stepNumeral       = regexp.MustCompile(`^\d{1,2}[.)]\s*`)
	quantityStart     = regexp.MustCompile(`^(\d|[½⅓⅔¼¾⅛])`)
)

// Formatter builds the recipe Markdown without a model.
type Formatter struct {
	lex segmenter.Lexicon
}

func New(lex segmenter.Lexicon) *Formatter {
	return &Formatter{lex: lex}
}

// Format runs the default-lexicon formatter over doc.
func Format(doc *scraper.ScrapedDocument) string {
	return New(segmenter.DefaultLexicon()).Format(doc)
}

// Format renders doc as "# title / **Ingredients:** / **Method:**" Markdown.
// Each list comes from structured data when present, else the segmented
// sections, else a re-scan of the raw lines. When both lists come up empty
// the result is ai.NoRecipeSentinel.
func (f *Formatter) Format(doc *scraper.ScrapedDocument) string {
	ingredients := clean(doc.Structured.Ingredients())
	if len(ingredients) == 0 {
		ingredients = clean(doc.Sections.Ingredients)
	}
	if len(ingredients) == 0 {
		ingredients = f.scanIngredients(doc.RawText)
	}

	instructions := cleanSteps(doc.Structured.Instructions())
	if len(instructions) == 0 {
		instructions = cleanSteps(doc.Sections.Instructions)
	}
	if len(instructions) == 0 {
		instructions = f.scanSteps(doc.RawText)
	}

	if len(ingredients) == 0 && len(instructions) == 0 {
		return ai.NoRecipeSentinel
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n**Ingredients:**\n", f.Title(doc))
	if len(ingredients) == 0 {
		sb.WriteString("• " + noIngredients + "\n")
	}
	for i, ing := range ingredients {
		if i == maxIngredients {
			break
		}
		sb.WriteString("• " + ConvertToMetric(ing) + "\n")
	}

	sb.WriteString("\n**Method:**\n")
	if len(instructions) == 0 {
		sb.WriteString("1. " + noInstructions + "\n")
	}
	for i, step := range instructions {
		if i == maxSteps {
			break
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, ConvertToMetric(step))
	}

	return strings.TrimRight(sb.String(), "\n")
}

// Title picks the structured recipe name, else the page title up to the
// first site-name separator, else DefaultTitle.
func (f *Formatter) Title(doc *scraper.ScrapedDocument) string {
	if name := strings.TrimSpace(doc.Structured.Name()); name != "" {
		return name
	}

	title := doc.SourceTitle
	for _, sep := range f.lex.TitleSeparators {
		if before, _, ok := strings.Cut(title, sep); ok {
			title = before
		}
	}
	if title = strings.TrimSpace(title); title != "" {
		return title
	}
	return DefaultTitle
}

// scanIngredients collects lines carrying a unit or size word from inside a
// short ingredients heading up to the method heading.
func (f *Formatter) scanIngredients(text string) []string {
	var out []string
	inSection := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case ingredientHeading.MatchString(line) && utf8.RuneCountInString(line) < maxHeadingRunes:
			inSection = true
		case inSection && ingredientStop.MatchString(line):
			return out
		case inSection && line != "" && f.lex.HasFallbackUnit(line):
			if bullet, ok := f.lex.BulletPrefix(line); ok {
				line = strings.TrimSpace(strings.TrimPrefix(line, bullet))
			}
			out = append(out, line)
		}
	}
	return out
}

// scanSteps accumulates numbered steps. Unnumbered lines after a step are
// continuations of it; before the first step a cooking verb may start one.
func (f *Formatter) scanSteps(text string) []string {
	var steps []string
	var current string
	started := false

	flush := func() {
		if current = strings.TrimSpace(current); current != "" {
			steps = append(steps, current)
		}
		current = ""
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}

		if body, ok := stepBody(line); ok {
			flush()
			current = body
			started = true
			continue
		}

		switch {
		case started && trailingSection.MatchString(line):
			flush()
			return steps
		case started:
			current += " " + line
		case f.implicitStep(line):
			current = line
			started = true
		}
	}
	flush()
	return steps
}

// implicitStep reports whether an unnumbered line may open the method.
// Headings and quantity lines are ingredients, not steps.
func (f *Formatter) implicitStep(line string) bool {
	if ingredientHeading.MatchString(line) || quantityStart.MatchString(line) {
		return false
	}
	if _, ok := f.lex.BulletPrefix(line); ok {
		return false
	}
	return f.lex.HasCookingVerb(line)
}

// stepBody strips a "Step 3", "3." or "3)" marker. A numeral directly
// followed by another digit is a decimal quantity, not a marker.
func stepBody(line string) (string, bool) {
	if m := stepWord.FindString(line); m != "" {
		return strings.TrimSpace(line[len(m):]), true
	}
	if m := stepNumeral.FindString(line); m != "" {
		rest := line[len(m):]
		if rest != "" && rest[0] >= '0' && rest[0] <= '9' {
			return "", false
		}
		return strings.TrimSpace(rest), true
	}
	return "", false
}

func clean(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.Join(strings.Fields(item), " "); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func cleanSteps(items []string) []string {
	out := clean(items)
	kept := out[:0]
	for _, item := range out {
		if body, ok := stepBody(item); ok {
			item = body
		}
		if item != "" {
			kept = append(kept, item)
		}
	}
	return kept
}
