package formatter

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/socialchef/recipebox/internal/services/ai"
	"github.com/socialchef/recipebox/internal/services/scraper"
)

// PhotoTitle is the fallback file title for photo recipes.
const PhotoTitle = "Photo Recipe"

const noRecipeDocument = `# No Recipe Found

**URL:** %s

Could not extract a clear recipe from this URL. The page may not contain a recipe or may be behind a paywall.`

var codeFence = regexp.MustCompile("(?s)^```[a-zA-Z]*[ \\t]*\\n(.*?)\\n?```$")

// IsNoRecipe reports whether text is the no-recipe sentinel.
func IsNoRecipe(text string) bool {
	return strings.TrimSpace(text) == ai.NoRecipeSentinel
}

// NormalizeAIResponse unwraps a fenced reply, trims it, reduces a quoted
// sentinel to the bare sentinel and rewrites stray Fahrenheit temperatures.
func NormalizeAIResponse(text string) string {
	text = strings.TrimSpace(text)
	if m := codeFence.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}
	if strings.Trim(text, "\"'` .") == ai.NoRecipeSentinel {
		return ai.NoRecipeSentinel
	}
	return ConvertTemperatures(text)
}

// Assemble produces the final document. The sentinel becomes the fixed
// "No Recipe Found" page; otherwise the source URL line is spliced in after
// the title unless the text already mentions the URL.
func Assemble(text string, doc *scraper.ScrapedDocument) string {
	if IsNoRecipe(text) {
		return fmt.Sprintf(noRecipeDocument, doc.SourceURL)
	}
	if doc.SourceURL == "" || strings.Contains(text, doc.SourceURL) {
		return text
	}

	// Blank lines between the title and the body collapse into the URL block.
	title, rest, _ := strings.Cut(text, "\n")
	return title + "\n\n**URL:** " + doc.SourceURL + "\n\n" + strings.TrimLeft(rest, "\n")
}

// DeriveTitle returns the text of the first line when it is a "# " heading.
func DeriveTitle(markdown, fallback string) string {
	first, _, _ := strings.Cut(strings.TrimLeft(markdown, "\n"), "\n")
	if title, ok := strings.CutPrefix(strings.TrimSpace(first), "# "); ok {
		if title = strings.TrimSpace(title); title != "" {
			return title
		}
	}
	return fallback
}

// DefaultTitleFor is the title used when a document has no heading.
func DefaultTitleFor(sourceType scraper.SourceType) string {
	if sourceType == scraper.SourcePhotoOCR {
		return PhotoTitle
	}
	return DefaultTitle
}

// Filename names the stored recipe: recipe_<domain>_<timestamp>.md, or
// recipe_photo_<timestamp>.md for photos.
func Filename(doc *scraper.ScrapedDocument, now time.Time) string {
	ts := now.Format("20060102_150405")
	if doc.SourceType == scraper.SourcePhotoOCR {
		return "recipe_photo_" + ts + ".md"
	}

	domain := strings.ReplaceAll(scraper.Domain(doc.SourceURL), "/", "_")
	if domain == "" {
		domain = "unknown"
	}
	return fmt.Sprintf("recipe_%s_%s.md", domain, ts)
}
