package formatter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/socialchef/recipebox/internal/services/scraper"
)

func TestAssemble(t *testing.T) {
	doc := &scraper.ScrapedDocument{SourceURL: "https://example.com/soup"}

	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "sentinel",
			text: " NO_RECIPE_FOUND\n",
			want: "# No Recipe Found\n\n**URL:** https://example.com/soup\n\nCould not extract a clear recipe from this URL. The page may not contain a recipe or may be behind a paywall.",
		},
		{
			name: "url spliced after title",
			text: "# Soup\n**Ingredients:**\n• 1 onion",
			want: "# Soup\n\n**URL:** https://example.com/soup\n\n**Ingredients:**\n• 1 onion",
		},
		{
			name: "blank line after title not doubled",
			text: "# Soup\n\n**Ingredients:**\n• 1 onion",
			want: "# Soup\n\n**URL:** https://example.com/soup\n\n**Ingredients:**\n• 1 onion",
		},
		{
			name: "url already present",
			text: "# Soup\n\n**URL:** https://example.com/soup\n\nbody",
			want: "# Soup\n\n**URL:** https://example.com/soup\n\nbody",
		},
		{
			name: "single line",
			text: "# Soup",
			want: "# Soup\n\n**URL:** https://example.com/soup\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Assemble(tt.text, doc)
			assert.Equal(t, tt.want, got)

			again := Assemble(tt.text, doc)
			assert.Equal(t, got, again, "assembly must be deterministic")
		})
	}
}

func TestNormalizeAIResponse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  # Soup\n\n**Ingredients:**  \n", "# Soup\n\n**Ingredients:**"},
		{"fenced", "```markdown\n# Soup\n• 1 onion\n```", "# Soup\n• 1 onion"},
		{"bare fence", "```\n# Soup\n```", "# Soup"},
		{"quoted sentinel", `"NO_RECIPE_FOUND"`, "NO_RECIPE_FOUND"},
		{"sentinel with period", "NO_RECIPE_FOUND.", "NO_RECIPE_FOUND"},
		{"fahrenheit rewritten", "# Cake\n1. Bake at 350°F", "# Cake\n1. Bake at 175°C"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeAIResponse(tt.in); got != tt.want {
				t.Errorf("NormalizeAIResponse() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeriveTitle(t *testing.T) {
	assert.Equal(t, "Soup", DeriveTitle("# Soup\n\nbody", DefaultTitle))
	assert.Equal(t, "Soup", DeriveTitle("\n#  Soup  \nbody", DefaultTitle))
	assert.Equal(t, "Untitled Recipe", DeriveTitle("Soup\n# Not first", DefaultTitle))
	assert.Equal(t, "Photo Recipe", DeriveTitle("", DefaultTitleFor(scraper.SourcePhotoOCR)))
	assert.Equal(t, "Untitled Recipe", DefaultTitleFor(scraper.SourceYouTube))
}

func TestFilename(t *testing.T) {
	now := time.Date(2025, 3, 9, 14, 5, 7, 0, time.UTC)

	tests := []struct {
		name string
		doc  *scraper.ScrapedDocument
		want string
	}{
		{"web", &scraper.ScrapedDocument{SourceURL: "https://www.bbcgoodfood.com/recipes/x", SourceType: scraper.SourceWeb}, "recipe_bbcgoodfood.com_20250309_140507.md"},
		{"video", &scraper.ScrapedDocument{SourceURL: "https://youtu.be/abc", SourceType: scraper.SourceYouTube}, "recipe_youtu.be_20250309_140507.md"},
		{"photo", &scraper.ScrapedDocument{SourceURL: scraper.PhotoSourceURL, SourceType: scraper.SourcePhotoOCR}, "recipe_photo_20250309_140507.md"},
		{"no host", &scraper.ScrapedDocument{SourceURL: "", SourceType: scraper.SourceWeb}, "recipe_unknown_20250309_140507.md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename(tt.doc, now))
		})
	}
}
