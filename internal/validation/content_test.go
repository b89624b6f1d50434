package validation

import (
	"testing"

	"github.com/socialchef/recipebox/internal/services/segmenter"
)

func TestCheckContent(t *testing.T) {
	lex := segmenter.DefaultLexicon()

	tests := []struct {
		name      string
		text      string
		wantEmpty bool
		wantChars int
		wantCues  int
		wantLike  bool
	}{
		{name: "whitespace only", text: " \n\t ", wantEmpty: true},
		{name: "thin but present", text: "2 eggs", wantChars: 6},
		{name: "runes not bytes", text: "crème", wantChars: 5},
		{name: "ingredient and verb lines", text: "200g flour\n1 onion\nFry until golden", wantChars: 35, wantCues: 3, wantLike: true},
		{name: "section heading", text: "Ingredients:\n2 eggs", wantChars: 19, wantLike: true},
		{name: "prose", text: "Dear diary,\ntoday was sunny", wantChars: 27},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckContent(tt.text, lex)
			if got.Empty() != tt.wantEmpty {
				t.Errorf("Empty() = %v, want %v", got.Empty(), tt.wantEmpty)
			}
			if got.Chars != tt.wantChars {
				t.Errorf("Chars = %d, want %d", got.Chars, tt.wantChars)
			}
			if got.CueLines != tt.wantCues {
				t.Errorf("CueLines = %d, want %d", got.CueLines, tt.wantCues)
			}
			if got.LooksLikeRecipe() != tt.wantLike {
				t.Errorf("LooksLikeRecipe() = %v, want %v", got.LooksLikeRecipe(), tt.wantLike)
			}
		})
	}
}

func TestCheckContent_ExtendedLexicon(t *testing.T) {
	lex := segmenter.DefaultLexicon().Merge(segmenter.Lexicon{CookingVerbs: []string{"braise"}})

	if got := CheckContent("Braise slowly\nthen rest", lex).CueLines; got != 1 {
		t.Errorf("CueLines = %d, want 1 with braise added", got)
	}
}

func TestHasRecipeSignals(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Ingredients:\n2 eggs", true},
		{"Steps:\n1. Beat eggs", true},
		{"just some words\n3) whisk", true},
		{"Dear diary,\ntoday was sunny", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := HasRecipeSignals(tt.text); got != tt.want {
			t.Errorf("HasRecipeSignals(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
