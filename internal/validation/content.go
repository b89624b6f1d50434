package validation

import (
	"regexp"
	"strings"

	"github.com/socialchef/recipebox/internal/services/segmenter"
)

// ContentCheck summarises a source's raw text before extraction.
type ContentCheck struct {
	Chars int `json:"chars"`
	// CueLines counts lines carrying an ingredient cue or a cooking verb.
	CueLines int `json:"cue_lines"`
	// Signals is true when the text names a recipe section or has a numbered line.
	Signals bool `json:"signals"`
}

// Empty reports whether the source produced no text at all. Only an empty
// source skips the AI stage; thin text still goes through.
func (c ContentCheck) Empty() bool {
	return c.Chars == 0
}

// LooksLikeRecipe is advisory. It drives logging, never acceptance.
func (c ContentCheck) LooksLikeRecipe() bool {
	return c.Signals || c.CueLines >= 2
}

var recipeSignal = regexp.MustCompile(`(?i)\b(ingredients?|steps?|method|instructions?|directions?)\b|^\s*\d{1,2}[.)]\s`)

// CheckContent measures text against the segmentation lexicon.
func CheckContent(text string, lex segmenter.Lexicon) ContentCheck {
	text = strings.TrimSpace(text)
	check := ContentCheck{Chars: len([]rune(text))}
	if check.Chars == 0 {
		return check
	}

	for _, line := range strings.Split(text, "\n") {
		if lex.HasIngredientCue(line) || lex.HasCookingVerb(line) {
			check.CueLines++
		}
		if !check.Signals && recipeSignal.MatchString(line) {
			check.Signals = true
		}
	}
	return check
}

// HasRecipeSignals reports whether text names an ingredients or method
// section, or has a numbered line. Used to second-guess a model that
// reported no recipe.
func HasRecipeSignals(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if recipeSignal.MatchString(line) {
			return true
		}
	}
	return false
}
