// Package segmenter splits plain recipe text into an ingredients block and a
// method block with a single forward scan.
package segmenter

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// State is the scanner position relative to the recipe sections.
type State int

const (
	Idle State = iota
	InIngredients
	InInstructions
)

func (s State) String() string {
	switch s {
	case InIngredients:
		return "in_ingredients"
	case InInstructions:
		return "in_instructions"
	default:
		return "idle"
	}
}

// maxHeadingLen bounds how long a line may be and still count as a heading.
const maxHeadingLen = 100

var (
	ingredientHeading  = regexp.MustCompile(`\bingredients?\b`)
	instructionHeading = regexp.MustCompile(`\b(instructions?|method|directions?|steps?)\b`)
	ingredientExit     = regexp.MustCompile(`\b(method|instructions?|directions?|steps?|nutrition|notes)\b`)
	instructionExit    = regexp.MustCompile(`\b(nutrition|notes|tips|faq)\b`)
	stepMarker         = regexp.MustCompile(`^\d+\.?\s+`)
)

// Sections are the pre-extracted line groups. Either may be empty.
type Sections struct {
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
}

// Empty reports whether neither block collected anything.
func (s Sections) Empty() bool {
	return len(s.Ingredients) == 0 && len(s.Instructions) == 0
}

type Segmenter struct {
	lex Lexicon
}

func New(lex Lexicon) *Segmenter {
	return &Segmenter{lex: lex}
}

// Segment runs the default-lexicon segmenter over text.
func Segment(text string) Sections {
	return New(DefaultLexicon()).Segment(text)
}

// Segment scans text line by line and collects ingredient and method lines.
func (s *Segmenter) Segment(text string) Sections {
	out := Sections{Ingredients: []string{}, Instructions: []string{}}

	state := Idle
	for _, raw := range strings.Split(text, "\n") {
		current := state
		var item string
		state, item = s.Step(state, strings.TrimSpace(raw))
		if item == "" {
			continue
		}
		switch current {
		case InIngredients:
			out.Ingredients = append(out.Ingredients, item)
		case InInstructions:
			out.Instructions = append(out.Instructions, item)
		}
	}
	return out
}

// Step applies one line to the machine. It returns the next state and the
// text to collect into the current state's block, or "" to collect nothing.
//
// Heading detection runs before the per-state rules, in every state.
func (s *Segmenter) Step(state State, line string) (State, string) {
	if line == "" {
		return state, ""
	}

	lower := strings.ToLower(line)
	if utf8.RuneCountInString(line) < maxHeadingLen {
		if ingredientHeading.MatchString(lower) {
			return InIngredients, ""
		}
		if instructionHeading.MatchString(lower) {
			return InInstructions, ""
		}
	}

	switch state {
	case InIngredients:
		if ingredientExit.MatchString(lower) {
			if strings.Contains(lower, "instructions") || strings.Contains(lower, "method") {
				return InInstructions, ""
			}
			return Idle, ""
		}
		if bullet, ok := s.lex.BulletPrefix(line); ok {
			return InIngredients, strings.TrimSpace(strings.TrimPrefix(line, bullet))
		}
		if s.lex.HasIngredientCue(lower) {
			return InIngredients, line
		}
		return InIngredients, ""

	case InInstructions:
		if instructionExit.MatchString(lower) {
			return Idle, ""
		}
		if stepMarker.MatchString(line) || strings.HasPrefix(lower, "step") || s.lex.HasCookingVerb(lower) {
			return InInstructions, line
		}
		return InInstructions, ""

	default:
		return Idle, ""
	}
}
