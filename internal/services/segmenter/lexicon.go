package segmenter

import "strings"

// Lexicon holds the hand-tuned English word lists the heuristics match against.
// Matching is case-insensitive substring matching, so entries are stored lowercase.
type Lexicon struct {
	// Bullets are leading glyphs that mark a list item inside an ingredients block.
	Bullets []string
	// IngredientCues make a non-bulleted line count as an ingredient while
	// inside an ingredients block.
	IngredientCues []string
	// CookingVerbs make a line count as a method step while inside an
	// instructions block. They also let the fallback start a step implicitly.
	CookingVerbs []string
	// FallbackUnits are the unit/descriptor words the fallback re-scan
	// accepts inside an ingredients heading.
	FallbackUnits []string
	// TitleSeparators split site names off page titles ("Pancakes | Site").
	TitleSeparators []string
}

// DefaultLexicon returns the built-in English lexicon.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Bullets:        []string{"▢", "•", "-", "*"},
		IngredientCues: []string{"g ", "ml", "tbsp", "tsp", "cup", "oz", "lb", "clove", "onion", "garlic"},
		CookingVerbs:   []string{"cook", "add", "heat", "stir", "mix", "drain", "serve", "fry", "bake"},
		FallbackUnits: []string{
			"tbsp", "tsp", "cup", "ml", "g", "kg", "lb", "oz", "clove", "small", "large", "medium",
		},
		TitleSeparators: []string{"|", " – ", " — ", " - "},
	}
}

// Merge returns l with extra's entries appended, skipping duplicates.
func (l Lexicon) Merge(extra Lexicon) Lexicon {
	return Lexicon{
		Bullets:         appendUnique(l.Bullets, extra.Bullets, false),
		IngredientCues:  appendUnique(l.IngredientCues, extra.IngredientCues, true),
		CookingVerbs:    appendUnique(l.CookingVerbs, extra.CookingVerbs, true),
		FallbackUnits:   appendUnique(l.FallbackUnits, extra.FallbackUnits, true),
		TitleSeparators: appendUnique(l.TitleSeparators, extra.TitleSeparators, false),
	}
}

// BulletPrefix returns the bullet glyph line starts with, if any.
func (l Lexicon) BulletPrefix(line string) (string, bool) {
	for _, b := range l.Bullets {
		if strings.HasPrefix(line, b) {
			return b, true
		}
	}
	return "", false
}

// HasIngredientCue reports whether the line contains a unit or common-ingredient word.
func (l Lexicon) HasIngredientCue(line string) bool {
	return containsAny(strings.ToLower(line), l.IngredientCues)
}

// HasCookingVerb reports whether the line contains a cooking-action verb.
func (l Lexicon) HasCookingVerb(line string) bool {
	return containsAny(strings.ToLower(line), l.CookingVerbs)
}

// HasFallbackUnit reports whether the line contains a unit or size descriptor.
func (l Lexicon) HasFallbackUnit(line string) bool {
	return containsAny(strings.ToLower(line), l.FallbackUnits)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func appendUnique(base, extra []string, lower bool) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]struct{}, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, v := range list {
			if lower {
				v = strings.ToLower(v)
			}
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
