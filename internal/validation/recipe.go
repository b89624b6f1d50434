package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// RecipeValidationResult describes how complete a rendered recipe document is.
type RecipeValidationResult struct {
	IsValid         bool     `json:"is_valid"`
	HasTitle        bool     `json:"has_title"`
	IngredientCount int      `json:"ingredient_count"`
	StepCount       int      `json:"step_count"`
	HasPlaceholders bool     `json:"has_placeholders"`
	Issues          []string `json:"issues"`
}

var (
	placeholderPattern = regexp.MustCompile(`(?i)^(n/?a|unknown|not specified|tbd|none|xxx+|\[.*\]|<.*>|\.\.\.)$`)
	bulletLine         = regexp.MustCompile(`^[•\-*]\s+(.*)$`)
	numberedLine       = regexp.MustCompile(`^\d+\.\s+(.*)$`)
)

// DetectPlaceholders reports whether text is empty or a stand-in value.
func DetectPlaceholders(text string) bool {
	text = strings.TrimSpace(text)
	return text == "" || placeholderPattern.MatchString(text)
}

// ValidateMarkdown inspects a "# title / **Ingredients:** / **Method:**"
// document and counts its bullets and numbered steps.
func ValidateMarkdown(markdown string) RecipeValidationResult {
	result := RecipeValidationResult{Issues: []string{}}

	lines := strings.Split(strings.TrimSpace(markdown), "\n")
	if len(lines) == 0 || !strings.HasPrefix(lines[0], "# ") {
		result.Issues = append(result.Issues, "Missing title heading")
	} else {
		result.HasTitle = true
		if DetectPlaceholders(strings.TrimPrefix(lines[0], "# ")) {
			result.HasPlaceholders = true
			result.Issues = append(result.Issues, "Title is a placeholder")
		}
	}

	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if m := bulletLine.FindStringSubmatch(line); m != nil {
			result.IngredientCount++
			if DetectPlaceholders(m[1]) {
				result.HasPlaceholders = true
			}
			continue
		}
		if m := numberedLine.FindStringSubmatch(line); m != nil {
			result.StepCount++
			if DetectPlaceholders(m[1]) {
				result.HasPlaceholders = true
			}
		}
	}

	if result.IngredientCount == 0 {
		result.Issues = append(result.Issues, "No ingredients listed")
	}
	if result.StepCount == 0 {
		result.Issues = append(result.Issues, "No method steps listed")
	}
	if result.HasPlaceholders {
		result.Issues = append(result.Issues, "Contains placeholder values")
	}

	result.IsValid = len(result.Issues) == 0
	return result
}

// CheckCompleteness compares the step count of the source's structured data
// with the extracted document. It returns a warning when the source has more
// than two steps beyond what was extracted, or "" otherwise.
func CheckCompleteness(sourceSteps int, markdown string) string {
	extracted := ValidateMarkdown(markdown).StepCount
	if sourceSteps > extracted+2 {
		return fmt.Sprintf("source recipe had %d steps, extraction kept %d", sourceSteps, extracted)
	}
	return ""
}
