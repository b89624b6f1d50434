package scraper

import (
	"regexp"
	"strings"
	"time"
)

// PhotoTitle names documents built from photo uploads.
const PhotoTitle = "Recipe from Photo"

const ocrPunctuation = ".,;:!?-_=~*"

var (
	ocrHeading     = regexp.MustCompile(`(?i)\b(ingredients?|method|instructions?|directions?|steps?)\s*:`)
	ocrStepNumeral = regexp.MustCompile(`\s(\d{1,2})[.)]\s+`)
	ocrIngredient  = regexp.MustCompile(`(?i)^ingredients?:$`)
	ocrOtherHead   = regexp.MustCompile(`(?i)^(method|instructions?|directions?|steps?):$`)
	fractionStart  = regexp.MustCompile(`^(\d|[½⅓⅔¼¾⅛])`)
)

// NormalizeOCRText cleans text recognised from a recipe photo into one item
// per line. Whitespace and repeated punctuation are collapsed, inline section
// headings and step numerals are moved onto their own lines, and comma
// separated quantity lists under an ingredients heading are split apart.
func NormalizeOCRText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = collapsePunctuationRuns(strings.Join(strings.Fields(line), " "))
	}
	text = strings.Join(lines, "\n")

	text = ocrHeading.ReplaceAllString(text, "\n$1:\n")
	text = ocrStepNumeral.ReplaceAllString(text, "\n$1. ")

	var out []string
	inIngredients := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case ocrIngredient.MatchString(line):
			inIngredients = true
			out = append(out, line)
			continue
		case ocrOtherHead.MatchString(line):
			inIngredients = false
			out = append(out, line)
			continue
		}

		if inIngredients {
			out = append(out, splitQuantityList(strings.TrimRight(line, "."))...)
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// splitQuantityList splits "2 eggs, 100g sugar" into separate items when
// every comma separated part starts with a quantity.
func splitQuantityList(line string) []string {
	if !strings.Contains(line, ",") {
		return []string{line}
	}
	parts := strings.Split(line, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
		if !fractionStart.MatchString(parts[i]) {
			return []string{line}
		}
	}
	return parts
}

func collapsePunctuationRuns(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		if r == prev && strings.ContainsRune(ocrPunctuation, r) {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

// NewPhotoDocument wraps OCR text as a photo-sourced document. Photo text is
// not segmented; the prompt and fallback read the normalized lines directly.
func NewPhotoDocument(ocrText string) *ScrapedDocument {
	return &ScrapedDocument{
		SourceURL:   PhotoSourceURL,
		SourceTitle: PhotoTitle,
		SourceType:  SourcePhotoOCR,
		RawText:     NormalizeOCRText(ocrText),
		CapturedAt:  time.Now().UTC(),
	}
}
