package scraper

import (
	"html"
	"regexp"
	"strings"
)

var (
	vttTag       = regexp.MustCompile(`<[^>]+>`)
	vttCueIndex  = regexp.MustCompile(`^\d+$`)
	vttMetaLines = []string{"WEBVTT", "NOTE", "Kind:", "Language:", "STYLE", "REGION"}
)

// ParseVTT flattens a WebVTT caption file into a single line of spoken text.
// Header and metadata lines, cue timings and numeric cue indexes are dropped,
// inline tags are stripped and entities decoded. Rolling captions repeat the
// previous cue, so consecutive duplicate lines are kept once.
func ParseVTT(content string) string {
	var parts []string
	last := ""
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isVTTMeta(line) || strings.Contains(line, "-->") || vttCueIndex.MatchString(line) {
			continue
		}

		line = html.UnescapeString(vttTag.ReplaceAllString(line, ""))
		line = strings.Join(strings.Fields(line), " ")
		if line == "" || line == last {
			continue
		}
		parts = append(parts, line)
		last = line
	}
	return strings.Join(parts, " ")
}

func isVTTMeta(line string) bool {
	for _, prefix := range vttMetaLines {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
