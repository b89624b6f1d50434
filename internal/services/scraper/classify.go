package scraper

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var youTubePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/|youtube\.com/shorts/)`),
	regexp.MustCompile(`(?i)youtube\.com.*[?&]v=`),
}

// IsYouTubeURL reports whether u looks like a YouTube watch, short-link, shorts or embed URL.
func IsYouTubeURL(u string) bool {
	for _, re := range youTubePatterns {
		if re.MatchString(u) {
			return true
		}
	}
	return false
}

// Classify picks the extractor for u. Anything that is not a known video link is a web page.
func Classify(u string) SourceType {
	if IsYouTubeURL(u) {
		return SourceYouTube
	}
	return SourceWeb
}

// NormalizeURL trims raw, adds https:// when no scheme is given and checks
// that the result has a host.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Host == "" || strings.ContainsAny(u.Host, " \t") {
		return "", fmt.Errorf("%w: missing host in %q", ErrInvalidURL, raw)
	}
	return u.String(), nil
}

// Domain returns the host of u without a leading "www.", or "" when u does not parse.
func Domain(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}
