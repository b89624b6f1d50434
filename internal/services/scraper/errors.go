package scraper

import "errors"

var (
	ErrInvalidURL       = errors.New("invalid URL")
	ErrFetchFailed      = errors.New("fetch failed")
	ErrVideoUnavailable = errors.New("video unavailable")
	ErrNoCaptions       = errors.New("no captions or description")
)
