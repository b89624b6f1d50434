package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/socialchef/recipebox/internal/httpclient"
	"github.com/socialchef/recipebox/internal/metrics"
	"github.com/socialchef/recipebox/internal/services/segmenter"
)

const maxBodyBytes = 10 << 20

// HTTPDoer is the network fetcher. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type WebOptions struct {
	Timeout         time.Duration
	UserAgent       string
	MaxContentChars int
	Lexicon         segmenter.Lexicon
	// Client overrides the instrumented browser client, mainly for tests.
	Client HTTPDoer
}

// WebExtractor turns a recipe web page into a ScrapedDocument.
type WebExtractor struct {
	client          HTTPDoer
	timeout         time.Duration
	userAgent       string
	maxContentChars int
	segmenter       *segmenter.Segmenter
}

func NewWebExtractor(opts WebOptions) *WebExtractor {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxContentChars == 0 {
		opts.MaxContentChars = 15000
	}
	if opts.Lexicon.Bullets == nil {
		opts.Lexicon = segmenter.DefaultLexicon()
	}
	client := opts.Client
	if client == nil {
		client = httpclient.NewBrowserClient(opts.Timeout, opts.UserAgent)
	}
	return &WebExtractor{
		client:          client,
		timeout:         opts.Timeout,
		userAgent:       opts.UserAgent,
		maxContentChars: opts.MaxContentChars,
		segmenter:       segmenter.New(opts.Lexicon),
	}
}

// Extract fetches pageURL and builds its document. Any network or HTTP
// failure is returned wrapped in ErrFetchFailed.
func (e *WebExtractor) Extract(ctx context.Context, pageURL string) (*ScrapedDocument, error) {
	body, contentType, err := e.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	// Uncertain guesses only look at the first 1024 bytes.
	if enc, name, certain := charset.DetermineEncoding(body, contentType); name != "utf-8" && (certain || !utf8.Valid(body)) {
		if decoded, err := enc.NewDecoder().Bytes(body); err == nil {
			body = decoded
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrFetchFailed, pageURL, err)
	}

	// JSON-LD lives in script tags, so read it before the noise goes.
	structured := extractStructuredRecipe(doc)

	doc.Find(strings.Join(noiseSelectors, ", ")).Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	text := truncateRunes(collapseLines(visibleText(doc.Nodes)), e.maxContentChars)
	sections := e.segmenter.Segment(text)

	slog.Debug("Extracted web page",
		"url", pageURL,
		"title", title,
		"chars", len(text),
		"structured", structured != nil,
		"ingredients", len(sections.Ingredients),
		"instructions", len(sections.Instructions),
	)

	return &ScrapedDocument{
		SourceURL:   pageURL,
		SourceTitle: title,
		SourceType:  SourceWeb,
		RawText:     text,
		Structured:  structured,
		Sections:    sections,
		CapturedAt:  time.Now().UTC(),
	}, nil
}

func (e *WebExtractor) fetch(ctx context.Context, pageURL string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(httpclient.WithProvider(ctx, "web"), http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	started := time.Now()
	resp, err := e.client.Do(req)
	metrics.RecordExternalCall(ctx, "web", started, err)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrFetchFailed, pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("%w: %s returned status %d", ErrFetchFailed, pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("%w: read %s: %v", ErrFetchFailed, pageURL, err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}
