package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/socialchef/recipebox/internal/httpclient"
	"github.com/socialchef/recipebox/internal/metrics"
	"github.com/socialchef/recipebox/internal/services/segmenter"
)

const defaultVideoTitle = "YouTube Recipe"

// CaptionTrack is one downloadable caption rendition.
type CaptionTrack struct {
	Ext  string `json:"ext"`
	URL  string `json:"url"`
	Name string `json:"name"`
}

// VideoInfo is the subset of video metadata the extractor needs.
type VideoInfo struct {
	Title             string                    `json:"title"`
	Duration          float64                   `json:"duration"`
	Description       string                    `json:"description"`
	Subtitles         map[string][]CaptionTrack `json:"subtitles"`
	AutomaticCaptions map[string][]CaptionTrack `json:"automatic_captions"`
}

// VideoResolver looks up a video's metadata and caption tracks.
type VideoResolver interface {
	Resolve(ctx context.Context, videoURL string) (*VideoInfo, error)
}

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// YtDlpResolver resolves videos by shelling out to yt-dlp.
type YtDlpResolver struct {
	path    string
	timeout time.Duration
	run     commandRunner
}

func NewYtDlpResolver(path string, timeout time.Duration) *YtDlpResolver {
	if path == "" {
		path = "yt-dlp"
	}
	if timeout == 0 {
		timeout = time.Minute
	}
	return &YtDlpResolver{path: path, timeout: timeout, run: execRunner}
}

func (r *YtDlpResolver) Resolve(ctx context.Context, videoURL string) (*VideoInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	started := time.Now()
	out, err := r.run(ctx, r.path,
		"--dump-single-json",
		"--skip-download",
		"--no-playlist",
		"--no-warnings",
		videoURL,
	)
	metrics.RecordExternalCall(ctx, "yt-dlp", started, err)
	if err != nil {
		return nil, err
	}

	var info VideoInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("decode yt-dlp output: %w", err)
	}
	return &info, nil
}

type TranscriptOptions struct {
	Resolver       VideoResolver
	CaptionTimeout time.Duration
	Languages      []string
	Lexicon        segmenter.Lexicon
	Client         HTTPDoer
}

// TranscriptExtractor turns a video URL into a ScrapedDocument built from its
// captions, or from its description when no captions can be fetched.
type TranscriptExtractor struct {
	resolver       VideoResolver
	client         HTTPDoer
	captionTimeout time.Duration
	languages      []string
	segmenter      *segmenter.Segmenter
}

func NewTranscriptExtractor(opts TranscriptOptions) *TranscriptExtractor {
	if opts.CaptionTimeout == 0 {
		opts.CaptionTimeout = 15 * time.Second
	}
	if len(opts.Languages) == 0 {
		opts.Languages = []string{"en", "en-US", "en-GB", "auto-en"}
	}
	if opts.Lexicon.Bullets == nil {
		opts.Lexicon = segmenter.DefaultLexicon()
	}
	client := opts.Client
	if client == nil {
		client = httpclient.NewInstrumentedClient(opts.CaptionTimeout)
	}
	return &TranscriptExtractor{
		resolver:       opts.Resolver,
		client:         client,
		captionTimeout: opts.CaptionTimeout,
		languages:      opts.Languages,
		segmenter:      segmenter.New(opts.Lexicon),
	}
}

func (e *TranscriptExtractor) Extract(ctx context.Context, videoURL string) (*ScrapedDocument, error) {
	info, err := e.resolver.Resolve(ctx, videoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVideoUnavailable, err)
	}

	text := ""
	for _, tracks := range []map[string][]CaptionTrack{info.Subtitles, info.AutomaticCaptions} {
		if text = e.firstTranscript(ctx, tracks); text != "" {
			break
		}
	}
	if text == "" {
		slog.Info("No usable captions, using video description", "url", videoURL)
		text = strings.TrimSpace(info.Description)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoCaptions, videoURL)
	}

	title := strings.TrimSpace(info.Title)
	if title == "" {
		title = defaultVideoTitle
	}

	return &ScrapedDocument{
		SourceURL:       videoURL,
		SourceTitle:     title,
		SourceType:      SourceYouTube,
		RawText:         text,
		Sections:        e.segmenter.Segment(text),
		DurationSeconds: info.Duration,
		CapturedAt:      time.Now().UTC(),
	}, nil
}

// firstTranscript walks the language preference order and returns the first
// non-empty transcript. Within a language only the first track that downloads
// is used.
func (e *TranscriptExtractor) firstTranscript(ctx context.Context, tracks map[string][]CaptionTrack) string {
	if len(tracks) == 0 {
		return ""
	}
	for _, lang := range e.languages {
		for _, key := range captionKeys(lang) {
			for _, track := range tracks[key] {
				if track.Ext != "vtt" || track.URL == "" {
					continue
				}
				body, err := e.fetchCaption(ctx, track.URL)
				if err != nil {
					slog.Warn("Caption download failed", "lang", key, "error", err)
					continue
				}
				if text := ParseVTT(body); text != "" {
					return text
				}
				break
			}
		}
	}
	return ""
}

// captionKeys maps a preference entry onto the track keys it may appear under.
// Auto-generated English shows up as "a.en" or "en-orig" depending on the resolver version.
func captionKeys(lang string) []string {
	if rest, ok := strings.CutPrefix(lang, "auto-"); ok {
		return []string{lang, "a." + rest, rest + "-orig"}
	}
	return []string{lang}
}

func (e *TranscriptExtractor) fetchCaption(ctx context.Context, captionURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.captionTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(httpclient.WithProvider(ctx, "captions"), http.MethodGet, captionURL, nil)
	if err != nil {
		return "", err
	}

	started := time.Now()
	resp, err := e.client.Do(req)
	metrics.RecordExternalCall(ctx, "captions", started, err)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("caption fetch returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
