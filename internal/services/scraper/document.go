package scraper

import (
	"time"

	"github.com/socialchef/recipebox/internal/services/segmenter"
)

// SourceType selects the prompt variant and post-processing rules.
type SourceType string

const (
	SourceWeb      SourceType = "web"
	SourceYouTube  SourceType = "youtube_video"
	SourcePhotoOCR SourceType = "photo_ocr"
)

// PhotoSourceURL stands in for the source URL of photo uploads.
const PhotoSourceURL = "Photo Upload"

// ScrapedDocument is what extraction hands to formatting. It lives for one request.
type ScrapedDocument struct {
	SourceURL       string             `json:"source_url"`
	SourceTitle     string             `json:"source_title"`
	SourceType      SourceType         `json:"source_type"`
	RawText         string             `json:"raw_text"`
	Structured      *StructuredRecipe  `json:"structured_recipe,omitempty"`
	Sections        segmenter.Sections `json:"segmented_sections"`
	DurationSeconds float64            `json:"duration_seconds,omitempty"`
	CapturedAt      time.Time          `json:"captured_at"`
}
