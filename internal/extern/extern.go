// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package extern defines the contracts for external extraction services
// (OCR, entity extraction, structured field extraction) and resilient
// wrappers that retry transient failures and shed load when a backend
// is persistently down.
package extern

import (
	"context"

	"doc-sentinel/internal/document"
)

// OCRResult is the text recovered from one page image together with
// per-character confidence so detectors can weigh noisy regions.
type OCRResult struct {
	Text           string
	CharConfidence []float64
}

// Entity is a span of page text labeled by an external entity extractor.
type Entity struct {
	Span       document.TextSpan
	Category   string
	Value      string
	Confidence float64
}

// TextExtractor recovers text from a page image.
type TextExtractor interface {
	ExtractText(ctx context.Context, page *document.Page) (*OCRResult, error)
}

// EntityExtractor labels entities in already extracted page text.
type EntityExtractor interface {
	ExtractEntities(ctx context.Context, documentID string, pageIndex int, text string) ([]Entity, error)
}

// StructuredFieldExtractor pulls typed key/value fields from a page.
type StructuredFieldExtractor interface {
	ExtractFields(ctx context.Context, page *document.Page) (map[string]document.FieldValue, error)
}
