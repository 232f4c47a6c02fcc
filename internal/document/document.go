// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"time"

	_ "image/jpeg"
	_ "image/png"
)

// Document is an ingested identity document handed to the engine by the
// upload collaborator. The engine treats it as read-only: pages are never
// mutated during a run.
type Document struct {
	// ID is the caller-assigned document identifier (a UUID string)
	ID string

	// Type is the claimed document type (e.g. "passport", "drivers_license").
	// Drives the watermark policy table; "unknown" disables type-specific checks.
	Type string

	// Pages holds the ordered page sequence
	Pages []Page

	// IngestedAt is when the upload collaborator accepted the document
	IngestedAt time.Time
}

// Page is one page of a document: the encoded image plus whatever the
// external services already extracted for it.
type Page struct {
	DocumentID string
	Index      int

	// Data is the encoded page image (JPEG or PNG)
	Data []byte

	// Text is previously extracted OCR text, empty when not yet extracted
	Text string

	// Fields holds structured-field metadata supplied by the external
	// document-intelligence capability, nil when unavailable
	Fields map[string]FieldValue
}

// FieldValue is one structured field extracted by an external capability.
type FieldValue struct {
	Value      string
	Confidence float64
}

// PageImage is the decoded, immutable snapshot of a page that analyzers
// operate on. The grayscale plane is precomputed once so each analyzer
// doesn't redo the conversion. DocumentType is carried alongside because
// some checks (watermark policy) depend on the claimed type.
type PageImage struct {
	Page         *Page
	DocumentType string
	Image        image.Image
	Gray         *image.Gray
}

// Decode decodes a page's image data into a PageImage snapshot.
// An undecodable page is an InputError: it fails the whole run for the
// document rather than degrading to an empty finding set.
func Decode(page *Page) (*PageImage, error) {
	if len(page.Data) == 0 {
		return nil, &InputError{
			DocumentID: page.DocumentID,
			PageIndex:  page.Index,
			Err:        fmt.Errorf("page has no image data"),
		}
	}

	img, _, err := image.Decode(bytes.NewReader(page.Data))
	if err != nil {
		return nil, &InputError{
			DocumentID: page.DocumentID,
			PageIndex:  page.Index,
			Err:        fmt.Errorf("undecodable page image: %w", err),
		}
	}

	return &PageImage{
		Page:  page,
		Image: img,
		Gray:  toGray(img),
	}, nil
}

func toGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

// InputError marks a malformed or undecodable page. Unlike analyzer
// failures, input errors propagate to the caller and abort the run.
type InputError struct {
	DocumentID string
	PageIndex  int
	Err        error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("document %s page %d: %v", e.DocumentID, e.PageIndex, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// Region is a rectangular area on a page image, in pixel coordinates.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Expand grows the region by margin pixels on every side, clamping at the
// origin. Used by the redaction planner to avoid edge leakage.
func (r Region) Expand(margin int) Region {
	x := r.X - margin
	y := r.Y - margin
	w := r.Width + 2*margin
	h := r.Height + 2*margin
	if x < 0 {
		w += x
		x = 0
	}
	if y < 0 {
		h += y
		y = 0
	}
	return Region{X: x, Y: y, Width: w, Height: h}
}

// TextSpan is a half-open character range [Start, End) in extracted text.
type TextSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}
