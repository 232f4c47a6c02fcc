// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package font

import (
	"context"
	"image"
	"image/color"
	"testing"

	"doc-sentinel/internal/document"
)

// drawGlyph paints a filled dark rectangle, standing in for one glyph.
func drawGlyph(img *image.Gray, x, y, w, h int) {
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			img.SetGray(x+dx, y+dy, color.Gray{Y: 10})
		}
	}
}

func whitePage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 250
	}
	return img
}

func pageImage(gray *image.Gray) *document.PageImage {
	return &document.PageImage{
		Page:  &document.Page{DocumentID: "doc-1", Index: 0},
		Image: gray,
		Gray:  gray,
	}
}

func TestConsistentTypesettingIsClean(t *testing.T) {
	page := whitePage(300, 100)
	for i := 0; i < 12; i++ {
		drawGlyph(page, 10+i*20, 40, 8, 12)
	}

	a := New()
	findings, err := a.Analyze(context.Background(), pageImage(page))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("got %d findings for uniform glyphs, want 0", len(findings))
	}
}

func TestMixedGlyphHeightsAreFlagged(t *testing.T) {
	page := whitePage(400, 120)
	for i := 0; i < 6; i++ {
		drawGlyph(page, 10+i*30, 50, 8, 10)
	}
	for i := 0; i < 6; i++ {
		drawGlyph(page, 200+i*30, 30, 8, 48)
	}

	a := New()
	findings, err := a.Analyze(context.Background(), pageImage(page))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}

	f := findings[0]
	if f.Kind != document.KindFont {
		t.Errorf("kind = %s", f.Kind)
	}
	if f.Severity != document.SeverityMedium {
		t.Errorf("severity = %s, want medium", f.Severity)
	}
	if f.Evidence.Region == nil {
		t.Error("finding has no region")
	}
}

func TestTooFewGlyphsSkipped(t *testing.T) {
	page := whitePage(200, 80)
	drawGlyph(page, 20, 20, 8, 10)
	drawGlyph(page, 60, 20, 8, 40)

	a := New()
	findings, err := a.Analyze(context.Background(), pageImage(page))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("got %d findings from a two-glyph page, want 0", len(findings))
	}
}
