// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ela

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"math/rand"
	"testing"

	"doc-sentinel/internal/document"
)

func decodePage(t *testing.T, data []byte) *document.PageImage {
	t.Helper()
	img, err := document.Decode(&document.Page{DocumentID: "doc-1", Index: 0, Data: data})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func smoothImage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(128 + (x+y)%16)})
		}
	}
	return img
}

func TestUniformCompressionIsClean(t *testing.T) {
	a := New(Options{})
	pi := decodePage(t, encodeJPEG(t, smoothImage(256, 256), 90))

	findings, err := a.Analyze(context.Background(), pi)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("got %d findings on an unedited page, want 0", len(findings))
	}
}

func TestSplicedPatchIsFlagged(t *testing.T) {
	// Simulate a splice: compress the page once, then paste raw noise
	// that never went through the original compression pass.
	base := smoothImage(256, 256)
	compressed, err := jpeg.Decode(bytes.NewReader(encodeJPEG(t, base, 50)))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	page := image.NewGray(image.Rect(0, 0, 256, 256))
	for y := 0; y < 256; y++ {
		for x := 0; x < 256; x++ {
			page.Set(x, y, compressed.At(x, y))
		}
	}
	rng := rand.New(rand.NewSource(1))
	for y := 64; y < 128; y++ {
		for x := 64; x < 160; x++ {
			page.SetGray(x, y, color.Gray{Y: uint8(rng.Intn(256))})
		}
	}

	a := New(Options{})
	pi := decodePage(t, encodeJPEG(t, page, 95))

	findings, err := a.Analyze(context.Background(), pi)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(findings) == 0 {
		t.Fatal("spliced patch produced no findings")
	}
	for _, f := range findings {
		if f.Kind != document.KindELA {
			t.Errorf("kind = %s", f.Kind)
		}
		if f.Evidence.Region == nil {
			t.Error("finding has no region")
		}
		if f.Confidence <= 0 || f.Confidence > 1 {
			t.Errorf("confidence = %f out of range", f.Confidence)
		}
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := New(Options{})
	pi := decodePage(t, encodeJPEG(t, smoothImage(64, 64), 90))
	if _, err := a.Analyze(ctx, pi); err == nil {
		t.Error("expected context error")
	}
}
