// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package watermark verifies the periodic security pattern official
// documents tile across the page. The check is driven by a per-type
// policy table: a passport without its watermark is a strong signal, a
// utility bill without one means nothing.
package watermark

import (
	"context"
	"image"
	"math"

	"doc-sentinel/internal/document"
)

// Options tunes the analysis.
type Options struct {
	// Required maps claimed document types to whether a watermark is
	// mandatory. Types absent from the map are not checked.
	Required     map[string]bool
	PeriodPixels int
}

func (o *Options) normalize() {
	if o.PeriodPixels <= 0 {
		o.PeriodPixels = 32
	}
}

// Analyzer verifies the presence and integrity of tiled watermarks.
type Analyzer struct {
	opts Options
}

// New creates a watermark analyzer.
func New(opts Options) *Analyzer {
	opts.normalize()
	return &Analyzer{opts: opts}
}

func (a *Analyzer) Kind() document.Kind { return document.KindWatermark }

// Autocorrelation strength bands at the expected tiling period.
const (
	absentBelow    = 0.15
	distortedBelow = 0.35
)

func (a *Analyzer) Analyze(ctx context.Context, img *document.PageImage) ([]document.Finding, error) {
	if !a.opts.Required[img.DocumentType] {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gray := img.Gray
	period := a.opts.PeriodPixels
	if gray.Bounds().Dx() < 3*period || gray.Bounds().Dy() < 3*period {
		return nil, nil
	}

	// A tiled watermark shows up as a peak in the autocorrelation of the
	// intensity profiles at the tiling period, along either axis.
	strength := math.Max(
		profileAutocorrelation(columnProfile(gray), period),
		profileAutocorrelation(rowProfile(gray), period),
	)

	page := img.Page
	switch {
	case strength < absentBelow:
		return []document.Finding{{
			Kind:       document.KindWatermark,
			Severity:   document.SeverityHigh,
			Confidence: 0.8,
			DocumentID: page.DocumentID,
			PageIndex:  page.Index,
			Evidence: document.Evidence{
				Sensitivity: document.SensitivityInternal,
				Details: map[string]any{
					"anomaly":       "watermark_absent",
					"document_type": img.DocumentType,
					"strength":      round2(strength),
				},
			},
		}}, nil
	case strength < distortedBelow:
		return []document.Finding{{
			Kind:       document.KindWatermark,
			Severity:   document.SeverityMedium,
			Confidence: 0.6,
			DocumentID: page.DocumentID,
			PageIndex:  page.Index,
			Evidence: document.Evidence{
				Sensitivity: document.SensitivityInternal,
				Details: map[string]any{
					"anomaly":       "watermark_distorted",
					"document_type": img.DocumentType,
					"strength":      round2(strength),
				},
			},
		}}, nil
	}
	return nil, nil
}

func columnProfile(gray *image.Gray) []float64 {
	b := gray.Bounds()
	profile := make([]float64, b.Dx())
	for x := 0; x < b.Dx(); x++ {
		var sum float64
		for y := 0; y < b.Dy(); y++ {
			sum += float64(gray.Pix[y*gray.Stride+x])
		}
		profile[x] = sum / float64(b.Dy())
	}
	return profile
}

func rowProfile(gray *image.Gray) []float64 {
	b := gray.Bounds()
	profile := make([]float64, b.Dy())
	for y := 0; y < b.Dy(); y++ {
		var sum float64
		row := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()]
		for _, p := range row {
			sum += float64(p)
		}
		profile[y] = sum / float64(b.Dx())
	}
	return profile
}

// profileAutocorrelation returns the normalized autocorrelation of the
// mean-centered profile at the given lag, clamped to [0, 1].
func profileAutocorrelation(profile []float64, lag int) float64 {
	if lag >= len(profile) {
		return 0
	}
	var mean float64
	for _, v := range profile {
		mean += v
	}
	mean /= float64(len(profile))

	var num, denom float64
	for i := range profile {
		d := profile[i] - mean
		denom += d * d
		if i+lag < len(profile) {
			num += d * (profile[i+lag] - mean)
		}
	}
	if denom == 0 {
		return 0
	}
	r := num / denom
	if r < 0 {
		return 0
	}
	return r
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
