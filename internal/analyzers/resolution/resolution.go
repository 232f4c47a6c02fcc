// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package resolution looks for sharpness discontinuities across a page.
// A genuine scan has roughly uniform effective resolution; a pasted-in
// patch sourced from a different image is sharper or blurrier than its
// surroundings.
package resolution

import (
	"context"
	"image"
	"math"

	"doc-sentinel/internal/document"
)

// Options tunes the analysis. Zero values fall back to defaults.
type Options struct {
	GridRows      int
	GridCols      int
	VarianceRatio float64
}

func (o *Options) normalize() {
	if o.GridRows <= 0 {
		o.GridRows = 4
	}
	if o.GridCols <= 0 {
		o.GridCols = 4
	}
	if o.VarianceRatio <= 0 {
		o.VarianceRatio = 0.3
	}
}

// Analyzer detects per-region sharpness outliers.
type Analyzer struct {
	opts Options
}

// New creates a resolution analyzer.
func New(opts Options) *Analyzer {
	opts.normalize()
	return &Analyzer{opts: opts}
}

func (a *Analyzer) Kind() document.Kind { return document.KindResolution }

func (a *Analyzer) Analyze(ctx context.Context, img *document.PageImage) ([]document.Finding, error) {
	gray := img.Gray
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	rows, cols := a.opts.GridRows, a.opts.GridCols
	if w < cols*8 || h < rows*8 {
		// Too small to compare regions meaningfully.
		return nil, nil
	}

	cellW, cellH := w/cols, h/rows
	sharpness := make([]float64, rows*cols)
	for r := 0; r < rows; r++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for c := 0; c < cols; c++ {
			x0 := bounds.Min.X + c*cellW
			y0 := bounds.Min.Y + r*cellH
			sharpness[r*cols+c] = regionSharpness(gray, x0, y0, cellW, cellH)
		}
	}

	var mean float64
	for _, s := range sharpness {
		mean += s
	}
	mean /= float64(len(sharpness))
	if mean == 0 {
		return nil, nil
	}

	var findings []document.Finding
	for i, s := range sharpness {
		deviation := math.Abs(s-mean) / mean
		if deviation <= a.opts.VarianceRatio {
			continue
		}
		r, c := i/cols, i%cols
		region := document.Region{
			X:      c * cellW,
			Y:      r * cellH,
			Width:  cellW,
			Height: cellH,
		}
		confidence := math.Min(deviation/(2*a.opts.VarianceRatio), 1.0)
		findings = append(findings, document.Finding{
			Kind:       document.KindResolution,
			Severity:   document.SeverityMedium,
			Confidence: confidence,
			DocumentID: img.Page.DocumentID,
			PageIndex:  img.Page.Index,
			Evidence: document.Evidence{
				Sensitivity: document.SensitivityInternal,
				Region:      &region,
				Details: map[string]any{
					"region_sharpness": round2(s),
					"page_sharpness":   round2(mean),
					"deviation_ratio":  round2(deviation),
				},
			},
		})
	}
	return findings, nil
}

// regionSharpness is the mean Sobel gradient magnitude over one grid cell.
func regionSharpness(gray *image.Gray, x0, y0, w, h int) float64 {
	var sum, n float64
	for y := y0 + 1; y < y0+h-1; y++ {
		for x := x0 + 1; x < x0+w-1; x++ {
			gx := sobelAt(gray, x, y, sobelX)
			gy := sobelAt(gray, x, y, sobelY)
			sum += math.Hypot(gx, gy)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / n
}

var (
	sobelX = [3][3]float64{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}}
	sobelY = [3][3]float64{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}}
)

func sobelAt(gray *image.Gray, x, y int, kernel [3][3]float64) float64 {
	var acc float64
	for ky := -1; ky <= 1; ky++ {
		for kx := -1; kx <= 1; kx++ {
			px := float64(gray.GrayAt(x+kx, y+ky).Y)
			acc += px * kernel[ky+1][kx+1]
		}
	}
	return acc
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
