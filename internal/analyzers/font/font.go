// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package font segments dark glyph-sized components out of a page and
// compares their geometry. Text typeset in one pass has consistent glyph
// heights and ink density; a value retyped over the original in a close
// but different font drifts from the page statistics.
package font

import (
	"context"
	"image"
	"math"

	"doc-sentinel/internal/document"
)

// Analyzer detects glyph geometry outliers.
type Analyzer struct{}

// New creates a font analyzer.
func New() *Analyzer { return &Analyzer{} }

func (a *Analyzer) Kind() document.Kind { return document.KindFont }

const (
	// Glyph candidate size bounds, in pixels.
	minGlyphArea = 20
	maxGlyphArea = 5000
	// Minimum glyph population before statistics mean anything.
	minGlyphCount = 10
	// Height spread beyond this fraction of the mean flags mixed typesetting.
	heightSpreadRatio = 0.5
)

type glyph struct {
	bounds image.Rectangle
	ink    int
}

func (a *Analyzer) Analyze(ctx context.Context, img *document.PageImage) ([]document.Finding, error) {
	gray := img.Gray
	glyphs, err := segmentGlyphs(ctx, gray)
	if err != nil {
		return nil, err
	}
	if len(glyphs) < minGlyphCount {
		return nil, nil
	}

	heights := make([]float64, len(glyphs))
	density := make([]float64, len(glyphs))
	for i, g := range glyphs {
		heights[i] = float64(g.bounds.Dy())
		area := g.bounds.Dx() * g.bounds.Dy()
		if area > 0 {
			density[i] = float64(g.ink) / float64(area)
		}
	}

	hMean, hStd := meanStd(heights)
	dMean, dStd := meanStd(density)
	heightSpread := hStd / hMean
	densitySpread := 0.0
	if dMean > 0 {
		densitySpread = dStd / dMean
	}

	if heightSpread <= heightSpreadRatio && densitySpread <= heightSpreadRatio {
		return nil, nil
	}

	region := glyphExtent(glyphs)
	return []document.Finding{{
		Kind:       document.KindFont,
		Severity:   document.SeverityMedium,
		Confidence: 0.6,
		DocumentID: img.Page.DocumentID,
		PageIndex:  img.Page.Index,
		Evidence: document.Evidence{
			Sensitivity: document.SensitivityInternal,
			Region:      &region,
			Details: map[string]any{
				"glyph_count":    len(glyphs),
				"height_mean":    round2(hMean),
				"height_spread":  round2(heightSpread),
				"density_spread": round2(densitySpread),
			},
		},
	}}, nil
}

// segmentGlyphs binarizes the page against its mean intensity and collects
// 4-connected dark components within glyph size bounds.
func segmentGlyphs(ctx context.Context, gray *image.Gray) ([]glyph, error) {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, nil
	}

	var sum float64
	for _, p := range gray.Pix {
		sum += float64(p)
	}
	threshold := uint8(sum / float64(len(gray.Pix)) * 0.7)

	dark := func(x, y int) bool {
		return gray.Pix[y*gray.Stride+x] < threshold
	}

	seen := make([]bool, w*h)
	var glyphs []glyph
	for sy := 0; sy < h; sy++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for sx := 0; sx < w; sx++ {
			if seen[sy*w+sx] || !dark(sx, sy) {
				continue
			}
			g := glyph{bounds: image.Rect(sx, sy, sx+1, sy+1)}
			stack := [][2]int{{sx, sy}}
			seen[sy*w+sx] = true
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				x, y := p[0], p[1]
				g.ink++
				g.bounds = g.bounds.Union(image.Rect(x, y, x+1, y+1))

				for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
					nx, ny := x+d[0], y+d[1]
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					if !seen[ny*w+nx] && dark(nx, ny) {
						seen[ny*w+nx] = true
						stack = append(stack, [2]int{nx, ny})
					}
				}
			}
			area := g.bounds.Dx() * g.bounds.Dy()
			if area >= minGlyphArea && area <= maxGlyphArea {
				glyphs = append(glyphs, g)
			}
		}
	}
	return glyphs, nil
}

func glyphExtent(glyphs []glyph) document.Region {
	ext := glyphs[0].bounds
	for _, g := range glyphs[1:] {
		ext = ext.Union(g.bounds)
	}
	return document.Region{X: ext.Min.X, Y: ext.Min.Y, Width: ext.Dx(), Height: ext.Dy()}
}

func meanStd(values []float64) (mean, std float64) {
	n := float64(len(values))
	for _, v := range values {
		mean += v
	}
	mean /= n
	for _, v := range values {
		std += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(std / n)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
