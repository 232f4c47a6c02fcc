// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package ela implements error level analysis: a page is re-encoded as
// JPEG at a fixed quality and the per-block residual is compared across
// the page. Regions edited after the original compression pass respond
// differently to re-encoding and stand out from the background error.
package ela

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"math"

	"doc-sentinel/internal/document"
)

// Options tunes the analysis. Zero values fall back to defaults.
type Options struct {
	JPEGQuality       int
	BlockSize         int
	MinBlobAreaPixels int
}

func (o *Options) normalize() {
	if o.JPEGQuality <= 0 || o.JPEGQuality > 100 {
		o.JPEGQuality = 90
	}
	if o.BlockSize <= 0 {
		o.BlockSize = 8
	}
	if o.MinBlobAreaPixels <= 0 {
		o.MinBlobAreaPixels = 1024
	}
}

// Analyzer runs error level analysis on page images.
type Analyzer struct {
	opts Options
}

// New creates an ELA analyzer.
func New(opts Options) *Analyzer {
	opts.normalize()
	return &Analyzer{opts: opts}
}

func (a *Analyzer) Kind() document.Kind { return document.KindELA }

// Thresholds below which the page's error distribution is considered
// uniform compression noise and no finding is produced.
const (
	minErrorStd  = 10.0
	minErrorMean = 5.0
)

func (a *Analyzer) Analyze(ctx context.Context, img *document.PageImage) ([]document.Finding, error) {
	residual, err := a.residual(img.Image)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blocks := a.blockErrors(residual)
	mean, std := blocks.stats()
	if std <= minErrorStd && mean <= minErrorMean {
		return nil, nil
	}

	// A block is suspicious when its error sits far above the page
	// background. Connected suspicious blocks form one blob per finding.
	threshold := mean + 2*std
	blobs := blocks.connectedAbove(threshold)

	confidence := math.Min(std/20.0, 1.0)
	var findings []document.Finding
	for _, blob := range blobs {
		region := blob.boundingRegion(a.opts.BlockSize)
		area := region.Width * region.Height
		severity := document.SeverityMedium
		if area >= a.opts.MinBlobAreaPixels {
			severity = document.SeverityCritical
		}
		findings = append(findings, document.Finding{
			Kind:       document.KindELA,
			Severity:   severity,
			Confidence: confidence,
			DocumentID: img.Page.DocumentID,
			PageIndex:  img.Page.Index,
			Evidence: document.Evidence{
				Sensitivity: document.SensitivityInternal,
				Region:      &region,
				Details: map[string]any{
					"mean_error":      round2(mean),
					"std_error":       round2(std),
					"block_threshold": round2(threshold),
					"blob_blocks":     len(blob.cells),
					"blob_area_px":    area,
				},
			},
		})
	}
	return findings, nil
}

// residual re-encodes the image and returns the absolute grayscale
// difference between original and re-encoded pixels.
func (a *Analyzer) residual(src image.Image) (*image.Gray, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: a.opts.JPEGQuality}); err != nil {
		return nil, err
	}
	recompressed, err := jpeg.Decode(&buf)
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	diff := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			diff.Pix[diff.PixOffset(x, y)] = absDiffGray(src.At(x, y), recompressed.At(x, y))
		}
	}
	return diff, nil
}

func absDiffGray(a, b interface{ RGBA() (uint32, uint32, uint32, uint32) }) uint8 {
	ar, ag, ab, _ := a.RGBA()
	br, bg, bb, _ := b.RGBA()
	// luma weights applied to 16-bit channel values
	la := (299*int64(ar) + 587*int64(ag) + 114*int64(ab)) / 1000
	lb := (299*int64(br) + 587*int64(bg) + 114*int64(bb)) / 1000
	d := la - lb
	if d < 0 {
		d = -d
	}
	return uint8(d >> 8)
}

// blockGrid holds the mean residual of every block on the page.
type blockGrid struct {
	cols, rows int
	means      []float64
}

func (a *Analyzer) blockErrors(residual *image.Gray) *blockGrid {
	bounds := residual.Bounds()
	bs := a.opts.BlockSize
	cols := (bounds.Dx() + bs - 1) / bs
	rows := (bounds.Dy() + bs - 1) / bs

	grid := &blockGrid{cols: cols, rows: rows, means: make([]float64, cols*rows)}
	for by := 0; by < rows; by++ {
		for bx := 0; bx < cols; bx++ {
			var sum, n float64
			for y := by * bs; y < (by+1)*bs && y < bounds.Dy(); y++ {
				for x := bx * bs; x < (bx+1)*bs && x < bounds.Dx(); x++ {
					sum += float64(residual.Pix[y*residual.Stride+x])
					n++
				}
			}
			if n > 0 {
				grid.means[by*cols+bx] = sum / n
			}
		}
	}
	return grid
}

func (g *blockGrid) stats() (mean, std float64) {
	n := float64(len(g.means))
	if n == 0 {
		return 0, 0
	}
	for _, m := range g.means {
		mean += m
	}
	mean /= n
	for _, m := range g.means {
		std += (m - mean) * (m - mean)
	}
	return mean, math.Sqrt(std / n)
}

type cell struct{ x, y int }

type blob struct{ cells []cell }

// connectedAbove groups blocks whose error exceeds the threshold into
// 4-connected components.
func (g *blockGrid) connectedAbove(threshold float64) []blob {
	seen := make([]bool, len(g.means))
	var blobs []blob

	for start := range g.means {
		if seen[start] || g.means[start] <= threshold {
			continue
		}
		var b blob
		stack := []int{start}
		seen[start] = true
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cx, cy := idx%g.cols, idx/g.cols
			b.cells = append(b.cells, cell{x: cx, y: cy})

			for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
				nx, ny := cx+d[0], cy+d[1]
				if nx < 0 || ny < 0 || nx >= g.cols || ny >= g.rows {
					continue
				}
				nidx := ny*g.cols + nx
				if !seen[nidx] && g.means[nidx] > threshold {
					seen[nidx] = true
					stack = append(stack, nidx)
				}
			}
		}
		blobs = append(blobs, b)
	}
	return blobs
}

func (b *blob) boundingRegion(blockSize int) document.Region {
	minX, minY := b.cells[0].x, b.cells[0].y
	maxX, maxY := minX, minY
	for _, c := range b.cells[1:] {
		if c.x < minX {
			minX = c.x
		}
		if c.y < minY {
			minY = c.y
		}
		if c.x > maxX {
			maxX = c.x
		}
		if c.y > maxY {
			maxY = c.y
		}
	}
	return document.Region{
		X:      minX * blockSize,
		Y:      minY * blockSize,
		Width:  (maxX - minX + 1) * blockSize,
		Height: (maxY - minY + 1) * blockSize,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
