// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package copymove detects cloned regions within a single page. The page
// is cut into overlapping blocks, each block gets a perceptual signature,
// and identical signatures whose positions differ by the same offset
// vector suggest a region was copied and pasted elsewhere on the page.
package copymove

import (
	"context"
	"image"
	"math"

	"doc-sentinel/internal/document"
	"doc-sentinel/internal/fingerprint"
)

// Options tunes the analysis. Zero values fall back to defaults.
type Options struct {
	BlockSize       int
	StridePixels    int
	MinClusterSize  int
	MinOffsetPixels int
}

func (o *Options) normalize() {
	if o.BlockSize <= 0 {
		o.BlockSize = 16
	}
	if o.StridePixels <= 0 {
		o.StridePixels = 8
	}
	if o.MinClusterSize <= 0 {
		o.MinClusterSize = 6
	}
	if o.MinOffsetPixels <= 0 {
		o.MinOffsetPixels = 48
	}
}

// Analyzer detects intra-page cloned regions.
type Analyzer struct {
	opts Options
}

// New creates a copy-move analyzer.
func New(opts Options) *Analyzer {
	opts.normalize()
	return &Analyzer{opts: opts}
}

func (a *Analyzer) Kind() document.Kind { return document.KindCopyMove }

// Blocks flatter than this variance carry no texture and match everything;
// they are excluded before signature grouping.
const minBlockVariance = 25.0

type blockPos struct{ x, y int }

func (a *Analyzer) Analyze(ctx context.Context, img *document.PageImage) ([]document.Finding, error) {
	gray := img.Gray
	bounds := gray.Bounds()
	bs, stride := a.opts.BlockSize, a.opts.StridePixels

	// Signature -> positions of blocks sharing it.
	groups := make(map[uint64][]blockPos)
	for y := bounds.Min.Y; y+bs <= bounds.Max.Y; y += stride {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := bounds.Min.X; x+bs <= bounds.Max.X; x += stride {
			r := image.Rect(x, y, x+bs, y+bs)
			if blockVariance(gray, r) < minBlockVariance {
				continue
			}
			sig := fingerprint.HashRegion(gray, r)
			groups[sig] = append(groups[sig], blockPos{x: x, y: y})
		}
	}

	// Pairs of matching blocks vote for their displacement vector. A real
	// clone moves many blocks by the same vector; chance matches scatter.
	type pair struct{ src, dst blockPos }
	votes := make(map[blockPos][]pair)
	minOffset := float64(a.opts.MinOffsetPixels)
	for _, positions := range groups {
		if len(positions) < 2 {
			continue
		}
		for i := 0; i < len(positions); i++ {
			for j := i + 1; j < len(positions); j++ {
				dx := positions[j].x - positions[i].x
				dy := positions[j].y - positions[i].y
				if math.Hypot(float64(dx), float64(dy)) < minOffset {
					continue
				}
				votes[blockPos{x: dx, y: dy}] = append(votes[blockPos{x: dx, y: dy}], pair{src: positions[i], dst: positions[j]})
			}
		}
	}

	var findings []document.Finding
	for offset, pairs := range votes {
		if len(pairs) < a.opts.MinClusterSize {
			continue
		}
		srcRegion := boundingRegion(pairs, bs, func(p pair) blockPos { return p.src })
		confidence := math.Min(float64(len(pairs))/50.0, 1.0)
		findings = append(findings, document.Finding{
			Kind:       document.KindCopyMove,
			Severity:   document.SeverityHigh,
			Confidence: confidence,
			DocumentID: img.Page.DocumentID,
			PageIndex:  img.Page.Index,
			Evidence: document.Evidence{
				Sensitivity: document.SensitivityInternal,
				Region:      &srcRegion,
				Details: map[string]any{
					"matched_blocks": len(pairs),
					"offset_x":       offset.x,
					"offset_y":       offset.y,
				},
			},
		})
	}
	return findings, nil
}

func blockVariance(gray *image.Gray, r image.Rectangle) float64 {
	var sum, sumSq, n float64
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := gray.Pix[(y-gray.Rect.Min.Y)*gray.Stride:]
		for x := r.Min.X; x < r.Max.X; x++ {
			v := float64(row[x-gray.Rect.Min.X])
			sum += v
			sumSq += v * v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / n
	return sumSq/n - mean*mean
}

func boundingRegion[T any](items []T, blockSize int, pos func(T) blockPos) document.Region {
	p0 := pos(items[0])
	minX, minY, maxX, maxY := p0.x, p0.y, p0.x, p0.y
	for _, it := range items[1:] {
		p := pos(it)
		if p.x < minX {
			minX = p.x
		}
		if p.y < minY {
			minY = p.y
		}
		if p.x > maxX {
			maxX = p.x
		}
		if p.y > maxY {
			maxY = p.y
		}
	}
	return document.Region{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX + blockSize,
		Height: maxY - minY + blockSize,
	}
}
