// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package analyzers defines the tamper analyzer contract and the fixed
// registry of analyzers the engine schedules per page.
package analyzers

import (
	"context"

	"doc-sentinel/internal/analyzers/copymove"
	"doc-sentinel/internal/analyzers/ela"
	"doc-sentinel/internal/analyzers/font"
	"doc-sentinel/internal/analyzers/metadata"
	"doc-sentinel/internal/analyzers/resolution"
	"doc-sentinel/internal/analyzers/watermark"
	"doc-sentinel/internal/config"
	"doc-sentinel/internal/document"
)

// Analyzer is one tamper check. Implementations must be safe for concurrent
// use across pages and must honor ctx cancellation on long loops. The page
// snapshot is shared between analyzers and must not be mutated. Returning
// an empty slice with a nil error means the check ran clean.
type Analyzer interface {
	Kind() document.Kind
	Analyze(ctx context.Context, img *document.PageImage) ([]document.Finding, error)
}

// DefaultSet builds the full analyzer registry in a fixed order. The set is
// closed: callers choose configuration, not membership.
func DefaultSet(cfg *config.Config) []Analyzer {
	return []Analyzer{
		ela.New(ela.Options{
			JPEGQuality:       cfg.Analyzers.ELA.JPEGQuality,
			BlockSize:         cfg.Analyzers.ELA.BlockSize,
			MinBlobAreaPixels: cfg.Analyzers.ELA.MinBlobAreaPixels,
		}),
		copymove.New(copymove.Options{
			BlockSize:       cfg.Analyzers.CopyMove.BlockSize,
			StridePixels:    cfg.Analyzers.CopyMove.StridePixels,
			MinClusterSize:  cfg.Analyzers.CopyMove.MinClusterSize,
			MinOffsetPixels: cfg.Analyzers.CopyMove.MinOffsetPixels,
		}),
		metadata.New(),
		resolution.New(resolution.Options{
			GridRows:      cfg.Analyzers.Resolution.GridRows,
			GridCols:      cfg.Analyzers.Resolution.GridCols,
			VarianceRatio: cfg.Analyzers.Resolution.VarianceRatio,
		}),
		font.New(),
		watermark.New(watermark.Options{
			Required:     cfg.Analyzers.Watermark.Required,
			PeriodPixels: cfg.Analyzers.Watermark.PeriodPixels,
		}),
	}
}
