// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package fingerprint provides similarity-preserving perceptual hashes of
// page images and a shared index for near-duplicate lookup.
package fingerprint

import (
	"image"
	"math/bits"

	"golang.org/x/image/draw"
)

// hashWidth x hashHeight is the downscale target for the difference hash:
// 9 columns give 8 horizontal comparisons per row, 8 rows give 64 bits.
const (
	hashWidth  = 9
	hashHeight = 8
)

// PageHash computes a 64-bit difference hash of an image. Visually similar
// images produce hashes within a small hamming distance; unrelated images
// land ~32 bits apart.
func PageHash(img image.Image) uint64 {
	small := image.NewGray(image.Rect(0, 0, hashWidth, hashHeight))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), img, img.Bounds(), draw.Src, nil)

	var hash uint64
	bit := 0
	for y := 0; y < hashHeight; y++ {
		for x := 0; x < hashWidth-1; x++ {
			if small.GrayAt(x, y).Y > small.GrayAt(x+1, y).Y {
				hash |= 1 << uint(bit)
			}
			bit++
		}
	}
	return hash
}

// HashRegion computes the difference hash of one rectangular region.
// Used by the copy-move analyzer as a block signature.
func HashRegion(gray *image.Gray, r image.Rectangle) uint64 {
	return PageHash(gray.SubImage(r))
}

// Distance returns the hamming distance between two hashes.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
