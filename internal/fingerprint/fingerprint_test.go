// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package fingerprint

import (
	"fmt"
	"image"
	"image/color"
	"math/rand"
	"sync"
	"testing"
)

// gradientImage produces a deterministic test image with smooth structure
// so the difference hash has stable bit patterns.
func gradientImage(w, h int, seed uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x*3+y*2) + seed})
		}
	}
	return img
}

func noisyCopy(img *image.Gray, flips int, rng *rand.Rand) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(b)
	copy(out.Pix, img.Pix)
	for i := 0; i < flips; i++ {
		x := b.Min.X + rng.Intn(b.Dx())
		y := b.Min.Y + rng.Intn(b.Dy())
		out.SetGray(x, y, color.Gray{Y: uint8(rng.Intn(256))})
	}
	return out
}

func TestPageHashStable(t *testing.T) {
	img := gradientImage(200, 160, 0)
	if PageHash(img) != PageHash(img) {
		t.Fatal("hash of the same image changed between calls")
	}
}

func TestPageHashNearDuplicate(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	img := gradientImage(200, 160, 0)
	near := noisyCopy(img, 20, rng)

	d := Distance(PageHash(img), PageHash(near))
	if d > 10 {
		t.Errorf("near duplicate distance = %d, want <= 10", d)
	}
}

func TestPageHashDistinctImages(t *testing.T) {
	// Checkerboard vs gradient have opposite neighbor relationships.
	grad := gradientImage(200, 160, 0)
	check := image.NewGray(image.Rect(0, 0, 200, 160))
	for y := 0; y < 160; y++ {
		for x := 0; x < 200; x++ {
			if (x/20+y/20)%2 == 0 {
				check.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}

	d := Distance(PageHash(grad), PageHash(check))
	if d <= 10 {
		t.Errorf("unrelated images distance = %d, want > 10", d)
	}
}

func TestDistanceSymmetric(t *testing.T) {
	a, b := uint64(0xdeadbeefcafef00d), uint64(0x0123456789abcdef)
	if Distance(a, b) != Distance(b, a) {
		t.Error("distance is not symmetric")
	}
	if Distance(a, a) != 0 {
		t.Error("distance to self is not zero")
	}
}

func TestIndexLookupWithinTolerance(t *testing.T) {
	ix := NewIndex(8, 10)
	base := PageHash(gradientImage(200, 160, 0))

	ix.Insert("doc-a", []uint64{base})

	// Flip 3 bits: inside the radius.
	near := base ^ 0b10100001
	matches := ix.Lookup(near, "doc-b")
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].DocumentID != "doc-a" || matches[0].PageIndex != 0 {
		t.Errorf("unexpected match %+v", matches[0])
	}
	if matches[0].Distance != 3 {
		t.Errorf("distance = %d, want 3", matches[0].Distance)
	}

	// Flip 12 bits: outside the radius.
	far := base ^ 0xfff
	if got := ix.Lookup(far, "doc-b"); len(got) != 0 {
		t.Errorf("got %d matches outside tolerance, want 0", len(got))
	}
}

func TestIndexExcludesOwnDocument(t *testing.T) {
	ix := NewIndex(4, 10)
	ix.Insert("doc-a", []uint64{0xabcdef})

	if got := ix.Lookup(0xabcdef, "doc-a"); len(got) != 0 {
		t.Errorf("document matched itself: %+v", got)
	}
}

// Duplicate detection must be symmetric: if B matches A after A is
// indexed, then A matches B after B is indexed.
func TestIndexDuplicateSymmetry(t *testing.T) {
	hashA := PageHash(gradientImage(200, 160, 0))
	rng := rand.New(rand.NewSource(7))
	hashB := PageHash(noisyCopy(gradientImage(200, 160, 0), 20, rng))

	ixAB := NewIndex(8, 10)
	ixAB.Insert("doc-a", []uint64{hashA})
	abMatched := len(ixAB.Lookup(hashB, "doc-b")) > 0

	ixBA := NewIndex(8, 10)
	ixBA.Insert("doc-b", []uint64{hashB})
	baMatched := len(ixBA.Lookup(hashA, "doc-a")) > 0

	if abMatched != baMatched {
		t.Errorf("asymmetric duplicate detection: a->b=%v b->a=%v", abMatched, baMatched)
	}
	if !abMatched {
		t.Error("near duplicates did not match at tolerance 10")
	}
}

func TestIndexConcurrentInsertLookup(t *testing.T) {
	ix := NewIndex(16, 4)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(g)))
			for i := 0; i < 200; i++ {
				if i%2 == 0 {
					ix.Insert(fmt.Sprintf("doc-%d-%d", g, i), []uint64{rng.Uint64()})
				} else {
					ix.Lookup(rng.Uint64(), "")
				}
			}
		}(g)
	}
	wg.Wait()

	if ix.Len() != 8*100 {
		t.Errorf("index length = %d, want %d", ix.Len(), 8*100)
	}
}
