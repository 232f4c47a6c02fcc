// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package fingerprint

import (
	"sync"
	"time"
)

// Record is one indexed page hash.
type Record struct {
	DocumentID string
	PageIndex  int
	Hash       uint64
	InsertedAt time.Time
}

// Match is a near-duplicate hit returned by Lookup.
type Match struct {
	DocumentID string
	PageIndex  int
	Distance   int
}

// Index is a sharded in-memory store of page hashes. Inserts lock a single
// shard chosen by the hash value; lookups scan every shard under a read
// lock because near matches can live in any shard.
type Index struct {
	tolerance int
	shards    []*shard
}

type shard struct {
	mu      sync.RWMutex
	records []Record
}

// NewIndex creates an index with the given shard count and hamming
// tolerance radius. A tolerance of 0 matches exact hashes only.
func NewIndex(shardCount, tolerance int) *Index {
	if shardCount < 1 {
		shardCount = 1
	}
	shards := make([]*shard, shardCount)
	for i := range shards {
		shards[i] = &shard{}
	}
	return &Index{tolerance: tolerance, shards: shards}
}

// Tolerance returns the hamming radius the index matches within.
func (ix *Index) Tolerance() int { return ix.tolerance }

func (ix *Index) shardFor(hash uint64) *shard {
	return ix.shards[hash%uint64(len(ix.shards))]
}

// Insert indexes the page hashes of one document. The position of each hash
// in the slice is its page index. Safe for concurrent use with Lookup.
func (ix *Index) Insert(documentID string, hashes []uint64) {
	now := time.Now()
	for i, h := range hashes {
		s := ix.shardFor(h)
		s.mu.Lock()
		s.records = append(s.records, Record{
			DocumentID: documentID,
			PageIndex:  i,
			Hash:       h,
			InsertedAt: now,
		})
		s.mu.Unlock()
	}
}

// Lookup returns all indexed pages whose hash lies within the tolerance
// radius of the query, excluding pages of excludeDocumentID so a document
// never matches itself.
func (ix *Index) Lookup(hash uint64, excludeDocumentID string) []Match {
	var matches []Match
	for _, s := range ix.shards {
		s.mu.RLock()
		for _, rec := range s.records {
			if rec.DocumentID == excludeDocumentID {
				continue
			}
			if d := Distance(hash, rec.Hash); d <= ix.tolerance {
				matches = append(matches, Match{
					DocumentID: rec.DocumentID,
					PageIndex:  rec.PageIndex,
					Distance:   d,
				})
			}
		}
		s.mu.RUnlock()
	}
	return matches
}

// Len reports the number of indexed page hashes.
func (ix *Index) Len() int {
	n := 0
	for _, s := range ix.shards {
		s.mu.RLock()
		n += len(s.records)
		s.mu.RUnlock()
	}
	return n
}
