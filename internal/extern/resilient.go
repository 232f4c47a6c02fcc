// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extern

import (
	"context"

	"doc-sentinel/internal/document"
	"doc-sentinel/internal/resilience"
)

// ResilientTextExtractor wraps a TextExtractor with retry on transient
// failures and a circuit breaker that opens when the backend keeps failing.
// Permanent errors (unsupported input, auth) pass through without retry.
type ResilientTextExtractor struct {
	inner   TextExtractor
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
}

// NewResilientTextExtractor wraps inner with the extractor retry policy
// and a dedicated circuit breaker.
func NewResilientTextExtractor(inner TextExtractor, retry resilience.RetryConfig) *ResilientTextExtractor {
	cfg := resilience.DefaultCircuitBreakerConfig("text-extractor")
	return &ResilientTextExtractor{
		inner:   inner,
		retry:   retry,
		breaker: resilience.NewCircuitBreaker(cfg),
	}
}

func (r *ResilientTextExtractor) ExtractText(ctx context.Context, page *document.Page) (*OCRResult, error) {
	if err := r.breaker.Allow(); err != nil {
		return nil, err
	}
	result, err := resilience.RetryWithResult(ctx, r.retry, func(ctx context.Context) (*OCRResult, error) {
		return r.inner.ExtractText(ctx, page)
	})
	r.breaker.Record(err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ResilientEntityExtractor applies the same retry and breaker policy to
// an EntityExtractor.
type ResilientEntityExtractor struct {
	inner   EntityExtractor
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
}

func NewResilientEntityExtractor(inner EntityExtractor, retry resilience.RetryConfig) *ResilientEntityExtractor {
	cfg := resilience.DefaultCircuitBreakerConfig("entity-extractor")
	return &ResilientEntityExtractor{
		inner:   inner,
		retry:   retry,
		breaker: resilience.NewCircuitBreaker(cfg),
	}
}

func (r *ResilientEntityExtractor) ExtractEntities(ctx context.Context, documentID string, pageIndex int, text string) ([]Entity, error) {
	if err := r.breaker.Allow(); err != nil {
		return nil, err
	}
	entities, err := resilience.RetryWithResult(ctx, r.retry, func(ctx context.Context) ([]Entity, error) {
		return r.inner.ExtractEntities(ctx, documentID, pageIndex, text)
	})
	r.breaker.Record(err)
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// ResilientFieldExtractor applies the same retry and breaker policy to
// a StructuredFieldExtractor.
type ResilientFieldExtractor struct {
	inner   StructuredFieldExtractor
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
}

func NewResilientFieldExtractor(inner StructuredFieldExtractor, retry resilience.RetryConfig) *ResilientFieldExtractor {
	cfg := resilience.DefaultCircuitBreakerConfig("field-extractor")
	return &ResilientFieldExtractor{
		inner:   inner,
		retry:   retry,
		breaker: resilience.NewCircuitBreaker(cfg),
	}
}

func (r *ResilientFieldExtractor) ExtractFields(ctx context.Context, page *document.Page) (map[string]document.FieldValue, error) {
	if err := r.breaker.Allow(); err != nil {
		return nil, err
	}
	fields, err := resilience.RetryWithResult(ctx, r.retry, func(ctx context.Context) (map[string]document.FieldValue, error) {
		return r.inner.ExtractFields(ctx, page)
	})
	r.breaker.Record(err)
	if err != nil {
		return nil, err
	}
	return fields, nil
}
