// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package filter

import "fmt"

// Result is a composed filter together with its pagination. Expression and
// Bindings are meant to be used for both the page query and the count query.
type Result struct {
	Expression Expression
	Bindings   Bindings
	Page       Page
}

// Builder turns payloads into filter expressions for one dialect.
// A Builder is immutable and safe for concurrent use.
type Builder struct {
	normalizer *Normalizer
	dialect    Dialect
	policy     PagePolicy
}

// NewBuilder creates a builder. A nil dialect means AQL.
func NewBuilder(normalizer *Normalizer, dialect Dialect, policy PagePolicy) *Builder {
	if normalizer == nil {
		panic("normalizer is missing")
	}
	if dialect == nil {
		dialect = AQL
	}
	return &Builder{normalizer: normalizer, dialect: dialect, policy: policy}
}

// Normalizer returns the builder's normalizer
func (b *Builder) Normalizer() *Normalizer {
	return b.normalizer
}

// Build validates and composes the payload. Either the whole result is valid or
// an error is returned and the result is empty.
func (b *Builder) Build(payload Payload, skip, pageSize any) (Result, error) {
	var (
		counter  bindCounter
		criteria []Normalized
		err      error
	)
	switch p := payload.(type) {
	case nil:
	case Structured:
		criteria, err = b.normalizer.structured(p.Criteria, &counter)
	case *Structured:
		criteria, err = b.normalizer.structured(p.Criteria, &counter)
	case FreeText:
		criteria, err = b.normalizer.freeText(p.Text, p.Fields, &counter)
	case *FreeText:
		criteria, err = b.normalizer.freeText(p.Text, p.Fields, &counter)
	default:
		err = newError(ErrInvalidPayload, -1, "", "", fmt.Sprintf("unsupported payload %T", payload))
	}
	if err != nil {
		return Result{}, err
	}

	expr, bindings, err := Compose(criteria, b.dialect)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Expression: expr,
		Bindings:   bindings,
		Page:       NormalizePagination(skip, pageSize, b.policy),
	}, nil
}

// BuildRequest builds a decoded request
func (b *Builder) BuildRequest(r Request) (Result, error) {
	return b.Build(r.Payload, r.Skip, r.PageSize)
}
