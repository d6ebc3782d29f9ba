// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package filter

import (
	"errors"
	"fmt"
)

// Error kinds. Compare with errors.Is.
var (
	// ErrInvalidOperator is returned for operators outside the whitelist
	ErrInvalidOperator = errors.New("invalid operator")
	// ErrInvalidField is returned for malformed or not allow-listed fields
	ErrInvalidField = errors.New("invalid field")
	// ErrEmptyCriterion is returned when key, op or value is missing
	ErrEmptyCriterion = errors.New("empty criterion")
	// ErrInvalidValue is returned when a value does not fit its operator
	ErrInvalidValue = errors.New("invalid value")
	// ErrInvalidPayload is returned when a payload is neither a filter list nor a search
	ErrInvalidPayload = errors.New("invalid payload")
)

// Error describes a rejected criterion
type Error struct {
	Kind   error
	Index  int // position of the criterion in the payload, -1 if not applicable
	Field  string
	Op     string
	Detail string
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Index >= 0 {
		msg += fmt.Sprintf(" in criterion %d", e.Index)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" field '%s'", e.Field)
	}
	if e.Op != "" {
		msg += fmt.Sprintf(" operator '%s'", e.Op)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap returns the error kind
func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, index int, field, op, detail string) *Error {
	return &Error{Kind: kind, Index: index, Field: field, Op: op, Detail: detail}
}
