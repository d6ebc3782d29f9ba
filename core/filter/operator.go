// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package filter

// Operator is a whitelisted comparison operator
type Operator int

// all supported operators
const (
	OpInvalid Operator = iota
	OpEqual
	OpNotEqual
	OpGreater
	OpLess
	OpGreaterOrEqual
	OpLessOrEqual
	OpContains
	OpIn
)

var operatorSymbols = map[string]Operator{
	"==": OpEqual,
	"!=": OpNotEqual,
	">":  OpGreater,
	"<":  OpLess,
	">=": OpGreaterOrEqual,
	"<=": OpLessOrEqual,
	"%":  OpContains,
	"in": OpIn,
	"IN": OpIn,
}

// LookupOperator validates symbol against the operator whitelist. There is no
// fallback, an unknown symbol is always ErrInvalidOperator.
func LookupOperator(symbol string) (Operator, error) {
	op, ok := operatorSymbols[symbol]
	if !ok {
		return OpInvalid, newError(ErrInvalidOperator, -1, "", symbol, "")
	}
	return op, nil
}

// Symbol returns the canonical payload symbol of the operator
func (o Operator) Symbol() string {
	switch o {
	case OpEqual:
		return "=="
	case OpNotEqual:
		return "!="
	case OpGreater:
		return ">"
	case OpLess:
		return "<"
	case OpGreaterOrEqual:
		return ">="
	case OpLessOrEqual:
		return "<="
	case OpContains:
		return "%"
	case OpIn:
		return "in"
	}
	return ""
}

func (o Operator) String() string {
	switch o {
	case OpEqual:
		return "equal"
	case OpNotEqual:
		return "not-equal"
	case OpGreater:
		return "greater"
	case OpLess:
		return "less"
	case OpGreaterOrEqual:
		return "greater-or-equal"
	case OpLessOrEqual:
		return "less-or-equal"
	case OpContains:
		return "contains"
	case OpIn:
		return "in"
	}
	return "invalid"
}

// Template renders a comparison fragment from a field reference and a
// bound-variable placeholder
type Template func(field, placeholder string) string
