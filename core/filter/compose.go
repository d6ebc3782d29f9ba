// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package filter

import (
	"fmt"
	"strings"
)

// Expression is a boolean query fragment. It references values only through
// bound-variable placeholders.
type Expression string

// Bindings maps bound-variable names to their values
type Bindings map[string]any

// Compose folds normalized criteria into one expression and its bindings.
//
// Consecutive criteria with the same group are joined with OR, groups are joined
// with AND. No criteria yields the dialect's true expression and empty bindings.
// On error nothing is returned.
func Compose(criteria []Normalized, d Dialect) (Expression, Bindings, error) {
	bindings := make(Bindings, len(criteria))
	if len(criteria) == 0 {
		return Expression(d.True()), bindings, nil
	}

	var (
		conjuncts []string
		group     []string
	)
	flush := func() {
		switch len(group) {
		case 0:
		case 1:
			conjuncts = append(conjuncts, group[0])
		default:
			conjuncts = append(conjuncts, "("+strings.Join(group, " OR ")+")")
		}
		group = group[:0]
	}

	for i, c := range criteria {
		if c.BoundName == "" {
			return "", nil, fmt.Errorf("criterion %d on '%s' has no bound name", i, c.Field)
		}
		if _, ok := bindings[c.BoundName]; ok {
			return "", nil, fmt.Errorf("duplicate bound name %s", c.BoundName)
		}
		value, err := d.Bind(c.Operator, c.BoundValue)
		if err != nil {
			return "", nil, newError(ErrInvalidValue, i, c.Field, c.Operator.Symbol(), err.Error())
		}
		bindings[c.BoundName] = value

		if i > 0 && c.Group != criteria[i-1].Group {
			flush()
		}
		group = append(group, d.Fragment(c.Operator, c.Field, d.Placeholder(c.BoundName)))
	}
	flush()

	return Expression(strings.Join(conjuncts, " AND ")), bindings, nil
}
