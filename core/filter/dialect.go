// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
)

// Dialect renders filter fragments for a particular document store.
//
// Fields passed to a dialect have already been validated against the field
// pattern and the allow-list. Values never reach a dialect's text output, only
// Bind sees them.
type Dialect interface {
	// True returns the trivially-true expression
	True() string
	// Placeholder returns the reference to a bound variable
	Placeholder(name string) string
	// Fragment renders a comparison of field against placeholder
	Fragment(op Operator, field, placeholder string) string
	// Bind converts a value into the form the store expects for op
	Bind(op Operator, value any) (any, error)
}

type templateDialect struct {
	trueExpr  string
	field     func(path string, text bool) string
	templates map[Operator]Template
	bind      func(op Operator, value any) (any, error)
}

func (d *templateDialect) True() string { return d.trueExpr }

func (d *templateDialect) Placeholder(name string) string { return "@" + name }

func (d *templateDialect) Fragment(op Operator, field, placeholder string) string {
	t, ok := d.templates[op]
	if !ok {
		panic(fmt.Sprintf("no template for operator %s", op))
	}
	return t(d.field(field, op == OpContains), placeholder)
}

func (d *templateDialect) Bind(op Operator, value any) (any, error) {
	if d.bind == nil {
		return value, nil
	}
	return d.bind(op, value)
}

func infix(symbol string) Template {
	return func(field, placeholder string) string {
		return field + " " + symbol + " " + placeholder
	}
}

// AQL renders fragments for an ArangoDB style query, where the document variable
// is named doc and bound variables are referenced as @name.
//
//	doc.`email` == @b0
//	LIKE(doc.`email`, @b1, true)
var AQL Dialect = &templateDialect{
	trueExpr: "true",
	field: func(path string, _ bool) string {
		return "doc.`" + strings.ReplaceAll(path, ".", "`.`") + "`"
	},
	templates: map[Operator]Template{
		OpEqual:          infix("=="),
		OpNotEqual:       infix("!="),
		OpGreater:        infix(">"),
		OpLess:           infix("<"),
		OpGreaterOrEqual: infix(">="),
		OpLessOrEqual:    infix("<="),
		OpContains: func(field, placeholder string) string {
			return "LIKE(" + field + ", " + placeholder + ", true)"
		},
		OpIn: infix("IN"),
	},
}

// Postgres renders fragments for documents stored in a jsonb column named
// properties. Comparisons happen on jsonb, so bound values are JSON encoded; the
// contains operator matches the text representation case-insensitively.
//
//	properties->'email' = @b0::jsonb
//	properties->>'email' ILIKE @b1
//
// Unlike AQL, a comparison with a missing field is NULL, so != does not match
// documents without the field. in is a jsonb containment test, which equals
// membership because list elements are scalars.
var Postgres Dialect = &templateDialect{
	trueExpr: "TRUE",
	field:    postgresPath,
	templates: map[Operator]Template{
		OpEqual:          jsonbInfix("="),
		OpNotEqual:       jsonbInfix("<>"),
		OpGreater:        jsonbInfix(">"),
		OpLess:           jsonbInfix("<"),
		OpGreaterOrEqual: jsonbInfix(">="),
		OpLessOrEqual:    jsonbInfix("<="),
		OpContains:       infix("ILIKE"),
		OpIn: func(field, placeholder string) string {
			return placeholder + "::jsonb @> jsonb_build_array(" + field + ")"
		},
	},
	bind: func(op Operator, value any) (any, error) {
		if op == OpContains {
			return value, nil
		}
		b, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("cannot encode value: %w", err)
		}
		return string(b), nil
	},
}

// PostgresPath renders a validated field path as a jsonb reference into the
// properties column, for example properties->'address'->'city'
func PostgresPath(path string) string {
	return postgresPath(path, false)
}

func postgresPath(path string, text bool) string {
	segments := strings.Split(path, ".")
	var b strings.Builder
	b.WriteString("properties")
	for i, s := range segments {
		if text && i == len(segments)-1 {
			b.WriteString("->>'")
		} else {
			b.WriteString("->'")
		}
		b.WriteString(s)
		b.WriteString("'")
	}
	return b.String()
}

func jsonbInfix(symbol string) Template {
	return func(field, placeholder string) string {
		return field + " " + symbol + " " + placeholder + "::jsonb"
	}
}

var placeholderRegexp = regexp.MustCompile(`@[A-Za-z_][A-Za-z0-9_]*`)

// Positional rewrites the @name placeholders of expr into '?' placeholders and
// returns the bound values in order of appearance. A name may appear more than
// once. Placeholders without a binding are an error.
func Positional(expr Expression, bindings Bindings) (string, []any, error) {
	var (
		args []any
		err  error
	)
	sql := placeholderRegexp.ReplaceAllStringFunc(string(expr), func(p string) string {
		v, ok := bindings[p[1:]]
		if !ok {
			if err == nil {
				err = fmt.Errorf("unbound placeholder %s", p)
			}
			return p
		}
		args = append(args, v)
		return "?"
	})
	if err != nil {
		return "", nil, err
	}
	return sql, args, nil
}
