// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package filter

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// RawCriterion is a single untrusted filter constraint as it arrives from a request
type RawCriterion struct {
	Key   string `json:"key"`
	Op    string `json:"op"`
	Value any    `json:"value"`
}

// Normalized is a validated criterion, ready for composition.
//
// Criteria with the same Group are alternatives (OR), distinct groups must all
// hold (AND).
type Normalized struct {
	Field      string
	Operator   Operator
	BoundName  string
	BoundValue any
	Group      int
}

// fieldRegexp accepts identifiers and dotted paths of identifiers. Anything
// else could change the structure of the rendered query.
var fieldRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Normalizer validates raw criteria and search tokens against a field allow-list.
// A Normalizer is immutable and can be shared between requests.
type Normalizer struct {
	fields       map[string]struct{}
	searchFields []string
	stopWords    StopWords
}

// NewNormalizer creates a normalizer for the allow-listed fields. searchFields are
// the default targets of free-text search and must be allow-listed. A nil
// stopWords means DefaultStopWords.
func NewNormalizer(fields []string, searchFields []string, stopWords StopWords) (*Normalizer, error) {
	n := &Normalizer{
		fields:    make(map[string]struct{}, len(fields)),
		stopWords: stopWords,
	}
	if n.stopWords == nil {
		n.stopWords = DefaultStopWords
	}
	for _, f := range fields {
		if !fieldRegexp.MatchString(f) {
			return nil, newError(ErrInvalidField, -1, f, "", "malformed field name")
		}
		n.fields[f] = struct{}{}
	}
	for _, f := range searchFields {
		if err := n.checkField(-1, f); err != nil {
			return nil, err
		}
	}
	n.searchFields = append([]string(nil), searchFields...)
	return n, nil
}

// Allowed returns true if field is allow-listed
func (n *Normalizer) Allowed(field string) bool {
	_, ok := n.fields[field]
	return ok
}

func (n *Normalizer) checkField(index int, field string) error {
	if !fieldRegexp.MatchString(field) {
		return newError(ErrInvalidField, index, field, "", "malformed field name")
	}
	if !n.Allowed(field) {
		return newError(ErrInvalidField, index, field, "", "unknown field")
	}
	return nil
}

// bindCounter hands out request-scoped bound names
type bindCounter int

func (c *bindCounter) next() string {
	name := fmt.Sprintf("b%d", *c)
	*c++
	return name
}

// Structured normalizes a list of structured criteria. Every criterion becomes
// its own group.
func (n *Normalizer) Structured(criteria []RawCriterion) ([]Normalized, error) {
	var counter bindCounter
	return n.structured(criteria, &counter)
}

func (n *Normalizer) structured(criteria []RawCriterion, counter *bindCounter) ([]Normalized, error) {
	result := make([]Normalized, 0, len(criteria))
	for i, c := range criteria {
		nc, err := n.normalize(i, c)
		if err != nil {
			return nil, err
		}
		nc.BoundName = counter.next()
		nc.Group = i
		result = append(result, nc)
	}
	return result, nil
}

func (n *Normalizer) normalize(index int, c RawCriterion) (Normalized, error) {
	if c.Key == "" {
		return Normalized{}, newError(ErrEmptyCriterion, index, "", c.Op, "missing key")
	}
	if c.Op == "" {
		return Normalized{}, newError(ErrEmptyCriterion, index, c.Key, "", "missing operator")
	}
	if c.Value == nil {
		return Normalized{}, newError(ErrEmptyCriterion, index, c.Key, c.Op, "missing value")
	}
	if err := n.checkField(index, c.Key); err != nil {
		return Normalized{}, err
	}
	op, err := LookupOperator(c.Op)
	if err != nil {
		return Normalized{}, newError(ErrInvalidOperator, index, c.Key, c.Op, "")
	}

	value := c.Value
	switch op {
	case OpIn:
		list, ok := toList(value)
		if !ok {
			return Normalized{}, newError(ErrInvalidValue, index, c.Key, c.Op, "value must be a list")
		}
		for _, e := range list {
			if _, ok := scalarText(e); !ok {
				return Normalized{}, newError(ErrInvalidValue, index, c.Key, c.Op, "list elements must be strings, numbers or booleans")
			}
		}
		value = list
	case OpContains:
		s, ok := scalarText(value)
		if !ok {
			return Normalized{}, newError(ErrInvalidValue, index, c.Key, c.Op, "value must be a string, number or boolean")
		}
		value = LikePattern(s)
	default:
		if _, ok := toList(value); ok {
			return Normalized{}, newError(ErrInvalidValue, index, c.Key, c.Op, "list values require operator 'in'")
		}
	}
	return Normalized{Field: c.Key, Operator: op, BoundValue: value}, nil
}

// FreeText tokenizes text and turns every token into one contains criterion per
// target field. All criteria of one token share a group. An empty fields list
// selects the configured search fields.
func (n *Normalizer) FreeText(text string, fields []string) ([]Normalized, error) {
	var counter bindCounter
	return n.freeText(text, fields, &counter)
}

func (n *Normalizer) freeText(text string, fields []string, counter *bindCounter) ([]Normalized, error) {
	if len(fields) == 0 {
		fields = n.searchFields
	} else {
		for _, f := range fields {
			if err := n.checkField(-1, f); err != nil {
				return nil, err
			}
		}
	}
	tokens := Tokenize(text, n.stopWords)
	if len(tokens) > 0 && len(fields) == 0 {
		return nil, newError(ErrInvalidField, -1, "", "", "no search fields configured")
	}

	result := make([]Normalized, 0, len(tokens)*len(fields))
	for group, token := range tokens {
		pattern := LikePattern(token)
		for _, f := range fields {
			result = append(result, Normalized{
				Field:      f,
				Operator:   OpContains,
				BoundName:  counter.next(),
				BoundValue: pattern,
				Group:      group,
			})
		}
	}
	return result, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern returns a LIKE pattern matching s as a substring. Wildcards inside s
// are escaped with a backslash.
func LikePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func scalarText(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case bool:
		return fmt.Sprint(s), true
	case fmt.Stringer:
		return s.String(), true
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprint(v), true
	}
	return "", false
}

func toList(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false // []byte is a scalar
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
