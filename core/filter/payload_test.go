package filter

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequest(t *testing.T) {
	r, err := DecodeRequest([]byte(`{
		"filter": [{"key": "email", "op": "%", "value": "x"}, {"key": "age", "op": ">", "value": 18}],
		"skip": 10,
		"page_size": "5",
		"order_by": "age",
		"order": "asc"
	}`))
	require.NoError(t, err)
	assert.Equal(t, Structured{Criteria: []RawCriterion{
		{Key: "email", Op: "%", Value: "x"},
		{Key: "age", Op: ">", Value: json.Number("18")},
	}}, r.Payload)
	assert.Equal(t, json.Number("10"), r.Skip)
	assert.Equal(t, "5", r.PageSize)
	assert.Equal(t, "age", r.OrderBy)
	assert.Equal(t, "asc", r.Order)
}

func TestDecodeRequestFreeText(t *testing.T) {
	r, err := DecodeRequest([]byte(`{"filter": "\"John Doe\" admin", "fields": ["name"]}`))
	require.NoError(t, err)
	assert.Equal(t, FreeText{Text: `"John Doe" admin`, Fields: []string{"name"}}, r.Payload)

	r, err = DecodeRequest([]byte(`{"search": "admin"}`))
	require.NoError(t, err)
	assert.Equal(t, FreeText{Text: "admin"}, r.Payload)
}

func TestDecodeRequestEmpty(t *testing.T) {
	for _, body := range []string{``, `{}`, `{"filter": null}`, `{"filter": []}`} {
		r, err := DecodeRequest([]byte(body))
		require.NoError(t, err, body)
		p, ok := r.Payload.(Structured)
		require.True(t, ok, body)
		assert.Empty(t, p.Criteria, body)
	}
}

func TestDecodeRequestInvalid(t *testing.T) {
	for _, body := range []string{
		`[]`,
		`{"filter": 42}`,
		`{"filter": {"key": "email"}}`,
		`{"filter": [{"key": 1, "op": "==", "value": "x"}]}`,
		`{"filter": [], "search": "x"}`,
		`{"filter": [{"key": "a", "op": "==", "value": 1}], "fields": ["a"]}`,
		`{"filter": "x"`,
	} {
		_, err := DecodeRequest([]byte(body))
		assert.True(t, errors.Is(err, ErrInvalidPayload), "body %s: %v", body, err)
	}
}

func TestDecodeAndBuild(t *testing.T) {
	r, err := DecodeRequest([]byte(`{"filter": [{"key": "age", "op": ">=", "value": 18}], "skip": "abc", "page_size": 0}`))
	require.NoError(t, err)
	result, err := testBuilder(t, Postgres).BuildRequest(r)
	require.NoError(t, err)
	assert.Equal(t, Expression("properties->'age' >= @b0::jsonb"), result.Expression)
	assert.Equal(t, Bindings{"b0": "18"}, result.Bindings)
	assert.Equal(t, Page{Skip: 0, PageSize: DefaultPageSize}, result.Page)
}
