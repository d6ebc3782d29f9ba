package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		stopWords StopWords
		want      []string
	}{
		{"phrase and word", `"John Doe" admin`, DefaultStopWords, []string{"John Doe", "admin"}},
		{"stop words", "the cat and a hat", NewStopWords("the", "and", "a"), []string{"cat", "hat"}},
		{"empty", "", DefaultStopWords, nil},
		{"whitespace only", " \t\n ", DefaultStopWords, nil},
		{"whitespace runs", "  alpha \t beta\n", nil, []string{"alpha", "beta"}},
		{"case kept", "The Hat", NewStopWords("the"), []string{"Hat"}},
		{"dash is a stop word", "red - blue", DefaultStopWords, []string{"red", "blue"}},
		{"unterminated quote", `admin "John`, DefaultStopWords, []string{"admin", `"John`}},
		{"empty phrase", `"" admin`, DefaultStopWords, []string{"admin"}},
		{"phrase trimmed", `" John Doe "`, DefaultStopWords, []string{"John Doe"}},
		{"phrase inside word", `name"John Doe"`, nil, []string{"name", "John Doe"}},
		{"stop word phrase", `"the"`, DefaultStopWords, nil},
		{"non ascii space", "alpha\u00a0beta", nil, []string{"alpha", "beta"}},
		{"unicode", "Müller straße", nil, []string{"Müller", "straße"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.input, tt.stopWords))
		})
	}
}

func TestTokenizeRestartable(t *testing.T) {
	tokens := Tokenize("one two", nil)
	var first, second []string
	for _, tok := range tokens {
		first = append(first, tok)
	}
	for _, tok := range tokens {
		second = append(second, tok)
	}
	assert.Equal(t, first, second)
}

func TestStopWordsCaseInsensitive(t *testing.T) {
	s := NewStopWords("The")
	assert.True(t, s.Contains("the"))
	assert.True(t, s.Contains("THE"))
	assert.False(t, s.Contains("theme"))

	var empty StopWords
	assert.False(t, empty.Contains("the"))
}
