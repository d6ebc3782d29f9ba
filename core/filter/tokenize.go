// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package filter

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// StopWords is a set of lower-case words that are ignored in free-text search
type StopWords map[string]struct{}

// NewStopWords creates a stop-word set. Words are lower-cased.
func NewStopWords(words ...string) StopWords {
	s := make(StopWords, len(words))
	for _, w := range words {
		s[strings.ToLower(w)] = struct{}{}
	}
	return s
}

// Contains returns true if the lower-cased token is a stop word
func (s StopWords) Contains(token string) bool {
	_, ok := s[strings.ToLower(token)]
	return ok
}

// DefaultStopWords are common English function words
var DefaultStopWords = NewStopWords(
	"-", "a", "an", "and", "are", "as", "at", "be", "but", "by", "for", "if", "in",
	"into", "is", "it", "no", "not", "of", "on", "or", "such", "that", "the",
	"their", "then", "there", "these", "they", "this", "to", "was", "will", "with",
)

// Tokenize splits free text into search tokens.
//
// Double-quoted phrases become one token with the quotes removed, everything else
// is split on whitespace. Tokens found in stopWords are dropped, the others keep
// their original case. A quote without a closing partner is kept as literal text.
func Tokenize(s string, stopWords StopWords) []string {
	var tokens []string
	emit := func(t string) {
		if t == "" || stopWords.Contains(t) {
			return
		}
		tokens = append(tokens, t)
	}

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if unicode.IsSpace(r) {
			i += size
			continue
		}
		if r == '"' {
			if end := strings.IndexByte(s[i+1:], '"'); end >= 0 {
				emit(strings.TrimSpace(s[i+1 : i+1+end]))
				i += end + 2
				continue
			}
		}
		end := strings.IndexFunc(s[i:], unicode.IsSpace)
		if end < 0 {
			end = len(s) - i
		}
		word := s[i : i+end]
		// a quote inside a word starts a phrase
		if q := strings.IndexByte(word[1:], '"'); q >= 0 && strings.IndexByte(s[i+q+2:], '"') >= 0 {
			word = word[:q+1]
		}
		emit(word)
		i += len(word)
	}
	return tokens
}
