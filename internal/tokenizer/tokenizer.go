// Package tokenizer normalises raw text into the ordered token sequence used
// as index keys. It lower-cases input, applies NFC normalisation, splits on
// non-alphanumeric boundaries, and stems every token with the Porter stemmer.
//
// Documents and queries must pass through the same pipeline: a term only
// matches if both sides normalise to the identical string.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/reiver/go-porterstemmer"
	"golang.org/x/text/unicode/norm"
)

// Tokenize returns the ordered sequence of normalised tokens in text.
// Repeated occurrences are preserved; the caller decides how to count them.
func Tokenize(text string) []string {
	text = norm.NFC.String(strings.ToLower(text))
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		stemmed := porterstemmer.StemString(word)
		if stemmed == "" {
			continue
		}
		tokens = append(tokens, stemmed)
	}
	return tokens
}
