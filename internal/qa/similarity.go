package qa

import "strings"

// stopwords removed during normalization so that function words do not
// inflate overlap between a question and an unrelated answer.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "but": {}, "by": {}, "can": {}, "do": {}, "does": {},
	"for": {}, "from": {}, "how": {}, "i": {}, "if": {}, "in": {},
	"is": {}, "it": {}, "my": {}, "of": {}, "on": {}, "or": {},
	"that": {}, "the": {}, "this": {}, "to": {}, "was": {}, "what": {},
	"when": {}, "where": {}, "which": {}, "will": {}, "with": {},
	"you": {}, "your": {},
}

// normalizeTokens lowercases the text, strips punctuation from token
// edges and drops stopwords, returning the surviving token set.
func normalizeTokens(text string) map[string]struct{} {
	tokens := map[string]struct{}{}
	for _, f := range strings.Fields(strings.ToLower(text)) {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
		})
		if f == "" {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		tokens[f] = struct{}{}
	}
	return tokens
}

// Jaccard computes token-set Jaccard similarity between two texts after
// normalization. Two empty token sets have similarity zero.
func Jaccard(a, b string) float64 {
	ta, tb := normalizeTokens(a), normalizeTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}
