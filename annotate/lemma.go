package annotate

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
	"github.com/bbalet/stopwords"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var irregular = map[string]string{
	"men":      "man",
	"women":    "woman",
	"children": "child",
	"people":   "person",
	"mice":     "mouse",
	"wolves":   "wolf",
	"knives":   "knife",
	"lives":    "life",
	"thieves":  "thief",
	"series":   "series",
	"teeth":    "tooth",
	"feet":     "foot",
}

// Normalize lowercases, folds accents, drops apostrophes and turns other
// punctuation into spaces.
func Normalize(text string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), text)
	if err != nil {
		folded = text
	}
	var b strings.Builder
	b.Grow(len(folded))
	space := true
	for _, r := range strings.ToLower(folded) {
		switch {
		case r == '\'' || r == '’' || r == '`':
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			space = false
		default:
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Tokens splits normalized text.
func Tokens(text string) []string {
	return strings.Fields(Normalize(text))
}

var english = sync.OnceValue(func() *golem.Lemmatizer {
	l, err := golem.New(en.New())
	if err != nil {
		panic(fmt.Sprintf("load english lemmas: %v", err))
	}
	return l
})

// Lemma reduces a normalized token to its dictionary form, so singular and
// plural forms share a key. Tokens with digits are kept as they are.
func Lemma(token string) string {
	if l, ok := irregular[token]; ok {
		return l
	}
	if len(token) <= 2 || strings.IndexFunc(token, unicode.IsDigit) >= 0 {
		return token
	}
	return english().Lemma(token)
}

// Lemmatize normalizes text and lemmatizes every token.
func Lemmatize(text string) string {
	tokens := Tokens(text)
	for i, t := range tokens {
		tokens[i] = Lemma(t)
	}
	return strings.Join(tokens, " ")
}

// domainStopWords extend the english list with contractions that lost their
// apostrophe and words every movie request carries.
var domainStopWords = toSet(
	"dont", "id", "im", "ill", "ive", "maybe", "really", "lot", "kind", "sort", "type",
	"movie", "film", "want", "like", "watch", "see", "show", "something", "recommend",
	"recommendation", "please", "look", "find", "good", "great", "nice", "best",
	"new", "old", "latest", "recent", "classic", "star", "direct", "director",
	"actor", "actress", "play", "genre", "year", "release", "anything",
)

func toSet(words ...string) map[string]bool {
	out := make(map[string]bool, len(words))
	for _, w := range words {
		out[w] = true
	}
	return out
}

// IsStopWord reports whether a token, or its lemma, carries no content.
// Tokens with digits always carry content.
func IsStopWord(token string) bool {
	if token == "" {
		return true
	}
	if strings.IndexFunc(token, unicode.IsDigit) >= 0 {
		return false
	}
	lemma := Lemma(token)
	if domainStopWords[token] || domainStopWords[lemma] {
		return true
	}
	return strings.TrimSpace(stopwords.CleanString(token, "en", false)) == ""
}

func allStop(tokens []string) bool {
	for _, t := range tokens {
		if !IsStopWord(t) {
			return false
		}
	}
	return true
}

func hasDigit(tokens []string) bool {
	for _, t := range tokens {
		if strings.IndexFunc(t, unicode.IsDigit) >= 0 {
			return true
		}
	}
	return false
}
