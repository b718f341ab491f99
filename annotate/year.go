package annotate

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/iai-group/MovieBot-sub000/types"
)

var (
	decadeRe      = regexp.MustCompile(`\b(?:(1[89]|20)?(\d)0)['’]?s\b`)
	decadeWordRe  = regexp.MustCompile(`\b(twenties|thirties|forties|fifties|sixties|seventies|eighties|nineties)\b`)
	centuryRe     = regexp.MustCompile(`\b(1\d|2[01])(?:st|nd|rd|th)\b`)
	yearRe        = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2})\b`)
	recentRe      = regexp.MustCompile(`\b(new|newer|newest|latest|recent|modern)\b`)
	oldRe         = regexp.MustCompile(`\b(old|older|oldest|classic|classics)\b`)
	decadeByWord  = map[string]int{"twenties": 1920, "thirties": 1930, "forties": 1940, "fifties": 1950, "sixties": 1960, "seventies": 1970, "eighties": 1980, "nineties": 1990}
	recencyOffset = 5
)

// YearAnnotator recognises temporal expressions. Only the earliest one in the
// utterance is kept.
type YearAnnotator struct {
	threshold int
}

// NewYearAnnotator uses threshold as the boundary for "new" and "old"; zero
// means five years before the current year.
func NewYearAnnotator(threshold int) *YearAnnotator {
	if threshold == 0 {
		threshold = time.Now().Year() - recencyOffset
	}
	return &YearAnnotator{threshold: threshold}
}

type yearMatch struct {
	pos  int
	span string
	op   types.Operator
	text string
}

func (a *YearAnnotator) Annotate(utterance string) []types.Constraint {
	text := strings.ToLower(utterance)
	var best *yearMatch
	consider := func(m yearMatch) {
		if best == nil || m.pos < best.pos {
			best = &m
		}
	}
	for _, loc := range decadeRe.FindAllStringSubmatchIndex(text, -1) {
		d, _ := strconv.Atoi(text[loc[4]:loc[5]])
		start := 1900 + d*10
		if loc[2] >= 0 {
			century, _ := strconv.Atoi(text[loc[2]:loc[3]])
			start = century*100 + d*10
		} else if d <= 2 {
			start = 2000 + d*10
		}
		consider(yearMatch{pos: loc[0], span: text[loc[0]:loc[1]], op: types.OpBetween, text: between(start, start+10)})
	}
	for _, loc := range decadeWordRe.FindAllStringIndex(text, -1) {
		start := decadeByWord[text[loc[0]:loc[1]]]
		consider(yearMatch{pos: loc[0], span: text[loc[0]:loc[1]], op: types.OpBetween, text: between(start, start+10)})
	}
	for _, loc := range centuryRe.FindAllStringSubmatchIndex(text, -1) {
		c, _ := strconv.Atoi(text[loc[2]:loc[3]])
		start := (c - 1) * 100
		consider(yearMatch{pos: loc[0], span: text[loc[0]:loc[1]], op: types.OpBetween, text: between(start, start+100)})
	}
	for _, loc := range yearRe.FindAllStringIndex(text, -1) {
		consider(yearMatch{pos: loc[0], span: text[loc[0]:loc[1]], op: types.OpEQ, text: text[loc[0]:loc[1]]})
	}
	for _, loc := range recentRe.FindAllStringIndex(text, -1) {
		consider(yearMatch{pos: loc[0], span: text[loc[0]:loc[1]], op: types.OpGT, text: strconv.Itoa(a.threshold)})
	}
	for _, loc := range oldRe.FindAllStringIndex(text, -1) {
		consider(yearMatch{pos: loc[0], span: text[loc[0]:loc[1]], op: types.OpLT, text: strconv.Itoa(a.threshold)})
	}
	if best == nil {
		return nil
	}
	c := types.MustConstraint(types.SlotYear, best.op, types.Literal(best.text)).WithSpan(best.span)
	return []types.Constraint{c}
}

func between(start, end int) string {
	return strconv.Itoa(start) + " AND " + strconv.Itoa(end)
}
