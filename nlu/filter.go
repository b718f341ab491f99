package nlu

import (
	"slices"
	"strings"

	"github.com/iai-group/MovieBot-sub000/annotate"
	"github.com/iai-group/MovieBot-sub000/types"
)

// match is a constraint located in the padded normalized utterance. start is
// -1 when the constraint carries no span that can be found.
type match struct {
	c          types.Constraint
	start, end int
	dropped    bool
}

var tokenSlots = map[types.Slot]bool{
	types.SlotGenres:    true,
	types.SlotKeywords:  true,
	types.SlotActors:    true,
	types.SlotDirectors: true,
}

func locate(norm string, cs []types.Constraint) []*match {
	text := padded(norm)
	out := make([]*match, len(cs))
	for i, c := range cs {
		m := &match{c: c, start: -1, end: -1}
		if span := annotate.Normalize(c.Span); span != "" {
			if idx := strings.Index(text, padded(span)); idx >= 0 {
				m.start = idx + 1
				m.end = m.start + len(span)
			}
		}
		out[i] = m
	}
	return out
}

func lowerText(c types.Constraint) string {
	return strings.ToLower(c.Value.Text())
}

// strictSubTokens reports whether every token of a occurs in b and b is longer.
func strictSubTokens(a, b string) bool {
	at, bt := annotate.Tokens(a), annotate.Tokens(b)
	if len(at) == 0 || len(at) >= len(bt) {
		return false
	}
	for _, t := range at {
		if !slices.Contains(bt, t) {
			return false
		}
	}
	return true
}

// filterConstraints resolves overlaps between the constraints of a
// multi-slot scan. The rules run in a fixed order and each only removes,
// rewrites or splits constraints.
func (r *LocalResolver) filterConstraints(norm string, cs []types.Constraint) []types.Constraint {
	matches := locate(norm, cs)
	live := func(yield func(*match) bool) {
		for _, m := range matches {
			if !m.dropped && !yield(m) {
				return
			}
		}
	}

	for m := range live {
		if m.c.Slot != types.SlotYear && (isBasicPhrase(m.c.Span) || isBasicPhrase(m.c.Value.Text())) {
			m.dropped = true
		}
	}

	for m := range live {
		if m.c.Slot != types.SlotKeywords {
			continue
		}
		for o := range live {
			if o.c.Slot != types.SlotKeywords && strings.EqualFold(o.c.Value.Text(), m.c.Value.Text()) {
				m.dropped = true
				break
			}
		}
	}

	for m := range live {
		if !tokenSlots[m.c.Slot] {
			continue
		}
		for o := range live {
			if o != m && tokenSlots[o.c.Slot] && strictSubTokens(m.c.Value.Text(), o.c.Value.Text()) {
				m.dropped = true
				break
			}
		}
	}

	dict := r.annotator.Dictionary()
	for m := range live {
		if m.c.Slot != types.SlotTitle {
			continue
		}
		for _, slot := range []types.Slot{types.SlotGenres, types.SlotKeywords} {
			if v, ok := dict.Canonical(slot, m.c.Value.Text()); ok && r.ont.Declared(slot) {
				m.c.Slot = slot
				m.c.Value = types.Literal(v).WithNegation(m.c.Value.IsNegated())
				break
			}
		}
	}

	seen := map[string]bool{}
	for m := range live {
		key := string(m.c.Slot) + "\x00" + lowerText(m.c)
		if seen[key] {
			m.dropped = true
			continue
		}
		seen[key] = true
	}

	for m := range live {
		if m.c.Slot == types.SlotYear {
			continue
		}
		for o := range live {
			if o.c.Slot == m.c.Slot || o.c.Slot == types.SlotYear {
				continue
			}
			if a, b := lowerText(m.c), lowerText(o.c); a != b && strings.Contains(b, a) {
				m.dropped = true
				break
			}
		}
	}

	var split []*match
	for _, m := range matches {
		if m.dropped {
			continue
		}
		if m.c.Slot != types.SlotGenres {
			split = append(split, m)
			continue
		}
		split = append(split, r.splitGenre(m)...)
	}
	matches = split

	r.disambiguatePersons(norm, matches)
	applyNegation(norm, matches)

	var out []types.Constraint
	for m := range live {
		out = append(out, m.c)
	}
	return out
}

// splitGenre breaks a multi-word genre into its words when every word is a
// genre of its own.
func (r *LocalResolver) splitGenre(m *match) []*match {
	tokens := annotate.Tokens(m.c.Value.Text())
	if len(tokens) < 2 {
		return []*match{m}
	}
	dict := r.annotator.Dictionary()
	parts := make([]*match, 0, len(tokens))
	for _, t := range tokens {
		v, ok := dict.Canonical(types.SlotGenres, t)
		if !ok {
			return []*match{m}
		}
		part := *m
		part.c.Value = types.Literal(v).WithNegation(m.c.Value.IsNegated())
		parts = append(parts, &part)
	}
	return parts
}

// disambiguatePersons keeps one of two actor and director constraints with
// the same value when the text before the name holds a trigger phrase. The
// trigger closest to the name wins; without any trigger both are kept.
func (r *LocalResolver) disambiguatePersons(norm string, matches []*match) {
	text := padded(norm)
	for _, m := range matches {
		if m.dropped || m.c.Slot != types.SlotActors || m.start < 0 {
			continue
		}
		var director *match
		for _, o := range matches {
			if !o.dropped && o.c.Slot == types.SlotDirectors && strings.EqualFold(o.c.Value.Text(), m.c.Value.Text()) {
				director = o
				break
			}
		}
		if director == nil {
			continue
		}
		prefix := strings.TrimSpace(text[:m.start])
		d := lastPhrase(prefix, directorTriggers)
		a := lastPhrase(prefix, actorTriggers)
		switch {
		case d > a:
			m.dropped = true
		case a > d:
			director.dropped = true
		}
	}
}

// applyNegation flips a constraint when the text before it holds a
// negation phrase, so "dont want horror or comedy" negates both genres.
func applyNegation(norm string, matches []*match) {
	text := padded(norm)
	for _, m := range matches {
		if m.dropped || m.start < 0 {
			continue
		}
		if !hasAny(strings.TrimSpace(text[:m.start]), negationPhrases) {
			continue
		}
		if m.c.Op == types.OpEQ {
			m.c.Op = types.OpNE
		} else {
			m.c.Op = m.c.Op.Negate()
		}
	}
}
