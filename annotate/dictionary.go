package annotate

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/iai-group/MovieBot-sub000/types"
)

// ValueSource lists the literal catalog values of a slot.
type ValueSource interface {
	Values(ctx context.Context, slot types.Slot) ([]string, error)
}

type entry struct {
	value  string
	padded string
	tokens []string
	lemmas []string
}

type slotDict struct {
	exact   map[string]string
	entries []entry
}

// Dictionary maps lemmatized catalog values back to their literal form, per
// slot. It is immutable once built and safe for concurrent reads.
type Dictionary struct {
	slots map[types.Slot]*slotDict
}

// BuildDictionary loads the values of every slot in parallel.
func BuildDictionary(ctx context.Context, src ValueSource, slots []types.Slot) (*Dictionary, error) {
	d := &Dictionary{slots: make(map[types.Slot]*slotDict, len(slots))}
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for _, slot := range slots {
		g.Go(func() error {
			values, err := src.Values(ctx, slot)
			if err != nil {
				return fmt.Errorf("load %s values: %w", slot, err)
			}
			sd := newSlotDict(values)
			mu.Lock()
			d.slots[slot] = sd
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

// NewDictionary builds a dictionary from literal values.
func NewDictionary(values map[types.Slot][]string) *Dictionary {
	d := &Dictionary{slots: make(map[types.Slot]*slotDict, len(values))}
	for slot, vs := range values {
		d.slots[slot] = newSlotDict(vs)
	}
	return d
}

func newSlotDict(values []string) *slotDict {
	sd := &slotDict{exact: make(map[string]string, len(values))}
	for _, v := range values {
		if types.IsReserved(v) {
			continue
		}
		lemma := Lemmatize(v)
		if lemma == "" {
			continue
		}
		if _, dup := sd.exact[lemma]; dup {
			continue
		}
		tokens := Tokens(v)
		lemmas := make([]string, len(tokens))
		for i, t := range tokens {
			lemmas[i] = Lemma(t)
		}
		sd.exact[lemma] = strings.TrimSpace(v)
		sd.entries = append(sd.entries, entry{
			value:  strings.TrimSpace(v),
			padded: " " + lemma + " ",
			tokens: tokens,
			lemmas: lemmas,
		})
	}
	return sd
}

// Exact returns the literal whose lemma equals the lemmatized gram.
func (d *Dictionary) Exact(slot types.Slot, lemma string) (string, bool) {
	sd, ok := d.slots[slot]
	if !ok {
		return "", false
	}
	v, ok := sd.exact[lemma]
	return v, ok
}

// Contains reports whether text is, after lemmatization, a value of slot.
func (d *Dictionary) Contains(slot types.Slot, text string) bool {
	_, ok := d.Exact(slot, Lemmatize(text))
	return ok
}

// Canonical returns the literal spelling of text in slot.
func (d *Dictionary) Canonical(slot types.Slot, text string) (string, bool) {
	return d.Exact(slot, Lemmatize(text))
}

// Touching counts the values of slot containing the lemmatized gram as a
// whole-token run.
func (d *Dictionary) Touching(slot types.Slot, lemma string) int {
	sd, ok := d.slots[slot]
	if !ok || lemma == "" {
		return 0
	}
	needle := " " + lemma + " "
	n := 0
	for _, e := range sd.entries {
		if strings.Contains(e.padded, needle) {
			n++
		}
	}
	return n
}

// Surface returns the words of the first value containing the lemmatized
// gram, spelled as in that value.
func (d *Dictionary) Surface(slot types.Slot, lemma string) (string, bool) {
	sd, ok := d.slots[slot]
	if !ok || lemma == "" {
		return "", false
	}
	needle := strings.Fields(lemma)
	for _, e := range sd.entries {
		for i := 0; i+len(needle) <= len(e.lemmas); i++ {
			if slices.Equal(e.lemmas[i:i+len(needle)], needle) {
				return strings.Join(e.tokens[i:i+len(needle)], " "), true
			}
		}
	}
	return "", false
}

// Values returns the literals of slot in load order.
func (d *Dictionary) Values(slot types.Slot) []string {
	sd, ok := d.slots[slot]
	if !ok {
		return nil
	}
	out := make([]string, len(sd.entries))
	for i, e := range sd.entries {
		out[i] = e.value
	}
	return out
}

func (d *Dictionary) Size(slot types.Slot) int {
	if sd, ok := d.slots[slot]; ok {
		return len(sd.entries)
	}
	return 0
}
