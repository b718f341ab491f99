package annotate

import (
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/iai-group/MovieBot-sub000/ontology"
	"github.com/iai-group/MovieBot-sub000/types"
)

// SlotAnnotator extracts constraints from an utterance. An annotator may
// emit constraints for more than one slot when those slots share values.
type SlotAnnotator interface {
	Annotate(utterance string) []types.Constraint
}

type gram struct {
	start, end int
	surface    string
	lemma      string
	// stop marks a multi-token gram made only of stop words, such as the
	// title "Get Out". It may match a value exactly but never partially.
	stop bool
}

type scan struct {
	surface []string
	lemmas  []string
	used    []bool
}

func newScan(utterance string) *scan {
	surface := Tokens(utterance)
	lemmas := make([]string, len(surface))
	for i, t := range surface {
		lemmas[i] = Lemma(t)
	}
	return &scan{surface: surface, lemmas: lemmas, used: make([]bool, len(surface))}
}

// grams yields candidate grams from the longest to the shortest, skipping
// spans already consumed, grams with digits and single stop words.
func (s *scan) grams(maxN int, yield func(g gram) bool) {
	for n := min(maxN, len(s.surface)); n >= 1; n-- {
		for i := 0; i+n <= len(s.surface); i++ {
			if slices.Contains(s.used[i:i+n], true) {
				continue
			}
			tokens := s.surface[i : i+n]
			if hasDigit(tokens) {
				continue
			}
			stop := allStop(tokens)
			if stop && n == 1 {
				continue
			}
			g := gram{
				start:   i,
				end:     i + n,
				surface: strings.Join(tokens, " "),
				lemma:   strings.Join(s.lemmas[i:i+n], " "),
				stop:    stop,
			}
			if !yield(g) {
				return
			}
		}
	}
}

func (s *scan) consume(g gram) {
	for i := g.start; i < g.end; i++ {
		s.used[i] = true
	}
}

type positioned struct {
	pos int
	c   types.Constraint
}

func ordered(found []positioned) []types.Constraint {
	slices.SortStableFunc(found, func(a, b positioned) int { return a.pos - b.pos })
	out := make([]types.Constraint, len(found))
	for i, f := range found {
		out[i] = f.c
	}
	return out
}

// TextAnnotator matches n-grams against one slot's dictionary. Non-overlapping
// exact matches win, longest first. Without any exact match and when partial
// matching is enabled, the gram touching the most values is emitted as it is
// spelled in the catalog.
type TextAnnotator struct {
	slot       types.Slot
	dict       *Dictionary
	maxN       int
	partialMin int
}

func NewTextAnnotator(slot types.Slot, dict *Dictionary, maxN, partialMin int) *TextAnnotator {
	return &TextAnnotator{slot: slot, dict: dict, maxN: maxN, partialMin: partialMin}
}

func (a *TextAnnotator) Annotate(utterance string) []types.Constraint {
	s := newScan(utterance)
	var found []positioned
	s.grams(a.maxN, func(g gram) bool {
		if v, ok := a.dict.Exact(a.slot, g.lemma); ok {
			found = append(found, positioned{g.start, types.MustConstraint(a.slot, types.OpEQ, types.Literal(v)).WithSpan(g.surface)})
			s.consume(g)
		}
		return true
	})
	if len(found) > 0 || a.partialMin == 0 {
		return ordered(found)
	}
	var (
		best      gram
		bestCount int
	)
	s.grams(a.maxN, func(g gram) bool {
		if g.stop || g.end-g.start < a.partialMin {
			return true
		}
		if n := a.dict.Touching(a.slot, g.lemma); n > bestCount {
			best, bestCount = g, n
		}
		return true
	})
	if bestCount == 0 {
		return nil
	}
	value, ok := a.dict.Surface(a.slot, best.lemma)
	if !ok {
		value = best.surface
	}
	return []types.Constraint{types.MustConstraint(a.slot, types.OpEQ, types.Literal(value)).WithSpan(best.surface)}
}

// PersonAnnotator matches names against the merged actor and director
// dictionaries and emits one constraint per slot the name belongs to.
type PersonAnnotator struct {
	dict *Dictionary
	maxN int
}

func NewPersonAnnotator(dict *Dictionary, maxN int) *PersonAnnotator {
	return &PersonAnnotator{dict: dict, maxN: maxN}
}

func (a *PersonAnnotator) Annotate(utterance string) []types.Constraint {
	s := newScan(utterance)
	var found []positioned
	s.grams(a.maxN, func(g gram) bool {
		matched := false
		for _, slot := range []types.Slot{types.SlotActors, types.SlotDirectors} {
			if v, ok := a.dict.Exact(slot, g.lemma); ok {
				found = append(found, positioned{g.start, types.MustConstraint(slot, types.OpEQ, types.Literal(v)).WithSpan(g.surface)})
				matched = true
			}
		}
		if matched {
			s.consume(g)
		}
		return true
	})
	return ordered(found)
}

// Annotator holds one SlotAnnotator per annotated slot of the ontology.
type Annotator struct {
	ont    *ontology.Ontology
	dict   *Dictionary
	slots  map[types.Slot]SlotAnnotator
	logger *zap.Logger
}

type Option func(*options)

type options struct {
	recencyThreshold int
	logger           *zap.Logger
	maxN             map[types.Slot]int
}

// WithRecencyThreshold sets the year that "new" and "old" are relative to.
func WithRecencyThreshold(year int) Option {
	return func(o *options) { o.recencyThreshold = year }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMaxNGram overrides the longest gram tried for a slot.
func WithMaxNGram(slot types.Slot, n int) Option {
	return func(o *options) { o.maxN[slot] = n }
}

var defaultMaxN = map[types.Slot]int{
	types.SlotTitle:     8,
	types.SlotKeywords:  8,
	types.SlotGenres:    2,
	types.SlotActors:    3,
	types.SlotDirectors: 3,
}

// New builds the slot annotators for every annotated slot of ont.
func New(ont *ontology.Ontology, dict *Dictionary, opts ...Option) *Annotator {
	o := options{maxN: map[types.Slot]int{}}
	for k, v := range defaultMaxN {
		o.maxN[k] = v
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	a := &Annotator{
		ont:    ont,
		dict:   dict,
		slots:  make(map[types.Slot]SlotAnnotator),
		logger: o.logger.Named("annotate"),
	}
	var person SlotAnnotator
	for _, slot := range ont.Annotated() {
		switch slot {
		case types.SlotYear:
			a.slots[slot] = NewYearAnnotator(o.recencyThreshold)
		case types.SlotActors, types.SlotDirectors:
			if person == nil {
				person = NewPersonAnnotator(dict, max(o.maxN[types.SlotActors], o.maxN[types.SlotDirectors]))
			}
			a.slots[slot] = person
		case types.SlotTitle:
			a.slots[slot] = NewTextAnnotator(slot, dict, o.maxN[slot], 2)
		case types.SlotKeywords:
			a.slots[slot] = NewTextAnnotator(slot, dict, o.maxN[slot], 1)
		default:
			n := o.maxN[slot]
			if n == 0 {
				n = 3
			}
			a.slots[slot] = NewTextAnnotator(slot, dict, n, 0)
		}
	}
	return a
}

func (a *Annotator) Dictionary() *Dictionary { return a.dict }

// Annotate extracts constraints on slot only.
func (a *Annotator) Annotate(slot types.Slot, utterance string) []types.Constraint {
	sa, ok := a.slots[slot]
	if !ok {
		return nil
	}
	var out []types.Constraint
	for _, c := range sa.Annotate(utterance) {
		if c.Slot == slot {
			out = append(out, c)
		}
	}
	a.logger.Debug("Annotated slot", zap.String("slot", string(slot)), zap.Int("constraints", len(out)))
	return out
}

// AnnotateAll runs every slot annotator once, in ontology order.
func (a *Annotator) AnnotateAll(utterance string) []types.Constraint {
	seen := map[SlotAnnotator]bool{}
	var out []types.Constraint
	for _, slot := range a.ont.Annotated() {
		sa, ok := a.slots[slot]
		if !ok || seen[sa] {
			continue
		}
		seen[sa] = true
		out = append(out, sa.Annotate(utterance)...)
	}
	a.logger.Debug("Annotated utterance", zap.Int("constraints", len(out)))
	return out
}
