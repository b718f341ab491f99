package state

import (
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/iai-group/MovieBot-sub000/ontology"
	"github.com/iai-group/MovieBot-sub000/types"
)

const (
	DefaultSlotLeftUnasked = 3
	DefaultMaxResults      = 20
)

// Tracker is the only writer of a DialogueState. A Tracker serves one
// conversation and is not safe for concurrent use.
type Tracker struct {
	ont             *ontology.Ontology
	state           *DialogueState
	slotLeftUnasked int
	maxResults      int
	logger          *zap.Logger
}

type Option func(*Tracker)

// WithSlotLeftUnasked sets how many need slots must still be empty for a
// large result set to become a partial offer.
func WithSlotLeftUnasked(n int) Option {
	return func(t *Tracker) { t.slotLeftUnasked = n }
}

// WithMaxResults sets the result count above which an offer is partial.
func WithMaxResults(n int) Option {
	return func(t *Tracker) { t.maxResults = n }
}

func WithLogger(logger *zap.Logger) Option {
	return func(t *Tracker) { t.logger = logger }
}

func NewTracker(ont *ontology.Ontology, opts ...Option) *Tracker {
	t := &Tracker{
		ont:             ont,
		slotLeftUnasked: DefaultSlotLeftUnasked,
		maxResults:      DefaultMaxResults,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.Named("tracker")
	t.Initialize()
	return t
}

func (t *Tracker) State() *DialogueState { return t.state }

// Initialize resets the conversation to its opening state.
func (t *Tracker) Initialize() {
	cin := t.ont.EmptyNeed()
	t.state = &DialogueState{
		CIN:             cin,
		PIN:             cin.Clone(),
		Recommended:     map[string][]string{},
		DualParams:      map[string][]types.Slot{},
		SlotLeftUnasked: t.slotLeftUnasked,
		MaxResults:      t.maxResults,
		scalarHistory:   map[types.Slot][]types.Value{},
	}
}

// mergeActs folds acts sharing an intent into one, keeping first-seen order.
func mergeActs(acts []types.DialogueAct) []types.DialogueAct {
	var out []types.DialogueAct
	index := map[types.Intent]int{}
	for _, act := range acts {
		if i, ok := index[act.Intent]; ok {
			out[i].Constraints = append(out[i].Constraints, act.Constraints...)
			if out[i].Preference == 0 {
				out[i].Preference = act.Preference
			}
			continue
		}
		index[act.Intent] = len(out)
		act.Constraints = slices.Clone(act.Constraints)
		out = append(out, act)
	}
	return out
}

func (t *Tracker) UpdateStateUser(acts []types.DialogueAct) {
	merged := mergeActs(acts)
	st := t.state
	st.PIN = st.CIN.Clone()
	st.LastUserActs = merged
	flags := st.Flags
	flags.MadePartialOffer, flags.ShouldMakeOffer, flags.OfferNoResults = false, false, false

	for _, act := range merged {
		t.logger.Debug("Applying user act", zap.Stringer("act", act))
		switch act.Intent {
		case types.IntentReveal:
			for _, c := range act.Constraints {
				t.reveal(c)
			}
			st.OfferSimilar, st.SimilarTitles = false, nil
			st.ItemInFocus = nil
			flags.MadeOffer = false
		case types.IntentRemovePreference:
			for _, c := range act.Constraints {
				t.remove(c)
			}
			st.ItemInFocus = nil
			flags.MadeOffer = false
		case types.IntentReject:
			if title, ok := t.focusTitle(act); ok {
				reason := ReasonDontLike
				if c, ok := act.First(types.SlotReason); ok && !c.Value.IsEmpty() {
					reason = c.Value.Text()
				} else if act.Preference == 0 {
					reason = ReasonWatched
				}
				st.Recommended[title] = append(st.Recommended[title], reason)
			}
			st.ItemInFocus = nil
			flags.MadeOffer = false
		case types.IntentAccept:
			if title, ok := t.focusTitle(act); ok {
				st.Recommended[title] = append(st.Recommended[title], ReasonAccept)
			}
			flags.MadeOffer = true
		case types.IntentContinueRecommendation:
			st.OfferSimilar = true
			st.SimilarTitles = nil
			for _, c := range act.Constraints {
				if c.Slot == types.SlotTitle && c.Op == types.OpIn && !c.Value.IsEmpty() {
					st.SimilarTitles = append(st.SimilarTitles, c.Value.Text())
				}
			}
			flags.MadeOffer = false
		case types.IntentRestart:
			t.Initialize()
			t.state.LastUserActs = merged
			t.state.PIN = t.state.CIN.Clone()
			return
		case types.IntentBye:
			flags.AtTerminal = true
		}
	}
	st.Flags = t.recompute(flags)
}

// reveal writes one constraint into the need. Negation and range operators
// are folded into the stored literal.
func (t *Tracker) reveal(c types.Constraint) {
	st := t.state
	if _, ok := st.CIN[c.Slot]; !ok {
		t.logger.Warn("Ignoring constraint on slot outside the need", zap.String("slot", string(c.Slot)))
		return
	}
	v := storedValue(c)
	if t.ont.Multi(c.Slot) {
		if v.IsSentinel() {
			st.CIN[c.Slot] = []types.Value{v}
			return
		}
		values := slices.DeleteFunc(st.CIN[c.Slot], func(old types.Value) bool {
			return old.IsSentinel() || old.Fold(v.Negate())
		})
		if !slices.ContainsFunc(values, v.Fold) {
			values = append(values, v)
		}
		st.CIN[c.Slot] = values
		return
	}
	if old := st.CIN[c.Slot]; len(old) > 0 && old[0] != v {
		st.scalarHistory[c.Slot] = append(st.scalarHistory[c.Slot], old[0])
	}
	st.CIN[c.Slot] = []types.Value{v}
}

func storedValue(c types.Constraint) types.Value {
	v := c.Value
	if v.IsSentinel() {
		return v
	}
	neg := v.IsNegated()
	text := v.Text()
	switch c.Op {
	case types.OpNE:
		neg = !neg
	case types.OpNot:
		neg = !neg
		text = types.RangeExpression(types.OpBetween, text)
	case types.OpLT, types.OpLE, types.OpGT, types.OpGE, types.OpBetween:
		text = types.RangeExpression(c.Op, text)
	}
	return types.Literal(text).WithNegation(neg)
}

func (t *Tracker) remove(c types.Constraint) {
	st := t.state
	values, ok := st.CIN[c.Slot]
	if !ok {
		return
	}
	if c.Value.IsEmpty() {
		st.CIN[c.Slot] = []types.Value{}
		delete(st.scalarHistory, c.Slot)
		return
	}
	target := storedValue(c)
	i := slices.IndexFunc(values, target.Fold)
	if i < 0 {
		i = slices.IndexFunc(values, func(v types.Value) bool { return strings.EqualFold(v.Text(), target.Text()) })
	}
	if i < 0 {
		return
	}
	if t.ont.Multi(c.Slot) {
		st.CIN[c.Slot] = slices.Delete(slices.Clone(values), i, i+1)
		return
	}
	history := st.scalarHistory[c.Slot]
	if len(history) == 0 {
		st.CIN[c.Slot] = []types.Value{}
		return
	}
	st.CIN[c.Slot] = []types.Value{history[len(history)-1]}
	st.scalarHistory[c.Slot] = history[:len(history)-1]
}

func (t *Tracker) focusTitle(act types.DialogueAct) (string, bool) {
	if t.state.ItemInFocus != nil {
		return t.state.ItemInFocus.Title(), true
	}
	if c, ok := act.First(types.SlotTitle); ok && !c.Value.IsEmpty() {
		return c.Value.Text(), true
	}
	return "", false
}

func (t *Tracker) UpdateStateAgent(acts []types.DialogueAct) {
	st := t.state
	st.LastAgentActs = slices.Clone(acts)
	st.AgentActsHistory = append(st.AgentActsHistory, st.LastAgentActs)
	flags := st.Flags
	for _, act := range acts {
		switch act.Intent {
		case types.IntentRecommend:
			c, ok := act.First(types.SlotTitle)
			if !ok {
				continue
			}
			title := c.Value.Text()
			flags.MadeOffer = true
			flags.ShouldMakeOffer, flags.MadePartialOffer, flags.OfferNoResults = false, false, false
			if _, seen := st.Recommended[title]; !seen {
				st.Recommended[title] = []string{}
			}
			if st.ItemInFocus == nil || !strings.EqualFold(st.ItemInFocus.Title(), title) {
				for _, item := range st.DatabaseResult {
					if strings.EqualFold(item.Title(), title) {
						item := item
						st.ItemInFocus = &item
						break
					}
				}
			}
		case types.IntentBye:
			flags.AtTerminal = true
		}
	}
	st.Flags = flags
}

// UpdateStateDB records a lookup result. In offer-similar mode the backup
// result is used when the primary one is empty.
func (t *Tracker) UpdateStateDB(results, backup []types.Item) {
	st := t.state
	flags := st.Flags
	flags.MadePartialOffer, flags.ShouldMakeOffer, flags.OfferNoResults, flags.MadeOffer = false, false, false, false

	if st.OfferSimilar && len(results) == 0 {
		results = backup
	}
	st.DatabaseResult = slices.Clone(results)
	unfilled := len(st.UnfilledSlots(t.ont.Annotated()))

	switch {
	case !st.OfferSimilar && (len(results) == 0 || (len(results) > st.MaxResults && unfilled >= st.SlotLeftUnasked)):
		flags.MadePartialOffer = true
	default:
		if item, ok := st.FirstNotRecommended(results); ok {
			st.ItemInFocus = &item
			flags.ShouldMakeOffer = true
		} else {
			flags.OfferNoResults = true
		}
	}
	t.logger.Debug("Applied lookup result",
		zap.Int("results", len(results)),
		zap.Int("unfilled", unfilled),
		zap.Bool("partial", flags.MadePartialOffer),
		zap.Bool("offer", flags.ShouldMakeOffer))
	st.Flags = t.recompute(flags)
}

// recompute derives the need-based flags from the CIN on top of the
// offer flags in base.
func (t *Tracker) recompute(base Flags) Flags {
	st := t.state
	flags := base
	flags.ReqFilled = ReqFilled(st.CIN, t.ont.SystemRequestable())
	flags.CanLookup = flags.ReqFilled && !st.CIN.AnySentinel(types.NotFound)
	if !flags.ReqFilled {
		flags.MadePartialOffer, flags.ShouldMakeOffer, flags.OfferNoResults = false, false, false
	}
	st.DualParams = DualParams(st.CIN)
	flags.MustClarify = len(st.DualParams) > 0
	return flags
}

// ReqFilled reports whether every requestable slot holds an answer. A
// NOT_FOUND answer does not count; DONT_CARE does.
func ReqFilled(cin types.Need, requestable []types.Slot) bool {
	for _, slot := range requestable {
		if !cin.Filled(slot) || cin.HasSentinel(slot, types.NotFound) {
			return false
		}
	}
	return true
}

// DualParams finds literals held by two or more slots.
func DualParams(cin types.Need) map[string][]types.Slot {
	owners := map[string][]types.Slot{}
	for _, slot := range cin.Slots() {
		for _, v := range cin[slot] {
			if v.IsSentinel() || v.Text() == "" {
				continue
			}
			key := strings.ToLower(v.Text())
			if !slices.Contains(owners[key], slot) {
				owners[key] = append(owners[key], slot)
			}
		}
	}
	out := map[string][]types.Slot{}
	for key, slots := range owners {
		if len(slots) > 1 {
			out[key] = slots
		}
	}
	return out
}
