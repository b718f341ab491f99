package policy

import (
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iai-group/MovieBot-sub000/annotate"
	"github.com/iai-group/MovieBot-sub000/ontology"
	"github.com/iai-group/MovieBot-sub000/state"
	"github.com/iai-group/MovieBot-sub000/types"
)

// ReasonDeny is the INFORM placeholder used when the user asked nothing the
// policy can answer.
const ReasonDeny = "deny"

// Policy picks the next agent acts from the dialogue state. It reads the
// state and never changes it.
type Policy struct {
	ont    *ontology.Ontology
	rng    *rand.Rand
	logger *zap.Logger
}

type Option func(*Policy)

// WithRand injects the randomness used to pick slots and examples.
func WithRand(rng *rand.Rand) Option {
	return func(p *Policy) { p.rng = rng }
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Policy) { p.logger = logger }
}

func New(ont *ontology.Ontology, opts ...Option) *Policy {
	p := &Policy{ont: ont, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	if p.rng == nil {
		seed := uint64(time.Now().UnixNano())
		p.rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	p.logger = p.logger.Named("policy")
	return p
}

func agent(intent types.Intent, cs ...types.Constraint) types.DialogueAct {
	return types.MustAgentAct(intent, cs...)
}

func (p *Policy) elicit(slot types.Slot) types.DialogueAct {
	return agent(types.IntentElicit, types.MustConstraint(slot, types.OpEQ, types.Literal("")))
}

func recommend(item types.Item) types.DialogueAct {
	return agent(types.IntentRecommend, types.MustConstraint(types.SlotTitle, types.OpEQ, types.Literal(item.Title())))
}

// NextAction returns the agent acts for the next turn. restart asks for a
// fresh start regardless of what the user said.
func (p *Policy) NextAction(st *state.DialogueState, restart bool) []types.DialogueAct {
	acts, step := p.decide(st, restart)
	acts = p.addExamples(acts, st)
	p.logger.Debug("Selected next action", zap.String("step", step), zap.Stringers("acts", acts))
	return acts
}

func (p *Policy) decide(st *state.DialogueState, restart bool) ([]types.DialogueAct, string) {
	userIntent, hasUser := st.LastUserIntent()
	if !hasUser && !restart {
		return []types.DialogueAct{agent(types.IntentWelcome)}, "welcome"
	}
	if restart || userIntent == types.IntentRestart {
		return []types.DialogueAct{agent(types.IntentRestart), p.elicit(p.firstRequestable())}, "restart"
	}
	if userIntent == types.IntentBye {
		return []types.DialogueAct{agent(types.IntentBye)}, "bye"
	}
	if last, ok := st.LastAgentAct(); ok && last.Intent == types.IntentWelcome {
		switch userIntent {
		case types.IntentAcknowledge, types.IntentUnk, types.IntentHi:
			return []types.DialogueAct{p.elicit(p.firstRequestable())}, "after_welcome"
		}
	}

	flags := st.Flags
	switch {
	case flags.MadePartialOffer:
		unfilled := st.UnfilledSlots(p.ont.Annotated())
		if len(unfilled) >= st.SlotLeftUnasked {
			count := types.MustConstraint(types.SlotCount, types.OpEQ, types.Literal(strconv.Itoa(len(st.DatabaseResult))))
			return []types.DialogueAct{agent(types.IntentCountResults, count), p.elicit(p.narrowingSlot(unfilled))}, "partial_offer"
		}
		if item, ok := st.FirstNotRecommended(st.DatabaseResult); ok {
			return []types.DialogueAct{recommend(item)}, "partial_offer"
		}
		return []types.DialogueAct{agent(types.IntentNoResults)}, "partial_offer"
	case flags.ShouldMakeOffer && st.ItemInFocus != nil:
		return []types.DialogueAct{recommend(*st.ItemInFocus)}, "offer"
	case flags.OfferNoResults:
		return []types.DialogueAct{agent(types.IntentNoResults)}, "no_results"
	}

	if flags.MadeOffer && st.ItemInFocus != nil {
		var acts []types.DialogueAct
		for _, ua := range st.LastUserActs {
			switch ua.Intent {
			case types.IntentInquire:
				acts = append(acts, p.inform(*st.ItemInFocus, ua))
			case types.IntentAccept:
				acts = append(acts, agent(types.IntentContinueRecommendation,
					types.MustConstraint(types.SlotTitle, types.OpEQ, types.Literal(st.ItemInFocus.Title()))))
			}
		}
		if len(acts) > 0 {
			return acts, "made_offer"
		}
	}

	var acts []types.DialogueAct
	elicited := false
	for _, ua := range st.LastUserActs {
		switch {
		case !flags.ReqFilled && ua.Intent != types.IntentHi && !elicited:
			if slot, ok := p.firstUnfilledRequestable(st); ok {
				acts = append(acts, p.elicit(slot))
				elicited = true
			}
		case ua.Intent == types.IntentUnk:
			acts = append(acts, agent(types.IntentCantHelp))
		}
	}
	if len(acts) > 0 {
		return acts, "per_act"
	}
	return []types.DialogueAct{agent(types.IntentCantHelp)}, "cant_help"
}

// inform answers the slots asked by an INQUIRE act about item.
func (p *Policy) inform(item types.Item, inquire types.DialogueAct) types.DialogueAct {
	var cs []types.Constraint
	for _, c := range inquire.Constraints {
		if !p.ont.Declared(c.Slot) {
			continue
		}
		value := types.NotFoundValue
		if v := item.Get(c.Slot); v != "" {
			value = types.Literal(v)
		}
		cs = append(cs, types.MustConstraint(c.Slot, types.OpEQ, value))
	}
	if len(cs) == 0 {
		cs = append(cs, types.MustConstraint(types.SlotReason, types.OpEQ, types.Literal(ReasonDeny)))
	}
	return agent(types.IntentInform, cs...)
}

func (p *Policy) firstRequestable() types.Slot {
	return p.ont.SystemRequestable()[0]
}

func (p *Policy) firstUnfilledRequestable(st *state.DialogueState) (types.Slot, bool) {
	for _, slot := range p.ont.SystemRequestable() {
		if !st.CIN.Filled(slot) || st.CIN.HasSentinel(slot, types.NotFound) {
			return slot, true
		}
	}
	return "", false
}

// narrowingSlot picks a random unfilled slot that narrows the results,
// falling back to any unfilled slot other than the title.
func (p *Policy) narrowingSlot(unfilled []types.Slot) types.Slot {
	var eligible []types.Slot
	for _, slot := range p.ont.Narrowing() {
		if slices.Contains(unfilled, slot) {
			eligible = append(eligible, slot)
		}
	}
	if len(eligible) == 0 {
		for _, slot := range unfilled {
			if slot != types.SlotTitle {
				eligible = append(eligible, slot)
			}
		}
	}
	if len(eligible) == 0 {
		return p.firstRequestable()
	}
	return eligible[p.rng.IntN(len(eligible))]
}

// addExamples attaches one or two catalog values from the last result set to
// every ELICIT outside the year slot.
func (p *Policy) addExamples(acts []types.DialogueAct, st *state.DialogueState) []types.DialogueAct {
	for i, a := range acts {
		if a.Intent != types.IntentElicit || len(a.Constraints) == 0 {
			continue
		}
		slot := a.Constraints[0].Slot
		if slot == types.SlotYear {
			continue
		}
		for _, ex := range p.Examples(slot, st.DatabaseResult, st.CIN) {
			acts[i].Constraints = append(acts[i].Constraints, types.MustConstraint(slot, types.OpIn, types.Literal(ex)))
		}
	}
	return acts
}

// Examples samples one or two distinct values of slot from items, preferring
// two-word values and skipping values already in the need.
func (p *Policy) Examples(slot types.Slot, items []types.Item, cin types.Need) []string {
	seen := map[string]bool{}
	for _, v := range cin[slot] {
		seen[strings.ToLower(v.Text())] = true
	}
	var all, twoWord []string
	for _, item := range items {
		values := []string{item.Get(slot)}
		if p.ont.Multi(slot) {
			values = item.List(slot)
		}
		for _, v := range values {
			key := strings.ToLower(strings.TrimSpace(v))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			all = append(all, v)
			if len(annotate.Tokens(v)) == 2 {
				twoWord = append(twoWord, v)
			}
		}
	}
	pool := all
	if len(twoWord) > 0 {
		pool = twoWord
	}
	if len(pool) == 0 {
		return nil
	}
	n := min(1+p.rng.IntN(2), len(pool))
	out := make([]string, 0, n)
	for _, i := range p.rng.Perm(len(pool))[:n] {
		out = append(out, pool[i])
	}
	return out
}
