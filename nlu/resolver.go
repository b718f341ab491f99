package nlu

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/iai-group/MovieBot-sub000/annotate"
	"github.com/iai-group/MovieBot-sub000/ontology"
	"github.com/iai-group/MovieBot-sub000/state"
	"github.com/iai-group/MovieBot-sub000/types"
)

// Resolver turns one user utterance into user dialogue acts. options are the
// replies offered with the previous agent turn.
type Resolver interface {
	GenerateDact(ctx context.Context, utterance string, options types.DialogueOptions, st *state.DialogueState) ([]types.DialogueAct, error)
}

// LocalResolver is the rule-based resolver. The first rule that produces an
// act wins.
type LocalResolver struct {
	ont       *ontology.Ontology
	annotator *annotate.Annotator
	logger    *zap.Logger
}

type Option func(*LocalResolver)

func WithLogger(logger *zap.Logger) Option {
	return func(r *LocalResolver) { r.logger = logger }
}

func NewLocalResolver(ont *ontology.Ontology, annotator *annotate.Annotator, opts ...Option) *LocalResolver {
	r := &LocalResolver{ont: ont, annotator: annotator, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("nlu")
	return r
}

func act(intent types.Intent, cs ...types.Constraint) []types.DialogueAct {
	return []types.DialogueAct{types.MustUserAct(intent, cs...)}
}

func (r *LocalResolver) GenerateDact(ctx context.Context, utterance string, options types.DialogueOptions, st *state.DialogueState) ([]types.DialogueAct, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	acts, rule := r.resolve(utterance, options, st)
	r.logger.Debug("Resolved utterance",
		zap.String("rule", rule),
		zap.String("utterance", utterance),
		zap.Stringers("acts", acts))
	return acts, nil
}

func (r *LocalResolver) resolve(utterance string, options types.DialogueOptions, st *state.DialogueState) ([]types.DialogueAct, string) {
	norm := annotate.Normalize(utterance)

	if a, ok := r.matchOption(norm, options, st); ok {
		return []types.DialogueAct{a}, "option"
	}
	if intent, ok := basicIntent(norm); ok {
		return act(intent), "basic"
	}

	last, hasLast := st.LastAgentAct()
	switch {
	case !hasLast:
		if acts := r.voluntary(utterance, norm); acts != nil {
			return acts, "first_turn"
		}
		if hasAny(norm, phrasesFor(types.IntentHi)) {
			return act(types.IntentHi), "first_turn"
		}
		return act(types.IntentUnk), "first_turn"

	case last.Intent == types.IntentWelcome:
		if acts := r.voluntary(utterance, norm); acts != nil {
			return acts, "welcome"
		}
		return act(types.IntentAcknowledge), "welcome"

	case last.Intent == types.IntentElicit && len(last.Constraints) > 0:
		return r.answerElicit(last.Constraints[0].Slot, utterance, norm), "elicit"

	case st.Flags.MadeOffer || last.Intent == types.IntentRecommend || last.Intent == types.IntentInform:
		return r.reactToOffer(utterance, norm, st), "offer"
	}
	if acts := r.voluntary(utterance, norm); acts != nil {
		return acts, "voluntary"
	}
	return act(types.IntentUnk), "unknown"
}

// matchOption maps an utterance equal to an offered reply onto its act.
func (r *LocalResolver) matchOption(norm string, options types.DialogueOptions, st *state.DialogueState) (types.DialogueAct, bool) {
	for _, opt := range options {
		if !opt.Act.Intent.IsUser() {
			continue
		}
		for _, text := range opt.Texts {
			if annotate.Normalize(text) != norm {
				continue
			}
			a := opt.Act
			if a.Intent == types.IntentContinueRecommendation && len(a.Constraints) == 0 {
				a.Constraints = SimilarConstraints(st.ItemInFocus)
			}
			return a, true
		}
	}
	return types.DialogueAct{}, false
}

// SimilarConstraints describes the item in focus and the titles similar to
// it, for a CONTINUE_RECOMMENDATION act.
func SimilarConstraints(item *types.Item) []types.Constraint {
	if item == nil {
		return nil
	}
	cs := []types.Constraint{types.MustConstraint(types.SlotTitle, types.OpEQ, types.Literal(item.Title()))}
	for _, title := range item.Similar {
		cs = append(cs, types.MustConstraint(types.SlotTitle, types.OpIn, types.Literal(title)))
	}
	return cs
}

func (r *LocalResolver) answerElicit(slot types.Slot, utterance, norm string) []types.DialogueAct {
	if cs := r.annotator.Annotate(slot, utterance); len(cs) > 0 {
		matches := locate(norm, cs)
		applyNegation(norm, matches)
		out := make([]types.Constraint, len(matches))
		for i, m := range matches {
			out[i] = m.c
		}
		return act(types.IntentReveal, out...)
	}
	if hasAny(norm, dontCarePhrases) {
		return act(types.IntentReveal, types.MustConstraint(slot, types.OpEQ, types.DontCareValue))
	}
	if acts := r.voluntary(utterance, norm); acts != nil {
		return acts
	}
	return act(types.IntentReveal, types.MustConstraint(slot, types.OpEQ, types.NotFoundValue))
}

func (r *LocalResolver) reactToOffer(utterance, norm string, st *state.DialogueState) []types.DialogueAct {
	var focus []types.Constraint
	if st.ItemInFocus != nil {
		focus = append(focus, types.MustConstraint(types.SlotTitle, types.OpEQ, types.Literal(st.ItemInFocus.Title())))
	}
	reject := func(reason string, preference float64) []types.DialogueAct {
		cs := slices.Concat(focus, []types.Constraint{types.MustConstraint(types.SlotReason, types.OpEQ, types.Literal(reason))})
		return []types.DialogueAct{types.MustUserAct(types.IntentReject, cs...).WithPreference(preference)}
	}
	switch {
	case hasAny(norm, dontLikePhrases):
		return reject(state.ReasonDontLike, -1)
	case hasAny(norm, watchedPhrases):
		return reject(state.ReasonWatched, 0)
	case hasAny(norm, acceptPhrases):
		return []types.DialogueAct{types.MustUserAct(types.IntentAccept, focus...).WithPreference(1)}
	}
	if slots := r.inquired(norm); len(slots) > 0 {
		cs := make([]types.Constraint, len(slots))
		for i, slot := range slots {
			cs[i] = types.MustConstraint(slot, types.OpEQ, types.Literal(""))
		}
		return act(types.IntentInquire, cs...)
	}
	if acts := r.voluntary(utterance, norm); acts != nil {
		return acts
	}
	if hasAny(norm, phrasesFor(types.IntentDeny)) {
		return act(types.IntentDeny)
	}
	return act(types.IntentInquire)
}

// inquired lists the user-requestable slots whose keywords occur in norm.
func (r *LocalResolver) inquired(norm string) []types.Slot {
	var out []types.Slot
	for _, slot := range r.ont.UserRequestable() {
		info, _ := r.ont.Info(slot)
		if hasAny(norm, info.Keywords) {
			out = append(out, slot)
		}
	}
	return out
}

// voluntary scans every annotated slot. It returns nil when nothing is found.
func (r *LocalResolver) voluntary(utterance, norm string) []types.DialogueAct {
	cs := r.filterConstraints(norm, r.annotator.AnnotateAll(utterance))
	remove := hasAny(norm, removePhrases)
	if len(cs) == 0 {
		if !remove {
			return nil
		}
		var cleared []types.Constraint
		for _, slot := range r.inquired(norm) {
			if slices.Contains(r.ont.Annotated(), slot) {
				cleared = append(cleared, types.MustConstraint(slot, types.OpEQ, types.Literal("")))
			}
		}
		if len(cleared) == 0 {
			return nil
		}
		return act(types.IntentRemovePreference, cleared...)
	}
	if remove {
		for i := range cs {
			if cs[i].Op == types.OpNE {
				cs[i].Op = types.OpEQ
			}
		}
		return act(types.IntentRemovePreference, cs...)
	}
	return act(types.IntentReveal, cs...)
}
