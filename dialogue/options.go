package dialogue

import (
	"github.com/iai-group/MovieBot-sub000/state"
	"github.com/iai-group/MovieBot-sub000/types"
)

// Option texts double as the phrases the resolver matches verbatim.
var (
	AcceptTexts   = []string{"I like this recommendation", "I will watch it"}
	DontLikeTexts = []string{"I don't like this recommendation", "Recommend something else"}
	WatchedTexts  = []string{"I have already watched it"}
	MoreInfoTexts = []string{"Tell me more about it"}
	SimilarTexts  = []string{"Yes, show me similar movies", "yes", "yes please", "sure"}
	RestartTexts  = []string{"Start over", "restart"}
	DontCareTexts = []string{"I don't care", "Anything is fine"}
)

func option(act types.DialogueAct, texts ...string) types.DialogueOption {
	return types.DialogueOption{Act: act, Texts: texts}
}

// BuildOptions derives the replies offered after acts.
func BuildOptions(acts []types.DialogueAct, st *state.DialogueState) types.DialogueOptions {
	var opts types.DialogueOptions
	for _, a := range acts {
		switch a.Intent {
		case types.IntentElicit:
			opts = append(opts, elicitOptions(a)...)
		case types.IntentRecommend:
			opts = append(opts, recommendOptions(a)...)
		case types.IntentContinueRecommendation:
			opts = append(opts,
				option(types.MustUserAct(types.IntentContinueRecommendation), SimilarTexts...),
				option(types.MustUserAct(types.IntentRestart), RestartTexts...),
			)
		case types.IntentNoResults, types.IntentCantHelp:
			opts = append(opts, option(types.MustUserAct(types.IntentRestart), RestartTexts...))
		}
	}
	return opts
}

func elicitOptions(a types.DialogueAct) types.DialogueOptions {
	if len(a.Constraints) == 0 {
		return nil
	}
	slot := a.Constraints[0].Slot
	var opts types.DialogueOptions
	for _, c := range a.Constraints[1:] {
		if c.Op != types.OpIn || c.Value.IsEmpty() {
			continue
		}
		reveal := types.MustUserAct(types.IntentReveal, types.MustConstraint(slot, types.OpEQ, c.Value))
		opts = append(opts, option(reveal, c.Value.Text()))
	}
	dontCare := types.MustUserAct(types.IntentReveal, types.MustConstraint(slot, types.OpEQ, types.DontCareValue))
	return append(opts, option(dontCare, DontCareTexts...))
}

func recommendOptions(a types.DialogueAct) types.DialogueOptions {
	var focus []types.Constraint
	if c, ok := a.First(types.SlotTitle); ok {
		focus = append(focus, c)
	}
	reject := func(reason string, preference float64, texts []string) types.DialogueOption {
		cs := append(append([]types.Constraint{}, focus...), types.MustConstraint(types.SlotReason, types.OpEQ, types.Literal(reason)))
		return option(types.MustUserAct(types.IntentReject, cs...).WithPreference(preference), texts...)
	}
	return types.DialogueOptions{
		option(types.MustUserAct(types.IntentAccept, focus...).WithPreference(1), AcceptTexts...),
		reject(state.ReasonDontLike, -1, DontLikeTexts),
		reject(state.ReasonWatched, 0, WatchedTexts),
		option(types.MustUserAct(types.IntentInquire, types.MustConstraint(types.SlotPlot, types.OpEQ, types.Literal(""))), MoreInfoTexts...),
		option(types.MustUserAct(types.IntentRestart), RestartTexts...),
	}
}
