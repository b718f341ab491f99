package state

import (
	"maps"
	"slices"
	"strings"

	"github.com/iai-group/MovieBot-sub000/types"
)

// Reactions recorded against a recommended title.
const (
	ReasonDontLike = "dont_like"
	ReasonWatched  = "watched"
	ReasonAccept   = "accept"
)

// Flags is the progress snapshot the policy branches on. The tracker
// replaces it as a whole on every update.
type Flags struct {
	ReqFilled        bool `json:"req_filled"`
	CanLookup        bool `json:"can_lookup"`
	MadePartialOffer bool `json:"made_partial_offer"`
	ShouldMakeOffer  bool `json:"should_make_offer"`
	MadeOffer        bool `json:"made_offer"`
	OfferNoResults   bool `json:"offer_no_results"`
	MustClarify      bool `json:"must_clarify"`
	AtTerminal       bool `json:"at_terminal"`
}

// OfferFlags counts how many offer flags are set.
func (f Flags) OfferFlags() int {
	n := 0
	for _, b := range []bool{f.MadePartialOffer, f.ShouldMakeOffer, f.MadeOffer, f.OfferNoResults} {
		if b {
			n++
		}
	}
	return n
}

// DialogueState is the per-conversation record. Only the Tracker mutates it;
// everyone else reads.
type DialogueState struct {
	CIN types.Need `json:"cin"`
	PIN types.Need `json:"pin"`

	LastUserActs     []types.DialogueAct   `json:"last_user_acts,omitempty"`
	LastAgentActs    []types.DialogueAct   `json:"last_agent_acts,omitempty"`
	AgentActsHistory [][]types.DialogueAct `json:"agent_acts_history,omitempty"`

	ItemInFocus *types.Item `json:"item_in_focus,omitempty"`
	// Recommended maps a title to the user's reactions to it.
	Recommended map[string][]string `json:"recommended"`

	Flags      Flags                   `json:"flags"`
	DualParams map[string][]types.Slot `json:"dual_params,omitempty"`

	DatabaseResult  []types.Item `json:"database_result,omitempty"`
	SlotLeftUnasked int          `json:"slot_left_unasked"`
	MaxResults      int          `json:"max_results"`

	OfferSimilar  bool     `json:"offer_similar"`
	SimilarTitles []string `json:"similar_titles,omitempty"`

	scalarHistory map[types.Slot][]types.Value
}

func (s *DialogueState) LastUserIntent() (types.Intent, bool) {
	if len(s.LastUserActs) == 0 {
		return "", false
	}
	return s.LastUserActs[len(s.LastUserActs)-1].Intent, true
}

// LastAgentAct returns the final act of the previous agent turn.
func (s *DialogueState) LastAgentAct() (types.DialogueAct, bool) {
	if len(s.LastAgentActs) == 0 {
		return types.DialogueAct{}, false
	}
	return s.LastAgentActs[len(s.LastAgentActs)-1], true
}

func (s *DialogueState) WasRecommended(title string) bool {
	for t := range s.Recommended {
		if strings.EqualFold(t, title) {
			return true
		}
	}
	return false
}

// UnfilledSlots returns the need slots without any value, in the given order.
func (s *DialogueState) UnfilledSlots(order []types.Slot) []types.Slot {
	var out []types.Slot
	for _, slot := range order {
		if values, ok := s.CIN[slot]; ok && len(values) == 0 {
			out = append(out, slot)
		}
	}
	return out
}

// FirstNotRecommended returns the first item the user has not reacted to.
func (s *DialogueState) FirstNotRecommended(items []types.Item) (types.Item, bool) {
	for _, item := range items {
		if !s.WasRecommended(item.Title()) {
			return item, true
		}
	}
	return types.Item{}, false
}

// Clone returns a deep copy, used to hand snapshots to readers.
func (s *DialogueState) Clone() *DialogueState {
	c := *s
	c.CIN = s.CIN.Clone()
	c.PIN = s.PIN.Clone()
	c.LastUserActs = slices.Clone(s.LastUserActs)
	c.LastAgentActs = slices.Clone(s.LastAgentActs)
	c.AgentActsHistory = slices.Clone(s.AgentActsHistory)
	if s.ItemInFocus != nil {
		item := *s.ItemInFocus
		c.ItemInFocus = &item
	}
	c.Recommended = make(map[string][]string, len(s.Recommended))
	for k, v := range s.Recommended {
		c.Recommended[k] = slices.Clone(v)
	}
	c.DualParams = maps.Clone(s.DualParams)
	c.DatabaseResult = slices.Clone(s.DatabaseResult)
	c.SimilarTitles = slices.Clone(s.SimilarTitles)
	c.scalarHistory = make(map[types.Slot][]types.Value, len(s.scalarHistory))
	for k, v := range s.scalarHistory {
		c.scalarHistory[k] = slices.Clone(v)
	}
	return &c
}
