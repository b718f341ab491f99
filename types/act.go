package types

import (
	"fmt"
	"strings"
)

type Intent string

const (
	IntentReveal           Intent = "REVEAL"
	IntentInquire          Intent = "INQUIRE"
	IntentRemovePreference Intent = "REMOVE_PREFERENCE"
	IntentReject           Intent = "REJECT"
	IntentAccept           Intent = "ACCEPT"
	IntentAcknowledge      Intent = "ACKNOWLEDGE"
	IntentHi               Intent = "HI"
	IntentDeny             Intent = "DENY"

	IntentElicit       Intent = "ELICIT"
	IntentRecommend    Intent = "RECOMMEND"
	IntentNoResults    Intent = "NO_RESULTS"
	IntentCountResults Intent = "COUNT_RESULTS"
	IntentInform       Intent = "INFORM"
	IntentWelcome      Intent = "WELCOME"
	IntentCantHelp     Intent = "CANT_HELP"

	// Shared by both participants.
	IntentContinueRecommendation Intent = "CONTINUE_RECOMMENDATION"
	IntentRestart                Intent = "RESTART"
	IntentBye                    Intent = "BYE"
	IntentUnk                    Intent = "UNK"
)

var userIntents = map[Intent]bool{
	IntentReveal: true, IntentInquire: true, IntentRemovePreference: true,
	IntentReject: true, IntentAccept: true, IntentContinueRecommendation: true,
	IntentRestart: true, IntentBye: true, IntentAcknowledge: true,
	IntentHi: true, IntentDeny: true, IntentUnk: true,
}

var agentIntents = map[Intent]bool{
	IntentElicit: true, IntentRecommend: true, IntentNoResults: true,
	IntentCountResults: true, IntentInform: true, IntentContinueRecommendation: true,
	IntentWelcome: true, IntentRestart: true, IntentCantHelp: true,
	IntentBye: true, IntentUnk: true,
}

func (i Intent) IsUser() bool  { return userIntents[i] }
func (i Intent) IsAgent() bool { return agentIntents[i] }

// DialogueAct is one semantic unit of a turn. Preference is only meaningful
// on REJECT and ACCEPT and lies in [-1, 1].
type DialogueAct struct {
	Intent      Intent       `json:"intent"`
	Constraints []Constraint `json:"constraints,omitempty"`
	Preference  float64      `json:"preference,omitempty"`
}

func newAct(valid func(Intent) bool, who string, intent Intent, constraints []Constraint) (DialogueAct, error) {
	if !valid(intent) {
		return DialogueAct{}, fmt.Errorf("%w: %q is not a %s intent", ErrUnknownIntent, intent, who)
	}
	for i, c := range constraints {
		if err := c.Validate(); err != nil {
			return DialogueAct{}, fmt.Errorf("constraint %d of %s: %w", i, intent, err)
		}
	}
	return DialogueAct{Intent: intent, Constraints: constraints}, nil
}

func NewUserAct(intent Intent, constraints ...Constraint) (DialogueAct, error) {
	return newAct(Intent.IsUser, "user", intent, constraints)
}

func NewAgentAct(intent Intent, constraints ...Constraint) (DialogueAct, error) {
	return newAct(Intent.IsAgent, "agent", intent, constraints)
}

func MustUserAct(intent Intent, constraints ...Constraint) DialogueAct {
	act, err := NewUserAct(intent, constraints...)
	if err != nil {
		panic(err)
	}
	return act
}

func MustAgentAct(intent Intent, constraints ...Constraint) DialogueAct {
	act, err := NewAgentAct(intent, constraints...)
	if err != nil {
		panic(err)
	}
	return act
}

func (a DialogueAct) WithPreference(p float64) DialogueAct {
	a.Preference = max(-1, min(1, p))
	return a
}

func (a DialogueAct) Equal(other DialogueAct) bool {
	if a.Intent != other.Intent || a.Preference != other.Preference || len(a.Constraints) != len(other.Constraints) {
		return false
	}
	for i := range a.Constraints {
		if !a.Constraints[i].Equal(other.Constraints[i]) {
			return false
		}
	}
	return true
}

// First returns the first constraint on slot, if any.
func (a DialogueAct) First(slot Slot) (Constraint, bool) {
	for _, c := range a.Constraints {
		if c.Slot == slot {
			return c, true
		}
	}
	return Constraint{}, false
}

func (a DialogueAct) String() string {
	parts := make([]string, len(a.Constraints))
	for i, c := range a.Constraints {
		parts[i] = c.String()
	}
	return fmt.Sprintf("%s(%s)", a.Intent, strings.Join(parts, ", "))
}

// HasIntent reports whether any act carries intent.
func HasIntent(acts []DialogueAct, intent Intent) bool {
	for _, a := range acts {
		if a.Intent == intent {
			return true
		}
	}
	return false
}

// DialogueOption is a reply the NLG offers to the user, with the act it
// stands for.
type DialogueOption struct {
	Act   DialogueAct `json:"act"`
	Texts []string    `json:"texts"`
}

type DialogueOptions []DialogueOption
