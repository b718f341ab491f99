package state

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iai-group/MovieBot-sub000/ontology"
	"github.com/iai-group/MovieBot-sub000/types"
)

func newTracker(t *testing.T, opts ...Option) *Tracker {
	t.Helper()
	ont, err := ontology.Default()
	require.NoError(t, err)
	return NewTracker(ont, opts...)
}

func reveal(cs ...types.Constraint) []types.DialogueAct {
	return []types.DialogueAct{types.MustUserAct(types.IntentReveal, cs...)}
}

func eq(slot types.Slot, text string) types.Constraint {
	return types.MustConstraint(slot, types.OpEQ, types.Literal(text))
}

func items(n int) []types.Item {
	out := make([]types.Item, n)
	for i := range out {
		out[i] = types.Item{
			ID:         fmt.Sprintf("tt%d", i),
			Attributes: map[types.Slot]string{types.SlotTitle: fmt.Sprintf("Movie %d", i)},
		}
	}
	return out
}

func TestInitialize(t *testing.T) {
	tr := newTracker(t)
	st := tr.State()
	for _, slot := range []types.Slot{types.SlotTitle, types.SlotGenres, types.SlotYear} {
		values, ok := st.CIN[slot]
		assert.True(t, ok, slot)
		assert.Empty(t, values, slot)
	}
	assert.Equal(t, Flags{}, st.Flags)
	assert.Empty(t, st.Recommended)
}

func TestRevealFillsRequirements(t *testing.T) {
	tr := newTracker(t)
	tr.UpdateStateUser(reveal(eq(types.SlotGenres, "Horror")))
	assert.False(t, tr.State().Flags.ReqFilled)

	tr.UpdateStateUser(reveal(
		types.MustConstraint(types.SlotYear, types.OpBetween, types.Literal("1990 AND 2000")),
		eq(types.SlotGenres, "Thriller"),
	))
	st := tr.State()
	assert.True(t, st.Flags.ReqFilled)
	assert.True(t, st.Flags.CanLookup)
	assert.Equal(t, []string{"Horror", "Thriller"}, st.CIN.Strings()["genres"])
	assert.Equal(t, []string{"BETWEEN 1990 AND 2000"}, st.CIN.Strings()["year"])
	assert.Equal(t, []string{"Horror"}, st.PIN.Strings()["genres"])
}

func TestMultiValuedSlotsStayLists(t *testing.T) {
	tr := newTracker(t)
	tr.UpdateStateUser(reveal(eq(types.SlotActors, "Tom Hanks")))
	tr.UpdateStateUser(reveal(eq(types.SlotActors, "tom hanks"), eq(types.SlotActors, "Meg Ryan")))
	assert.Len(t, tr.State().CIN[types.SlotActors], 2)

	for _, slot := range []types.Slot{types.SlotGenres, types.SlotKeywords, types.SlotActors, types.SlotDirectors} {
		assert.NotNil(t, tr.State().CIN[slot], slot)
	}
}

func TestNegationReplacesOpposite(t *testing.T) {
	tr := newTracker(t)
	tr.UpdateStateUser(reveal(types.MustConstraint(types.SlotGenres, types.OpNE, types.Literal("Comedy"))))
	assert.Equal(t, []string{".NOT.Comedy"}, tr.State().CIN.Strings()["genres"])

	tr.UpdateStateUser(reveal(eq(types.SlotGenres, "comedy")))
	assert.Equal(t, []string{"comedy"}, tr.State().CIN.Strings()["genres"])
}

func TestRevealThenRemoveRestores(t *testing.T) {
	tr := newTracker(t)
	tr.UpdateStateUser(reveal(types.MustConstraint(types.SlotYear, types.OpBetween, types.Literal("1990 AND 2000"))))
	tr.UpdateStateUser(reveal(eq(types.SlotYear, "1995")))
	assert.Equal(t, []string{"1995"}, tr.State().CIN.Strings()["year"])

	tr.UpdateStateUser([]types.DialogueAct{types.MustUserAct(types.IntentRemovePreference, eq(types.SlotYear, "1995"))})
	assert.Equal(t, []string{"BETWEEN 1990 AND 2000"}, tr.State().CIN.Strings()["year"])

	tr.UpdateStateUser([]types.DialogueAct{types.MustUserAct(types.IntentRemovePreference,
		types.MustConstraint(types.SlotYear, types.OpBetween, types.Literal("1990 AND 2000")))})
	assert.Empty(t, tr.State().CIN[types.SlotYear])

	tr.UpdateStateUser(reveal(eq(types.SlotGenres, "Horror"), eq(types.SlotGenres, "Comedy")))
	before := tr.State().CIN.Clone()
	tr.UpdateStateUser(reveal(eq(types.SlotGenres, "Drama")))
	tr.UpdateStateUser([]types.DialogueAct{types.MustUserAct(types.IntentRemovePreference, eq(types.SlotGenres, "Drama"))})
	assert.True(t, before.Equal(tr.State().CIN))
}

func TestRemoveWholeSlot(t *testing.T) {
	tr := newTracker(t)
	tr.UpdateStateUser(reveal(eq(types.SlotGenres, "Horror"), eq(types.SlotGenres, "Comedy")))
	tr.UpdateStateUser([]types.DialogueAct{types.MustUserAct(types.IntentRemovePreference,
		types.MustConstraint(types.SlotGenres, types.OpEQ, types.Literal("")))})
	assert.Empty(t, tr.State().CIN[types.SlotGenres])
}

func TestReqFilledIdempotent(t *testing.T) {
	tr := newTracker(t)
	tr.UpdateStateUser(reveal(eq(types.SlotGenres, "Horror"), eq(types.SlotYear, "1995")))
	cin := tr.State().CIN
	req := tr.ont.SystemRequestable()
	first := ReqFilled(cin, req)
	assert.True(t, first)
	assert.Equal(t, first, ReqFilled(cin, req))

	flags := tr.State().Flags
	tr.UpdateStateUser([]types.DialogueAct{types.MustUserAct(types.IntentAcknowledge)})
	assert.Equal(t, flags.ReqFilled, tr.State().Flags.ReqFilled)
	assert.Equal(t, flags.CanLookup, tr.State().Flags.CanLookup)
}

func TestSentinelsAndLookup(t *testing.T) {
	tr := newTracker(t)
	tr.UpdateStateUser(reveal(
		eq(types.SlotGenres, "Horror"),
		types.MustConstraint(types.SlotYear, types.OpEQ, types.NotFoundValue),
	))
	assert.False(t, tr.State().Flags.ReqFilled)
	assert.False(t, tr.State().Flags.CanLookup)

	tr.UpdateStateUser(reveal(types.MustConstraint(types.SlotYear, types.OpEQ, types.DontCareValue)))
	assert.True(t, tr.State().Flags.ReqFilled)
	assert.True(t, tr.State().Flags.CanLookup)
}

func TestNotFoundOnNarrowingSlotHoldsLookup(t *testing.T) {
	tr := newTracker(t)
	tr.UpdateStateUser(reveal(
		eq(types.SlotGenres, "Horror"),
		types.MustConstraint(types.SlotYear, types.OpBetween, types.Literal("1990 AND 2000")),
		types.MustConstraint(types.SlotActors, types.OpEQ, types.NotFoundValue),
	))
	assert.True(t, tr.State().Flags.ReqFilled)
	assert.False(t, tr.State().Flags.CanLookup)

	tr.UpdateStateUser(reveal(eq(types.SlotActors, "Tom Cruise")))
	assert.True(t, tr.State().Flags.CanLookup)
	assert.Equal(t, []string{"Tom Cruise"}, tr.State().CIN.Strings()["actors"])
}

func TestLookupFlags(t *testing.T) {
	tr := newTracker(t, WithMaxResults(3))
	tr.UpdateStateUser(reveal(eq(types.SlotGenres, "Horror"), eq(types.SlotYear, "1995")))

	tr.UpdateStateDB(items(10), nil)
	st := tr.State()
	assert.True(t, st.Flags.MadePartialOffer)
	assert.Equal(t, 1, st.Flags.OfferFlags())
	assert.Nil(t, st.ItemInFocus)

	tr.UpdateStateDB(items(2), nil)
	assert.True(t, st.Flags.ShouldMakeOffer)
	require.NotNil(t, st.ItemInFocus)
	assert.Equal(t, "Movie 0", st.ItemInFocus.Title())
	assert.Equal(t, 1, st.Flags.OfferFlags())

	tr.UpdateStateAgent([]types.DialogueAct{types.MustAgentAct(types.IntentRecommend, eq(types.SlotTitle, "Movie 0"))})
	assert.True(t, st.Flags.MadeOffer)
	assert.Equal(t, 1, st.Flags.OfferFlags())
	assert.True(t, st.WasRecommended("movie 0"))

	tr.UpdateStateUser([]types.DialogueAct{types.MustUserAct(types.IntentReject).WithPreference(-1)})
	assert.Equal(t, []string{ReasonDontLike}, st.Recommended["Movie 0"])
	assert.False(t, st.Flags.MadeOffer)

	tr.UpdateStateDB(items(2), nil)
	assert.Equal(t, "Movie 1", st.ItemInFocus.Title())
	tr.UpdateStateAgent([]types.DialogueAct{types.MustAgentAct(types.IntentRecommend, eq(types.SlotTitle, "Movie 1"))})
	tr.UpdateStateUser([]types.DialogueAct{types.MustUserAct(types.IntentReject)})
	assert.Equal(t, []string{ReasonWatched}, st.Recommended["Movie 1"])

	tr.UpdateStateDB(items(2), nil)
	assert.True(t, st.Flags.OfferNoResults)
	assert.Equal(t, 1, st.Flags.OfferFlags())
}

func TestOfferSimilarFallsBackToBackup(t *testing.T) {
	tr := newTracker(t)
	tr.UpdateStateUser(reveal(eq(types.SlotGenres, "Horror"), eq(types.SlotYear, "1995")))
	tr.UpdateStateUser([]types.DialogueAct{types.MustUserAct(types.IntentContinueRecommendation,
		eq(types.SlotTitle, "Scream"),
		types.MustConstraint(types.SlotTitle, types.OpIn, types.Literal("Halloween")),
	)})
	st := tr.State()
	assert.True(t, st.OfferSimilar)
	assert.Equal(t, []string{"Halloween"}, st.SimilarTitles)

	tr.UpdateStateDB(nil, items(1))
	assert.True(t, st.Flags.ShouldMakeOffer)
	assert.Equal(t, "Movie 0", st.ItemInFocus.Title())
}

func TestDualParams(t *testing.T) {
	tr := newTracker(t)
	tr.UpdateStateUser(reveal(eq(types.SlotActors, "Clint Eastwood"), eq(types.SlotDirectors, "Clint Eastwood")))
	st := tr.State()
	assert.True(t, st.Flags.MustClarify)
	assert.Equal(t, []types.Slot{types.SlotDirectors, types.SlotActors}, st.DualParams["clint eastwood"])
}

func TestRestartMatchesFreshState(t *testing.T) {
	tr := newTracker(t)
	tr.UpdateStateUser(reveal(eq(types.SlotGenres, "Horror"), eq(types.SlotYear, "1995")))
	tr.UpdateStateDB(items(2), nil)
	tr.UpdateStateAgent([]types.DialogueAct{types.MustAgentAct(types.IntentRecommend, eq(types.SlotTitle, "Movie 0"))})

	tr.UpdateStateUser([]types.DialogueAct{types.MustUserAct(types.IntentRestart)})
	got := tr.State()
	fresh := newTracker(t).State()
	assert.Equal(t, fresh.CIN, got.CIN)
	assert.Equal(t, fresh.Flags, got.Flags)
	assert.Equal(t, fresh.Recommended, got.Recommended)
	assert.Nil(t, got.ItemInFocus)
	assert.Empty(t, got.DatabaseResult)
	assert.Empty(t, got.LastAgentActs)
	intent, ok := got.LastUserIntent()
	require.True(t, ok)
	assert.Equal(t, types.IntentRestart, intent)
}

func TestMergeActs(t *testing.T) {
	merged := mergeActs([]types.DialogueAct{
		types.MustUserAct(types.IntentReveal, eq(types.SlotGenres, "Horror")),
		types.MustUserAct(types.IntentInquire),
		types.MustUserAct(types.IntentReveal, eq(types.SlotGenres, "Comedy")),
	})
	require.Len(t, merged, 2)
	assert.Equal(t, types.IntentReveal, merged[0].Intent)
	assert.Len(t, merged[0].Constraints, 2)
}

func TestCloneIsDeep(t *testing.T) {
	tr := newTracker(t)
	tr.UpdateStateUser(reveal(eq(types.SlotGenres, "Horror")))
	snap := tr.State().Clone()
	tr.UpdateStateUser(reveal(eq(types.SlotGenres, "Comedy")))
	assert.Len(t, snap.CIN[types.SlotGenres], 1)
}
