package nlu

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iai-group/MovieBot-sub000/annotate"
	"github.com/iai-group/MovieBot-sub000/catalog"
	"github.com/iai-group/MovieBot-sub000/internal/llmtest"
	"github.com/iai-group/MovieBot-sub000/ontology"
	"github.com/iai-group/MovieBot-sub000/state"
	"github.com/iai-group/MovieBot-sub000/types"
)

func testOntology(t *testing.T) *ontology.Ontology {
	t.Helper()
	ont, err := ontology.Default()
	require.NoError(t, err)
	return ont
}

func sampleResolver(t *testing.T) (*LocalResolver, *state.Tracker) {
	t.Helper()
	ont := testOntology(t)
	items, err := catalog.SampleItems()
	require.NoError(t, err)
	dict, err := annotate.BuildDictionary(context.Background(), catalog.NewMemoryStore(items), ont.Annotated())
	require.NoError(t, err)
	return NewLocalResolver(ont, annotate.New(ont, dict, annotate.WithRecencyThreshold(2016))), state.NewTracker(ont)
}

func dictResolver(t *testing.T, values map[types.Slot][]string) *LocalResolver {
	t.Helper()
	ont := testOntology(t)
	return NewLocalResolver(ont, annotate.New(ont, annotate.NewDictionary(values)))
}

func render(acts []types.DialogueAct) []string {
	var out []string
	for _, a := range acts {
		if len(a.Constraints) == 0 {
			out = append(out, string(a.Intent))
		}
		for _, c := range a.Constraints {
			out = append(out, string(a.Intent)+" "+string(c.Slot)+" "+string(c.Op)+" "+c.Value.String())
		}
	}
	return out
}

func resolve(t *testing.T, r Resolver, utterance string, st *state.DialogueState, options ...types.DialogueOption) []string {
	t.Helper()
	acts, err := r.GenerateDact(context.Background(), utterance, options, st)
	require.NoError(t, err)
	return render(acts)
}

func TestFirstTurn(t *testing.T) {
	r, tr := sampleResolver(t)
	st := tr.State()
	assert.Equal(t, []string{
		"REVEAL genres EQ Horror",
		"REVEAL year BETWEEN 1990 AND 2000",
	}, resolve(t, r, "I want a horror movie from the 90s", st))
	assert.Equal(t, []string{"HI"}, resolve(t, r, "Hello!", st))
	assert.Equal(t, []string{"HI"}, resolve(t, r, "hello there bot", st))
	assert.Equal(t, []string{"BYE"}, resolve(t, r, "bye", st))
	assert.Equal(t, []string{"UNK"}, resolve(t, r, "blorp", st))
}

func TestAfterWelcome(t *testing.T) {
	r, tr := sampleResolver(t)
	tr.UpdateStateAgent([]types.DialogueAct{types.MustAgentAct(types.IntentWelcome)})
	assert.Equal(t, []string{"ACKNOWLEDGE"}, resolve(t, r, "hmm let me think", tr.State()))
	assert.Equal(t, []string{"REVEAL genres EQ Western"}, resolve(t, r, "westerns", tr.State()))
}

func TestVerbatimOption(t *testing.T) {
	r, tr := sampleResolver(t)
	st := tr.State()
	st.ItemInFocus = &types.Item{
		ID:         "tt0117571",
		Attributes: map[types.Slot]string{types.SlotTitle: "Scream"},
		Similar:    []string{"Halloween", "It Follows"},
	}
	opt := types.DialogueOption{
		Act:   types.MustUserAct(types.IntentContinueRecommendation),
		Texts: []string{"Show me similar movies"},
	}
	assert.Equal(t, []string{
		"CONTINUE_RECOMMENDATION title EQ Scream",
		"CONTINUE_RECOMMENDATION title IN Halloween",
		"CONTINUE_RECOMMENDATION title IN It Follows",
	}, resolve(t, r, "show me similar movies!", st, opt))
}

func TestPersonTriggers(t *testing.T) {
	r, tr := sampleResolver(t)
	st := tr.State()
	assert.Equal(t, []string{"REVEAL directors EQ Clint Eastwood"},
		resolve(t, r, "something directed by clint eastwood", st))
	assert.Equal(t, []string{"REVEAL actors EQ Clint Eastwood"},
		resolve(t, r, "a movie starring clint eastwood", st))
	assert.ElementsMatch(t, []string{"REVEAL directors EQ Clint Eastwood", "REVEAL actors EQ Clint Eastwood"},
		resolve(t, r, "clint eastwood", st))
}

func TestNegation(t *testing.T) {
	r, tr := sampleResolver(t)
	assert.Equal(t, []string{
		"REVEAL genres EQ Comedy",
		"REVEAL genres NE Horror",
	}, resolve(t, r, "I like comedy but not horror", tr.State()))
	assert.Equal(t, []string{"REVEAL genres NE Horror"}, resolve(t, r, "I don't want horror", tr.State()))
}

func TestNegationCoversEveryListedValue(t *testing.T) {
	r := dictResolver(t, map[types.Slot][]string{types.SlotGenres: {"Horror", "Comedy"}})
	st := state.NewTracker(testOntology(t)).State()
	want := []string{"REVEAL genres NE Horror", "REVEAL genres NE Comedy"}
	assert.ElementsMatch(t, want, resolve(t, r, "i dont want horror or comedy", st))
	assert.ElementsMatch(t, want, resolve(t, r, "no horror and comedy please", st))

	tr := state.NewTracker(testOntology(t))
	tr.UpdateStateAgent([]types.DialogueAct{types.MustAgentAct(types.IntentElicit,
		types.MustConstraint(types.SlotGenres, types.OpEQ, types.Literal("")))})
	assert.ElementsMatch(t, want, resolve(t, r, "i dont want horror or comedy", tr.State()))

	tr.UpdateStateAgent([]types.DialogueAct{types.MustAgentAct(types.IntentElicit,
		types.MustConstraint(types.SlotYear, types.OpEQ, types.Literal("")))})
	assert.Equal(t, []string{"REVEAL year NOT 1990 AND 2000"}, resolve(t, r, "not from the 90s or 2000s", tr.State()))
}

func TestRemovePreference(t *testing.T) {
	r, tr := sampleResolver(t)
	assert.Equal(t, []string{"REMOVE_PREFERENCE genres EQ Horror"}, resolve(t, r, "forget about horror", tr.State()))
	assert.Equal(t, []string{"REMOVE_PREFERENCE genres EQ "}, resolve(t, r, "forget the genre", tr.State()))
}

func TestAnswerElicit(t *testing.T) {
	r, tr := sampleResolver(t)
	tr.UpdateStateAgent([]types.DialogueAct{types.MustAgentAct(types.IntentElicit,
		types.MustConstraint(types.SlotGenres, types.OpEQ, types.Literal("")))})
	st := tr.State()
	assert.Equal(t, []string{"REVEAL genres EQ Thriller"}, resolve(t, r, "a thriller please", st))
	assert.Equal(t, []string{"REVEAL genres EQ <dontcare>"}, resolve(t, r, "I don't care", st))
	assert.Equal(t, []string{"REVEAL genres EQ <notfound>"}, resolve(t, r, "blah", st))
	assert.Equal(t, []string{"REVEAL year BETWEEN 1990 AND 2000"}, resolve(t, r, "something from the nineties", st))
}

func TestAfterOffer(t *testing.T) {
	r, tr := sampleResolver(t)
	scream := types.Item{ID: "tt0117571", Attributes: map[types.Slot]string{types.SlotTitle: "Scream"}}
	tr.UpdateStateUser([]types.DialogueAct{types.MustUserAct(types.IntentReveal,
		types.MustConstraint(types.SlotGenres, types.OpEQ, types.Literal("Horror")),
		types.MustConstraint(types.SlotYear, types.OpEQ, types.Literal("1996")))})
	tr.UpdateStateDB([]types.Item{scream}, nil)
	tr.UpdateStateAgent([]types.DialogueAct{types.MustAgentAct(types.IntentRecommend,
		types.MustConstraint(types.SlotTitle, types.OpEQ, types.Literal("Scream")))})
	st := tr.State()
	require.True(t, st.Flags.MadeOffer)

	acts, err := r.GenerateDact(context.Background(), "I have already seen it", nil, st)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, types.IntentReject, acts[0].Intent)
	assert.Equal(t, 0.0, acts[0].Preference)
	assert.Equal(t, []string{"REJECT title EQ Scream", "REJECT reason EQ watched"}, render(acts))

	acts, err = r.GenerateDact(context.Background(), "I don't like it", nil, st)
	require.NoError(t, err)
	assert.Equal(t, -1.0, acts[0].Preference)

	assert.Equal(t, []string{"ACCEPT title EQ Scream"}, resolve(t, r, "yes", st))
	assert.Equal(t, []string{"INQUIRE directors EQ "}, resolve(t, r, "who directed it?", st))
	assert.Equal(t, []string{"INQUIRE"}, resolve(t, r, "hmm", st))
}

func TestTitleReclassifiedAsGenre(t *testing.T) {
	r := dictResolver(t, map[types.Slot][]string{
		types.SlotTitle:  {"Horror"},
		types.SlotGenres: {"Horror"},
	})
	st := state.NewTracker(testOntology(t)).State()
	assert.Equal(t, []string{"REVEAL genres EQ Horror"}, resolve(t, r, "horror", st))
}

func TestGenreSplit(t *testing.T) {
	r := dictResolver(t, map[types.Slot][]string{
		types.SlotGenres: {"Action", "Comedy", "Action Comedy", "Science Fiction"},
	})
	st := state.NewTracker(testOntology(t)).State()
	assert.Equal(t, []string{"REVEAL genres EQ Action", "REVEAL genres EQ Comedy"},
		resolve(t, r, "an action comedy", st))
	assert.Equal(t, []string{"REVEAL genres EQ Science Fiction"}, resolve(t, r, "science fiction", st))
}

func TestBasicPhraseValuesDropped(t *testing.T) {
	r := dictResolver(t, map[types.Slot][]string{
		types.SlotKeywords: {"hello", "vampire"},
	})
	st := state.NewTracker(testOntology(t)).State()
	assert.Equal(t, []string{"REVEAL keywords EQ vampire"}, resolve(t, r, "hello vampire", st))
}

func TestToolBasedResolver(t *testing.T) {
	ont := testOntology(t)
	m := llmtest.NewScriptedModel(
		llmtest.ToolCall(parseActsToolName, `{"acts":[{"intent":"REVEAL","constraints":[{"slot":"genres","operator":"NE","value":"Comedy"},{"slot":"year","operator":"EQ","value":"<dontcare>"}]}]}`),
		llmtest.ToolCall(parseActsToolName, `{"acts":[{"intent":"REVEAL","constraints":[{"slot":"budget","operator":"EQ","value":"1"}]}]}`),
		llmtest.ToolCall(parseActsToolName, `{"acts":[]}`),
	)
	r, err := NewToolBasedResolver(m, ont)
	require.NoError(t, err)
	st := state.NewTracker(ont).State()

	assert.Equal(t, []string{"REVEAL genres NE Comedy", "REVEAL year EQ <dontcare>"},
		resolve(t, r, "no comedies, any year", st))

	_, err = r.GenerateDact(context.Background(), "cheap ones", nil, st)
	assert.ErrorIs(t, err, types.ErrUnknownSlot)

	_, err = r.GenerateDact(context.Background(), "???", nil, st)
	assert.Error(t, err)

	require.Len(t, m.Requests(), 3)
	assert.Contains(t, m.Requests()[0][1].Content, "no comedies, any year")
}

func TestFailbackResolver(t *testing.T) {
	local, tr := sampleResolver(t)
	st := tr.State()
	m := llmtest.NewScriptedModel(
		llmtest.ToolCall(parseActsToolName, `{"acts":[{"intent":"REVEAL","constraints":[{"slot":"genres","operator":"EQ","value":"Horror"}]}]}`),
	)
	remote, err := NewToolBasedResolver(m, testOntology(t))
	require.NoError(t, err)
	r := NewFailbackResolver(nil, local, remote)

	assert.Equal(t, []string{"REVEAL genres EQ Western"}, resolve(t, r, "westerns", st))
	assert.Len(t, m.Requests(), 0)

	assert.Equal(t, []string{"REVEAL genres EQ Horror"}, resolve(t, r, "spooky stuff", st))

	down, err := NewToolBasedResolver(llmtest.NewFailingModel(errors.New("offline")), testOntology(t))
	require.NoError(t, err)
	r = NewFailbackResolver(nil, local, down)
	assert.Equal(t, []string{"UNK"}, resolve(t, r, "blorp", st))

	r = NewFailbackResolver(nil, down)
	_, err = r.GenerateDact(context.Background(), "blorp", nil, st)
	assert.ErrorContains(t, err, "offline")
}
