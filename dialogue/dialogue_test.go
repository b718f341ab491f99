package dialogue

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iai-group/MovieBot-sub000/internal/llmtest"
	"github.com/iai-group/MovieBot-sub000/ontology"
	"github.com/iai-group/MovieBot-sub000/state"
	"github.com/iai-group/MovieBot-sub000/types"
)

func request(t *testing.T, acts ...types.DialogueAct) *Request {
	t.Helper()
	ont, err := ontology.Default()
	require.NoError(t, err)
	st := state.NewTracker(ont).State()
	st.ItemInFocus = &types.Item{
		ID: "tt0117571",
		Attributes: map[types.Slot]string{
			types.SlotTitle:     "Scream",
			types.SlotYear:      "1996",
			types.SlotGenres:    "Horror, Mystery",
			types.SlotRating:    "7.4",
			types.SlotDirectors: "Wes Craven",
		},
	}
	return &Request{Acts: acts, State: st, Ontology: ont}
}

func title(text string) types.Constraint {
	return types.MustConstraint(types.SlotTitle, types.OpEQ, types.Literal(text))
}

func TestLocalRecommend(t *testing.T) {
	g := NewLocalDialogueGenerator(nil)
	reply, err := g.GenerateDialogue(context.Background(), request(t, types.MustAgentAct(types.IntentRecommend, title("Scream"))))
	require.NoError(t, err)
	assert.Equal(t, `How about "Scream"? It is from 1996, a horror and mystery movie, rated 7.4.`, reply.Text)

	require.Len(t, reply.Options, 5)
	accept := reply.Options[0]
	assert.Equal(t, types.IntentAccept, accept.Act.Intent)
	assert.Equal(t, AcceptTexts, accept.Texts)
	watched := reply.Options[2]
	assert.Equal(t, types.IntentReject, watched.Act.Intent)
	reason, ok := watched.Act.First(types.SlotReason)
	require.True(t, ok)
	assert.Equal(t, state.ReasonWatched, reason.Value.Text())
}

func TestLocalElicitWithExamples(t *testing.T) {
	g := NewLocalDialogueGenerator(nil)
	act := types.MustAgentAct(types.IntentElicit,
		types.MustConstraint(types.SlotKeywords, types.OpEQ, types.Literal("")),
		types.MustConstraint(types.SlotKeywords, types.OpIn, types.Literal("haunted house")),
		types.MustConstraint(types.SlotKeywords, types.OpIn, types.Literal("serial killer")),
	)
	reply, err := g.GenerateDialogue(context.Background(), request(t, act))
	require.NoError(t, err)
	assert.Equal(t, "What should the movie be about? For example, haunted house or serial killer.", reply.Text)
	require.Len(t, reply.Options, 3)
	assert.Equal(t, []string{"haunted house"}, reply.Options[0].Texts)
	c := reply.Options[0].Act.Constraints[0]
	assert.Equal(t, types.OpEQ, c.Op)
	assert.Equal(t, "haunted house", c.Value.Text())
	assert.True(t, reply.Options[2].Act.Constraints[0].Value.IsDontCare())
}

func TestLocalTurnTexts(t *testing.T) {
	g := NewLocalDialogueGenerator(nil)
	ctx := context.Background()
	cases := []struct {
		acts []types.DialogueAct
		want string
	}{
		{[]types.DialogueAct{types.MustAgentAct(types.IntentCountResults,
			types.MustConstraint(types.SlotCount, types.OpEQ, types.Literal("42")))},
			"There are 42 movies that match your preferences."},
		{[]types.DialogueAct{types.MustAgentAct(types.IntentInform,
			types.MustConstraint(types.SlotDirectors, types.OpEQ, types.Literal("Wes Craven")),
			types.MustConstraint(types.SlotPlot, types.OpEQ, types.NotFoundValue))},
			`The director of "Scream": Wes Craven. I don't know the plot of "Scream".`},
		{[]types.DialogueAct{types.MustAgentAct(types.IntentContinueRecommendation, title("Scream"))},
			`Great choice! Would you like to see movies similar to "Scream"?`},
		{[]types.DialogueAct{types.MustAgentAct(types.IntentRestart), types.MustAgentAct(types.IntentElicit,
			types.MustConstraint(types.SlotGenres, types.OpEQ, types.Literal("")))},
			"Let's start over. What genre of movie are you in the mood for?"},
	}
	for _, tc := range cases {
		reply, err := g.GenerateDialogue(ctx, request(t, tc.acts...))
		require.NoError(t, err)
		assert.Equal(t, tc.want, reply.Text)
	}
}

func TestContinueOptionsCarryNoConstraints(t *testing.T) {
	opts := BuildOptions([]types.DialogueAct{types.MustAgentAct(types.IntentContinueRecommendation, title("Scream"))}, nil)
	require.Len(t, opts, 2)
	assert.Equal(t, types.IntentContinueRecommendation, opts[0].Act.Intent)
	assert.Empty(t, opts[0].Act.Constraints)
	assert.Equal(t, types.IntentRestart, opts[1].Act.Intent)
}

func TestToolBasedGenerator(t *testing.T) {
	m := llmtest.NewScriptedModel(
		&schema.Message{Role: schema.Assistant, Content: " Scream (1996) could be just right for you! "},
		&schema.Message{Role: schema.Assistant, Content: "Streamed reply"},
	)
	g := NewToolBasedDialogueGenerator(m, WithDialogueLang("German"))
	req := request(t, types.MustAgentAct(types.IntentRecommend, title("Scream")))
	req.LastUserInput = "a 90s horror movie"

	reply, err := g.GenerateDialogue(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Scream (1996) could be just right for you!", reply.Text)
	assert.Len(t, reply.Options, 5)

	msgs := m.Requests()[0]
	assert.Contains(t, msgs[0].Content, "Reply in German.")
	assert.Contains(t, msgs[1].Content, "# User input:\na 90s horror movie")
	assert.Contains(t, msgs[1].Content, `# Draft reply:`)
	assert.Contains(t, msgs[1].Content, "I like this recommendation")

	stream, opts, err := g.GenerateDialogueStream(context.Background(), req)
	require.NoError(t, err)
	defer stream.Close()
	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		sb.WriteString(chunk)
	}
	assert.Equal(t, "Streamed reply", sb.String())
	assert.Len(t, opts, 5)
}

func TestFailbackGenerator(t *testing.T) {
	down := NewToolBasedDialogueGenerator(llmtest.NewFailingModel(errors.New("offline")))
	g := NewFailbackDialogueGenerator(down, NewLocalDialogueGenerator(nil))
	reply, err := g.GenerateDialogue(context.Background(), request(t, types.MustAgentAct(types.IntentBye)))
	require.NoError(t, err)
	assert.Equal(t, "Goodbye. Enjoy your movie!", reply.Text)

	_, err = NewFailbackDialogueGenerator(down).GenerateDialogue(context.Background(), request(t))
	assert.ErrorContains(t, err, "all dialogue generators failed")

	_, _, err = NewFailbackDialogueGenerator(down).GenerateDialogueStream(context.Background(), request(t))
	assert.ErrorContains(t, err, "offline")
}
