package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iai-group/MovieBot-sub000/types"
)

func run(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	t.Setenv("MOVIEBOT_ANNOTATOR_RECENCY_THRESHOLD", "2016")
	t.Setenv("MOVIEBOT_LLM_API_KEY", "")
	t.Setenv("MOVIEBOT_LOGGER_LEVEL", "error")
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestAnnotateCommand(t *testing.T) {
	out := run(t, "", "annotate", "a", "horror", "movie")
	assert.Contains(t, out, "REVEAL")
	assert.Contains(t, out, "genres")
	assert.Contains(t, out, "Horror")
}

func TestChatCommand(t *testing.T) {
	out := run(t, "I want a horror movie from the 90s\nbye\n", "chat")
	assert.Contains(t, out, "Interview with the Vampire")
	assert.Contains(t, out, "Goodbye. Enjoy your movie!")
}

func TestChatCommandStreams(t *testing.T) {
	out := run(t, "I want a horror movie from the 90s\n", "chat", "--stream")
	assert.Contains(t, out, "Interview with the Vampire")
}

func TestPickOption(t *testing.T) {
	options := types.DialogueOptions{
		{Act: types.MustUserAct(types.IntentAccept), Texts: []string{"I like this recommendation."}},
		{Act: types.MustUserAct(types.IntentReject)},
	}
	assert.Equal(t, "I like this recommendation.", pickOption("1", options))
	assert.Equal(t, "2", pickOption("2", options))
	assert.Equal(t, "3", pickOption("3", options))
	assert.Equal(t, "hello", pickOption("hello", options))
}
