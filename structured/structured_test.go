package structured

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iai-group/MovieBot-sub000/internal/llmtest"
)

type verdict struct {
	Intent string `json:"intent" jsonschema:"required,enum=yes,enum=no"`
}

func prompt(_ context.Context, input string) ([]*schema.Message, error) {
	return []*schema.Message{schema.SystemMessage("classify"), schema.UserMessage(input)}, nil
}

func TestChainInvoke(t *testing.T) {
	m := llmtest.NewScriptedModel(llmtest.ToolCall("judge", `{"intent":"yes"}`))
	chain, err := NewChain[string, verdict](m, prompt, "judge", "judge the input")
	require.NoError(t, err)

	out, err := chain.Invoke(context.Background(), "sure")
	require.NoError(t, err)
	assert.Equal(t, "yes", out.Intent)

	require.Len(t, m.Tools(), 1)
	require.Len(t, m.Tools()[0], 1)
	assert.Equal(t, "judge", m.Tools()[0][0].Name)
	assert.Equal(t, "sure", m.Requests()[0][1].Content)
}

func TestChainErrors(t *testing.T) {
	ctx := context.Background()

	m := llmtest.NewScriptedModel(&schema.Message{Role: schema.Assistant, Content: "plain text"})
	chain, err := NewChain[string, verdict](m, prompt, "judge", "judge the input")
	require.NoError(t, err)
	_, err = chain.Invoke(ctx, "x")
	assert.ErrorIs(t, err, ErrNoToolCall)

	m = llmtest.NewScriptedModel(llmtest.ToolCall("judge", `{"intent":`))
	chain, err = NewChain[string, verdict](m, prompt, "judge", "judge the input")
	require.NoError(t, err)
	_, err = chain.Invoke(ctx, "x")
	assert.Error(t, err)

	m = llmtest.NewScriptedModel(llmtest.ToolCall("judge", `{"intent":"maybe"}`))
	chain, err = NewChain[string, verdict](m, prompt, "judge", "judge the input",
		WithValidator(func(v *verdict) error {
			if v.Intent != "yes" && v.Intent != "no" {
				return errors.New("bad intent")
			}
			return nil
		}))
	require.NoError(t, err)
	_, err = chain.Invoke(ctx, "x")
	assert.ErrorContains(t, err, "bad intent")

	boom := errors.New("boom")
	chain, err = NewChain[string, verdict](llmtest.NewFailingModel(boom), prompt, "judge", "judge the input")
	require.NoError(t, err)
	_, err = chain.Invoke(ctx, "x")
	assert.ErrorIs(t, err, boom)

	_, err = NewChain[string, verdict](nil, prompt, "judge", "judge the input")
	assert.Error(t, err)
}
