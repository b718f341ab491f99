package app

import (
	"context"
	"os"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iai-group/MovieBot-sub000/internal/config"
	"github.com/iai-group/MovieBot-sub000/internal/llmtest"
	"github.com/iai-group/MovieBot-sub000/types"
)

func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	v.Set("annotator.recency_threshold", 2016)
	v.Set("policy.seed", 3)
	cfg, err := config.NewConfigFromViper(v)
	require.NoError(t, err)
	return cfg
}

func converse(t *testing.T, a *App) []types.DialogueAct {
	t.Helper()
	ctx := context.Background()
	_, err := a.Manager.Start(ctx)
	require.NoError(t, err)
	turn, err := a.Manager.Step(ctx, "I want a horror movie from the 90s")
	require.NoError(t, err)
	return turn.AgentActs
}

func TestBuildMemory(t *testing.T) {
	a, err := Build(context.Background(), defaultConfig(t), nil)
	require.NoError(t, err)
	defer a.Close()

	acts := converse(t, a)
	require.Len(t, acts, 1)
	assert.Equal(t, types.IntentRecommend, acts[0].Intent)
	assert.Equal(t, AgentName, a.Agent.Name(context.Background()))
}

func TestBuildSQLite(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Catalog.Driver = "sqlite"
	cfg.Catalog.DSN = ":memory:"
	cfg.Catalog.ItemsFile = "../../catalog/sample/movies.yaml"

	a, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	acts := converse(t, a)
	require.Len(t, acts, 1)
	assert.Equal(t, types.IntentRecommend, acts[0].Intent)
	title, _ := acts[0].First(types.SlotTitle)
	assert.Equal(t, "Interview with the Vampire", title.Value.Text())
}

func TestBuildRejectsBadOntology(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Ontology.Path = "does-not-exist.yaml"
	_, err := Build(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestBuildWithChatModel(t *testing.T) {
	m := llmtest.NewScriptedModel(&schema.Message{Role: schema.Assistant, Content: "Welcome to the movie night!"})
	a, err := Build(context.Background(), defaultConfig(t), nil, WithChatModel(m))
	require.NoError(t, err)
	defer a.Close()

	turn, err := a.Manager.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Welcome to the movie night!", turn.Reply)

	// Once the script runs out the templates answer.
	turn, err = a.Manager.Step(context.Background(), "hmm")
	require.NoError(t, err)
	assert.NotEmpty(t, turn.Reply)
}

func TestLiveConversation(t *testing.T) {
	if os.Getenv("MOVIEBOT_RUN_LIVE_TESTS") != "1" {
		t.Skip("set MOVIEBOT_RUN_LIVE_TESTS=1 to run live LLM tests")
	}
	cfg, err := config.Load("")
	require.NoError(t, err)
	if !cfg.LLM.Enabled() {
		t.Skip("MOVIEBOT_LLM_API_KEY is empty")
	}
	a, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	acts := converse(t, a)
	require.NotEmpty(t, acts)
	assert.True(t, types.HasIntent(acts, types.IntentRecommend) || types.HasIntent(acts, types.IntentCountResults))
}
