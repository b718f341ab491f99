package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/iai-group/MovieBot-sub000/catalog"
	"github.com/iai-group/MovieBot-sub000/dialogue"
	"github.com/iai-group/MovieBot-sub000/policy"
	"github.com/iai-group/MovieBot-sub000/state"
	"github.com/iai-group/MovieBot-sub000/types"
)

var ErrConversationEnded = errors.New("conversation has ended")

// Turn is what one exchange produced.
type Turn struct {
	ConversationID string                `json:"conversation_id"`
	Utterance      string                `json:"utterance,omitempty"`
	UserActs       []types.DialogueAct   `json:"user_acts,omitempty"`
	AgentActs      []types.DialogueAct   `json:"agent_acts"`
	Reply          string                `json:"reply,omitempty"`
	Options        types.DialogueOptions `json:"options,omitempty"`
	// NeedPatch is the JSON merge patch from the need before the turn to the
	// need after it.
	NeedPatch json.RawMessage `json:"need_patch,omitempty"`
	// LookedUp is set when the turn called the catalog rather than reusing
	// the previous result.
	LookedUp bool `json:"looked_up"`
	Ended    bool `json:"ended"`

	ReplyStream *schema.StreamReader[string] `json:"-"`
}

// lookupMemo is the last query pair and what it returned.
type lookupMemo struct {
	key     string
	results []types.Item
	backup  []types.Item
}

// Conversation owns one dialogue: its tracker, its policy and the options
// offered on the previous turn. Turns are serialised.
type Conversation struct {
	ID string

	mu      sync.Mutex
	m       *Manager
	tracker *state.Tracker
	policy  *policy.Policy
	options types.DialogueOptions
	memo    lookupMemo
	logger  *zap.Logger
}

// State returns a copy of the dialogue state.
func (c *Conversation) State() *state.DialogueState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.State().Clone()
}

// Options returns the replies offered on the last turn.
func (c *Conversation) Options() types.DialogueOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.options
}

// Start opens the dialogue with the agent's greeting.
func (c *Conversation) Start(ctx context.Context) (*Turn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracker.Initialize()
	c.memo = lookupMemo{}
	return c.respond(ctx, "", nil, c.tracker.State().CIN.Clone(), false, false)
}

// Restart wipes the preferences and asks for the first one again.
func (c *Conversation) Restart(ctx context.Context) (*Turn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.tracker.State().CIN.Clone()
	c.tracker.Initialize()
	c.memo = lookupMemo{}
	return c.respond(ctx, "", nil, prev, true, false)
}

// Step runs one user turn.
func (c *Conversation) Step(ctx context.Context, utterance string) (*Turn, error) {
	return c.step(ctx, utterance, false)
}

// StepStream runs one user turn and streams the reply text.
func (c *Conversation) StepStream(ctx context.Context, utterance string) (*Turn, error) {
	return c.step(ctx, utterance, true)
}

func (c *Conversation) step(ctx context.Context, utterance string, stream bool) (*Turn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.tracker.State()
	if st.Flags.AtTerminal {
		return nil, ErrConversationEnded
	}

	c.logger.Debug("Resolving utterance", zap.String("utterance", utterance))
	userActs, err := c.m.resolver.GenerateDact(ctx, utterance, c.options, st)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user acts: %w", err)
	}
	prev := st.CIN.Clone()
	c.tracker.UpdateStateUser(userActs)
	if intent, ok := c.tracker.State().LastUserIntent(); ok && intent == types.IntentRestart {
		c.memo = lookupMemo{}
	}

	lookedUp := false
	if c.shouldLookup() {
		lookedUp = c.lookup(ctx)
	}
	turn, err := c.respond(ctx, utterance, userActs, prev, false, stream)
	if err != nil {
		return nil, err
	}
	turn.LookedUp = lookedUp
	return turn, nil
}

func (c *Conversation) shouldLookup() bool {
	flags := c.tracker.State().Flags
	return flags.CanLookup && !flags.MadeOffer && !flags.AtTerminal
}

// lookup queries the catalog for the current need, reusing the previous
// result when the query has not changed. It reports whether the catalog was
// called.
func (c *Conversation) lookup(ctx context.Context) bool {
	st := c.tracker.State()
	need := catalog.BuildQuery(st.CIN, c.m.ont, c.m.queryOpts)
	primary, backup := need, catalog.Query{}
	similar := st.OfferSimilar
	if similar {
		primary, backup = catalog.SimilarQuery(st.SimilarTitles, c.m.queryOpts.Limit), need
	}
	key := primary.Key()
	if similar {
		key = "similar:" + key + "|" + backup.Key()
	}

	if key == c.memo.key {
		c.logger.Debug("Reusing lookup result", zap.Int("results", len(c.memo.results)))
		c.tracker.UpdateStateDB(c.memo.results, c.memo.backup)
		return false
	}

	ok := true
	var results, backupResults []types.Item
	if !similar || primary.Similar() {
		results, ok = c.query(ctx, primary)
	}
	if similar && len(results) == 0 {
		var backupOK bool
		backupResults, backupOK = c.query(ctx, backup)
		ok = ok && backupOK
	}
	if ok {
		c.memo = lookupMemo{key: key, results: results, backup: backupResults}
	} else {
		c.memo = lookupMemo{}
	}
	c.tracker.UpdateStateDB(results, backupResults)
	return true
}

// query runs one catalog query. Failures and timeouts read as no results.
func (c *Conversation) query(ctx context.Context, q catalog.Query) ([]types.Item, bool) {
	if c.m.lookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.m.lookupTimeout)
		defer cancel()
	}
	c.logger.Debug("Looking up catalog", zap.String("query", q.Key()))
	items, err := c.m.lookup.Lookup(ctx, q)
	if err != nil {
		c.logger.Warn("Catalog lookup failed", zap.Error(err))
		return nil, false
	}
	c.logger.Debug("Looked up catalog", zap.Int("results", len(items)))
	return items, true
}

func (c *Conversation) respond(ctx context.Context, utterance string, userActs []types.DialogueAct, prev types.Need, restart, stream bool) (*Turn, error) {
	st := c.tracker.State()
	agentActs := c.policy.NextAction(st, restart)
	c.tracker.UpdateStateAgent(agentActs)

	turn := &Turn{
		ConversationID: c.ID,
		Utterance:      utterance,
		UserActs:       userActs,
		AgentActs:      agentActs,
		Ended:          st.Flags.AtTerminal,
	}
	req := &dialogue.Request{Acts: agentActs, State: st, Ontology: c.m.ont, LastUserInput: utterance}
	c.logger.Debug("Generating dialogue", zap.Stringers("acts", agentActs))
	if stream {
		replyStream, opts, err := c.m.generator.GenerateDialogueStream(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to generate dialogue: %w", err)
		}
		turn.ReplyStream, turn.Options = replyStream, opts
	} else {
		reply, err := c.m.generator.GenerateDialogue(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to generate dialogue: %w", err)
		}
		turn.Reply, turn.Options = reply.Text, reply.Options
	}
	c.options = turn.Options

	patch, err := types.NeedDiff(prev, st.CIN)
	if err != nil {
		return nil, err
	}
	if string(patch) != "{}" {
		turn.NeedPatch = patch
	}
	return turn, nil
}
