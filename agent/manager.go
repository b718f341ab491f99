package agent

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iai-group/MovieBot-sub000/catalog"
	"github.com/iai-group/MovieBot-sub000/dialogue"
	"github.com/iai-group/MovieBot-sub000/nlu"
	"github.com/iai-group/MovieBot-sub000/ontology"
	"github.com/iai-group/MovieBot-sub000/policy"
	"github.com/iai-group/MovieBot-sub000/state"
)

// Manager wires the shared, read-only parts of the bot and hands out
// conversations.
type Manager struct {
	ont           *ontology.Ontology
	resolver      nlu.Resolver
	lookup        catalog.Lookup
	generator     dialogue.Generator
	sessions      *SessionStore
	queryOpts     catalog.QueryOptions
	trackerOpts   []state.Option
	lookupTimeout time.Duration
	seed          uint64
	seq           atomic.Uint64
	logger        *zap.Logger
}

type Option func(*Manager)

func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

func WithSessionStore(store *SessionStore) Option {
	return func(m *Manager) { m.sessions = store }
}

// WithQueryOptions sets the popularity floor and result limit. A floor
// below one falls back to catalog.DefaultMinVotes.
func WithQueryOptions(opts catalog.QueryOptions) Option {
	return func(m *Manager) { m.queryOpts = opts }
}

// WithTrackerOptions configures the tracker of every new conversation.
func WithTrackerOptions(opts ...state.Option) Option {
	return func(m *Manager) { m.trackerOpts = append(m.trackerOpts, opts...) }
}

// WithLookupTimeout bounds each catalog call; a timed out call counts as no
// results.
func WithLookupTimeout(d time.Duration) Option {
	return func(m *Manager) { m.lookupTimeout = d }
}

// WithSeed makes policy choices reproducible. Zero seeds from the clock.
func WithSeed(seed uint64) Option {
	return func(m *Manager) { m.seed = seed }
}

func NewManager(ont *ontology.Ontology, resolver nlu.Resolver, lookup catalog.Lookup, generator dialogue.Generator, opts ...Option) (*Manager, error) {
	switch {
	case ont == nil:
		return nil, errors.New("ontology is required")
	case resolver == nil:
		return nil, errors.New("resolver is required")
	case lookup == nil:
		return nil, errors.New("catalog lookup is required")
	case generator == nil:
		return nil, errors.New("dialogue generator is required")
	}
	m := &Manager{
		ont:       ont,
		resolver:  resolver,
		lookup:    lookup,
		generator: generator,
		queryOpts: catalog.DefaultQueryOptions(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	if m.sessions == nil {
		m.sessions = NewMemorySessionStore(0)
	}
	if m.queryOpts.MinVotes <= 0 {
		m.queryOpts.MinVotes = catalog.DefaultMinVotes
	}
	m.logger = m.logger.Named("agent")
	return m, nil
}

func (m *Manager) newRand() *rand.Rand {
	n := m.seq.Add(1)
	seed := m.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, n))
}

// NewConversation creates a conversation that is not yet started or stored.
func (m *Manager) NewConversation() *Conversation {
	id := uuid.NewString()
	logger := m.logger.With(zap.String("conversation", id))
	return &Conversation{
		ID:      id,
		m:       m,
		tracker: state.NewTracker(m.ont, append([]state.Option{state.WithLogger(logger)}, m.trackerOpts...)...),
		policy:  policy.New(m.ont, policy.WithRand(m.newRand()), policy.WithLogger(logger)),
		logger:  logger,
	}
}

// Start begins a fresh conversation under the context's key, replacing any
// previous one.
func (m *Manager) Start(ctx context.Context) (*Turn, error) {
	conv := m.NewConversation()
	turn, err := conv.Start(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.sessions.Save(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to save conversation: %w", err)
	}
	m.logger.Info("Conversation started", zap.String("conversation", conv.ID))
	return turn, nil
}

// Step runs a user turn in the context's conversation, starting one first if
// there is none.
func (m *Manager) Step(ctx context.Context, utterance string) (*Turn, error) {
	return m.step(ctx, utterance, false)
}

// StepStream is Step with a streamed reply.
func (m *Manager) StepStream(ctx context.Context, utterance string) (*Turn, error) {
	return m.step(ctx, utterance, true)
}

func (m *Manager) step(ctx context.Context, utterance string, stream bool) (*Turn, error) {
	conv, err := m.Conversation(ctx)
	if err != nil {
		return nil, err
	}
	var turn *Turn
	if stream {
		turn, err = conv.StepStream(ctx, utterance)
	} else {
		turn, err = conv.Step(ctx, utterance)
	}
	if err != nil {
		return nil, err
	}
	if turn.Ended {
		m.logger.Info("Conversation ended", zap.String("conversation", conv.ID))
		return turn, m.sessions.Remove(ctx)
	}
	if err := m.sessions.Save(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to save conversation: %w", err)
	}
	return turn, nil
}

// Restart restarts the context's conversation.
func (m *Manager) Restart(ctx context.Context) (*Turn, error) {
	conv, err := m.Conversation(ctx)
	if err != nil {
		return nil, err
	}
	turn, err := conv.Restart(ctx)
	if err != nil {
		return nil, err
	}
	return turn, m.sessions.Save(ctx, conv)
}

// Conversation returns the context's conversation, starting a new one
// silently when none is stored.
func (m *Manager) Conversation(ctx context.Context) (*Conversation, error) {
	conv, ok, err := m.sessions.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if ok {
		return conv, nil
	}
	conv = m.NewConversation()
	if _, err := conv.Start(ctx); err != nil {
		return nil, err
	}
	if err := m.sessions.Save(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to save conversation: %w", err)
	}
	return conv, nil
}

// End forgets the context's conversation.
func (m *Manager) End(ctx context.Context) error {
	return m.sessions.Remove(ctx)
}

// Active reports whether the context has a stored conversation.
func (m *Manager) Active(ctx context.Context) (bool, error) {
	_, ok, err := m.sessions.Load(ctx)
	return ok, err
}
