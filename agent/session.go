package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iai-group/MovieBot-sub000/cache"
)

type stateKeyContext struct{}

const defaultStateKey = "default"

// WithStateKey sets the conversation key used to route session storage.
func WithStateKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, stateKeyContext{}, key)
}

// StateKeyFromContext gets the conversation key from the context.
func StateKeyFromContext(ctx context.Context) (string, bool) {
	value := ctx.Value(stateKeyContext{})
	if value == nil {
		return "", false
	}
	key, ok := value.(string)
	return key, ok
}

func stateKeyOrDefault(ctx context.Context) string {
	if key, ok := StateKeyFromContext(ctx); ok && key != "" {
		return key
	}
	return defaultStateKey
}

const (
	sessionNamespace = "moviebot:conversation:"
	maxStateKeyLen   = 128
)

// ErrInvalidStateKey is returned for a key that cannot name a session.
var ErrInvalidStateKey = errors.New("invalid conversation key")

func validStateKey(key string) error {
	if len(key) > maxStateKeyLen {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidStateKey, maxStateKeyLen)
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidStateKey, key)
		}
	}
	return nil
}

// SessionStore keeps live conversations by the key carried in the context.
// Conversations hold their tracker, so the backing cache must keep values in
// process. Loading a conversation renews its idle deadline.
type SessionStore struct {
	core cache.Cache[*Conversation]
}

func NewSessionStore(core cache.Cache[*Conversation]) *SessionStore {
	return &SessionStore{core: core}
}

// NewMemorySessionStore drops conversations idle for longer than idle; zero
// keeps them until removed.
func NewMemorySessionStore(idle time.Duration) *SessionStore {
	return NewSessionStore(cache.NewMemoryCache[*Conversation](idle))
}

func (s *SessionStore) key(ctx context.Context) (string, error) {
	key := stateKeyOrDefault(ctx)
	if err := validStateKey(key); err != nil {
		return "", err
	}
	return sessionNamespace + key, nil
}

func (s *SessionStore) Load(ctx context.Context) (*Conversation, bool, error) {
	key, err := s.key(ctx)
	if err != nil {
		return nil, false, err
	}
	conv, ok, err := s.core.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	if err := s.core.Set(ctx, key, conv); err != nil {
		return nil, false, fmt.Errorf("renew session: %w", err)
	}
	return conv, true, nil
}

func (s *SessionStore) Save(ctx context.Context, conv *Conversation) error {
	key, err := s.key(ctx)
	if err != nil {
		return err
	}
	return s.core.Set(ctx, key, conv)
}

func (s *SessionStore) Remove(ctx context.Context) error {
	key, err := s.key(ctx)
	if err != nil {
		return err
	}
	return s.core.Del(ctx, key)
}
