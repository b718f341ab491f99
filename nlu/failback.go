package nlu

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/iai-group/MovieBot-sub000/state"
	"github.com/iai-group/MovieBot-sub000/types"
)

// FailbackResolver tries resolvers in order. A resolver that errors or only
// produces UNK hands the turn to the next one; if none does better, the
// first UNK result stands.
type FailbackResolver struct {
	resolvers []Resolver
	logger    *zap.Logger
}

func NewFailbackResolver(logger *zap.Logger, resolvers ...Resolver) *FailbackResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FailbackResolver{resolvers: resolvers, logger: logger.Named("nlu")}
}

func unknownOnly(acts []types.DialogueAct) bool {
	for _, a := range acts {
		if a.Intent != types.IntentUnk {
			return false
		}
	}
	return true
}

func (r *FailbackResolver) GenerateDact(ctx context.Context, utterance string, options types.DialogueOptions, st *state.DialogueState) ([]types.DialogueAct, error) {
	var (
		fallback []types.DialogueAct
		lastErr  error
	)
	for i, resolver := range r.resolvers {
		acts, err := resolver.GenerateDact(ctx, utterance, options, st)
		if err != nil {
			r.logger.Warn("Resolver failed", zap.Int("index", i), zap.Error(err))
			lastErr = err
			continue
		}
		if !unknownOnly(acts) {
			return acts, nil
		}
		if fallback == nil {
			fallback = acts
		}
	}
	if fallback != nil {
		return fallback, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("all resolvers failed: %w", lastErr)
	}
	return []types.DialogueAct{types.MustUserAct(types.IntentUnk)}, nil
}
