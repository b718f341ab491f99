package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"go.uber.org/zap"

	"github.com/iai-group/MovieBot-sub000/agent"
	"github.com/iai-group/MovieBot-sub000/annotate"
	"github.com/iai-group/MovieBot-sub000/cache"
	"github.com/iai-group/MovieBot-sub000/catalog"
	"github.com/iai-group/MovieBot-sub000/dialogue"
	"github.com/iai-group/MovieBot-sub000/internal/config"
	"github.com/iai-group/MovieBot-sub000/nlu"
	"github.com/iai-group/MovieBot-sub000/ontology"
	"github.com/iai-group/MovieBot-sub000/state"
	"github.com/iai-group/MovieBot-sub000/types"
)

const (
	AgentName        = "MovieBot"
	AgentDescription = "Recommends movies by asking about the user's preferences"
)

// store is what the bot needs from a catalog backend.
type store interface {
	catalog.Lookup
	annotate.ValueSource
}

// App is a fully wired bot.
type App struct {
	Config    *config.Config
	Ontology  *ontology.Ontology
	Annotator *annotate.Annotator
	Manager   *agent.Manager
	Agent     *agent.Agent

	closers []func() error
}

type Option func(*options)

type options struct {
	chatModel model.ToolCallingChatModel
}

// WithChatModel uses chatModel instead of dialing the configured endpoint.
func WithChatModel(chatModel model.ToolCallingChatModel) Option {
	return func(o *options) { o.chatModel = chatModel }
}

func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg}
	if err := a.build(ctx, cfg, logger, o); err != nil {
		return nil, errors.Join(err, a.Close())
	}
	return a, nil
}

func (a *App) build(ctx context.Context, cfg *config.Config, logger *zap.Logger, o options) error {
	ont, err := loadOntology(cfg.Ontology)
	if err != nil {
		return err
	}
	a.Ontology = ont

	st, err := a.openStore(ctx, cfg.Catalog, logger)
	if err != nil {
		return err
	}
	dict, err := annotate.BuildDictionary(ctx, st, ont.Annotated())
	if err != nil {
		return fmt.Errorf("build dictionary: %w", err)
	}
	a.Annotator = annotate.New(ont, dict,
		annotate.WithRecencyThreshold(cfg.Annotator.RecencyThreshold),
		annotate.WithLogger(logger))

	lookup, err := a.wrapCache(ctx, st, cfg.Cache, logger)
	if err != nil {
		return err
	}

	var nlgRand *rand.Rand
	if cfg.Policy.Seed != 0 {
		nlgRand = rand.New(rand.NewPCG(cfg.Policy.Seed, 0))
	}
	local := nlu.NewLocalResolver(ont, a.Annotator, nlu.WithLogger(logger))
	templates := dialogue.NewLocalDialogueGenerator(nlgRand)
	var (
		resolver  nlu.Resolver       = local
		generator dialogue.Generator = templates
	)

	chatModel := o.chatModel
	if chatModel == nil && cfg.LLM.Enabled() {
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			BaseURL: cfg.LLM.BaseURL,
		})
		if err != nil {
			return fmt.Errorf("init chat model: %w", err)
		}
	}
	if chatModel != nil {
		toolResolver, err := nlu.NewToolBasedResolver(chatModel, ont)
		if err != nil {
			return fmt.Errorf("init tool-based resolver: %w", err)
		}
		resolver = nlu.NewFailbackResolver(logger, local, toolResolver)
		generator = dialogue.NewFailbackDialogueGenerator(
			dialogue.NewToolBasedDialogueGenerator(chatModel,
				dialogue.WithDialogueLang(cfg.LLM.Lang),
				dialogue.WithDrafter(templates)),
			templates,
		)
		logger.Info("LLM fallback enabled", zap.String("model", cfg.LLM.Model))
	}

	manager, err := agent.NewManager(ont, resolver, lookup, generator,
		agent.WithLogger(logger),
		agent.WithSessionStore(agent.NewMemorySessionStore(cfg.Cache.SessionIdle)),
		agent.WithQueryOptions(catalog.QueryOptions{MinVotes: cfg.Catalog.MinVotes, Limit: cfg.Catalog.Limit}),
		agent.WithTrackerOptions(
			state.WithMaxResults(cfg.Policy.MaxResults),
			state.WithSlotLeftUnasked(cfg.Policy.SlotLeftUnasked),
		),
		agent.WithLookupTimeout(cfg.Catalog.LookupTimeout),
		agent.WithSeed(cfg.Policy.Seed),
	)
	if err != nil {
		return err
	}
	a.Manager = manager
	a.Agent = agent.NewAgent(AgentName, AgentDescription, manager)
	return nil
}

func loadOntology(cfg config.OntologyConfig) (*ontology.Ontology, error) {
	if cfg.Path == "" {
		return ontology.Default()
	}
	return ontology.LoadFile(cfg.Path)
}

func (a *App) openStore(ctx context.Context, cfg config.CatalogConfig, logger *zap.Logger) (store, error) {
	var items []types.Item
	var err error
	if cfg.ItemsFile != "" {
		items, err = catalog.LoadItemsFile(cfg.ItemsFile)
	} else if cfg.Driver == "memory" {
		items, err = catalog.SampleItems()
	}
	if err != nil {
		return nil, err
	}
	if cfg.Driver == "memory" {
		logger.Info("Serving in-memory catalog", zap.Int("items", len(items)))
		return catalog.NewMemoryStore(items), nil
	}

	sqlStore, err := catalog.OpenSQL(ctx, cfg.Driver, cfg.DSN, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, sqlStore.Close)
	if err := sqlStore.Migrate(ctx); err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := sqlStore.Insert(ctx, items); err != nil {
			return nil, err
		}
	}
	logger.Info("Serving SQL catalog", zap.String("driver", cfg.Driver))
	return sqlStore, nil
}

func (a *App) wrapCache(ctx context.Context, st store, cfg config.CacheConfig, logger *zap.Logger) (catalog.Lookup, error) {
	switch cfg.Backend {
	case "memory":
		return catalog.NewCachedLookup(st, cache.NewMemoryCache[[]types.Item](cfg.TTL), logger), nil
	case "redis":
		client, err := cache.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return catalog.NewCachedLookup(st, cache.NewRedisCache[[]types.Item](client, cfg.TTL), logger), nil
	}
	return st, nil
}

// Close releases the catalog connection and the cache client.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
