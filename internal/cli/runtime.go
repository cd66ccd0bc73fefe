package cli

import (
	"context"
	"math/rand"

	"github.com/rcliao/frontdesk/internal/config"
	"github.com/rcliao/frontdesk/internal/conversation"
	"github.com/rcliao/frontdesk/internal/embedding"
	"github.com/rcliao/frontdesk/internal/generation"
	"github.com/rcliao/frontdesk/internal/intent"
	"github.com/rcliao/frontdesk/internal/logger"
	"github.com/rcliao/frontdesk/internal/policy"
	"github.com/rcliao/frontdesk/internal/search"
	"github.com/rcliao/frontdesk/internal/session"
	"github.com/rcliao/frontdesk/internal/vectorstore"
)

// runtime holds the wired components for one command invocation.
type runtime struct {
	cfg      *config.Config
	log      logger.ILogger
	sessions session.Store
	vectors  vectorstore.Store
	cached   *vectorstore.CachedLoader
	searcher *search.Searcher
	orch     *conversation.Orchestrator
}

func newLogger(cfg *config.Config) logger.ILogger {
	return logger.NewZapLogger(logger.Options{
		FilePath: cfg.App.LogFilePath,
		IsProd:   cfg.App.Environment == "production",
		Console:  cfg.App.LogConsole,
	})
}

func openSessions(cfg *config.Config) (session.Store, error) {
	return session.Open(cfg.Session)
}

// openSearch wires the vector store, embedder and searcher.
func openSearch(cfg *config.Config, log logger.ILogger) (*runtime, error) {
	vectors, err := vectorstore.Open(cfg.VectorStore)
	if err != nil {
		return nil, err
	}
	embedder, err := embedding.NewFromConfig(cfg.Embedding)
	if err != nil {
		vectors.Close()
		return nil, err
	}
	cached := vectorstore.NewCachedLoader(vectors, cfg.VectorStore.CacheTTL, log)
	return &runtime{
		cfg:      cfg,
		log:      log,
		vectors:  vectors,
		cached:   cached,
		searcher: search.New(cached, cfg.VectorStore.Name, embedder, search.NewExpander(cfg.Retrieval.Synonyms)),
	}, nil
}

// openRuntime wires everything a conversation turn needs.
func openRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	log := newLogger(cfg)

	rt, err := openSearch(cfg, log)
	if err != nil {
		return nil, err
	}
	if cfg.VectorStore.Watch && cfg.VectorStore.Type != "sqlite" {
		if err := rt.cached.Watch(ctx, cfg.VectorStore.Dir); err != nil {
			log.Warn("cli", "vector store watch disabled", map[string]interface{}{"error": err.Error()})
		}
	}

	tables, err := intent.LoadTables(cfg.Intent.TablesPath)
	if err != nil {
		rt.Close()
		return nil, err
	}
	gen, err := generation.NewFromConfig(cfg.Generation)
	if err != nil {
		rt.Close()
		return nil, err
	}
	sessions, err := openSessions(cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.sessions = sessions

	var rng *rand.Rand
	if cfg.Responses.Seed != 0 {
		rng = rand.New(rand.NewSource(cfg.Responses.Seed))
	}
	engine := policy.New(rt.searcher, gen, policy.OptionsFromConfig(cfg), rng)
	rt.orch = conversation.New(sessions, intent.NewClassifier(tables), intent.NewFlowClassifier(tables), engine, log,
		conversation.Options{GenerationTimeout: cfg.Generation.Timeout})
	return rt, nil
}

// openSessionRuntime wires only the session side, for commands that never
// retrieve or generate.
func openSessionRuntime(cfg *config.Config) (*runtime, error) {
	log := newLogger(cfg)
	sessions, err := openSessions(cfg)
	if err != nil {
		return nil, err
	}
	tables, err := intent.LoadTables(cfg.Intent.TablesPath)
	if err != nil {
		sessions.Close()
		return nil, err
	}
	orch := conversation.New(sessions, intent.NewClassifier(tables), intent.NewFlowClassifier(tables), nil, log, conversation.Options{})
	return &runtime{cfg: cfg, log: log, sessions: sessions, orch: orch}, nil
}

func (rt *runtime) Close() {
	if rt.sessions != nil {
		rt.sessions.Close()
	}
	if rt.vectors != nil {
		rt.vectors.Close()
	}
	rt.log.Sync()
}
