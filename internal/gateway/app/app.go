package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"bizdiag/internal/cache/response"
	"bizdiag/internal/gateway/config"
	"bizdiag/internal/gateway/handler"
	"bizdiag/internal/gateway/handler/events"
	"bizdiag/internal/gateway/handler/rpc"
	"bizdiag/internal/gateway/server"
	"bizdiag/internal/kv"
	"bizdiag/internal/llm"
	llmclient "bizdiag/internal/llm/client"
	"bizdiag/internal/logging"
	"bizdiag/internal/orchestrator"
	"bizdiag/internal/pipeline"
	"bizdiag/internal/repository/cases"
	"bizdiag/internal/todo"
)

type App struct {
	server   *server.Server
	handler  http.Handler
	log      *zap.Logger
	store    kv.Store
	client   llmclient.LLMClient
	sessions *orchestrator.Manager
	recorder *cases.Recorder
}

type Option func(*options)

type options struct {
	client llmclient.LLMClient
	log    *zap.Logger
}

// WithLLMClient replaces the Gemini client, e.g. with a fake.
func WithLLMClient(c llmclient.LLMClient) Option { return func(o *options) { o.client = c } }

func WithLogger(l *zap.Logger) Option { return func(o *options) { o.log = l } }

// New loads configuration from the environment and builds the app.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return NewWithConfig(ctx, cfg, WithLogger(log))
}

func NewWithConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	log := logging.OrNop(o.log)

	// Dependencies
	stores, err := initStores(cfg, log)
	if err != nil {
		return nil, err
	}
	client := o.client
	if client == nil {
		gc, err := NewLLMClient(ctx, cfg.LLM)
		if err != nil {
			_ = stores.kv.Close()
			return nil, err
		}
		client = gc
	}
	runner, respCache := NewRunner(cfg.LLM, client, stores.kv, log)
	repo := cases.New(stores.kv, cases.WithLogger(log.Named("cases")))
	history := cases.NewHistory(stores.kv, log.Named("history"))
	recorder := cases.NewRecorder(ctx, history, cases.DefaultSettle, nil)
	sessions := orchestrator.NewManager(runner, repo, log.Named("session"))

	var storeMetrics handler.StoreMetrics
	if cs, ok := stores.kv.(*kv.CachedStore); ok {
		storeMetrics = cs
	}

	// Routing & Server
	mux := server.NewMux(server.Handlers{
		Diagnosis: rpc.NewDiagnosisHandler(sessions, stores.sink, log.Named("rpc")),
		Cases:     rpc.NewCaseHandler(repo, history, recorder),
		Todos:     rpc.NewTodoHandler(todo.New(stores.kv, log.Named("todo"))),
		Events:    events.NewHandler(sessions, cfg.AllowedOrigins, log.Named("events")),
		Debug:     handler.NewDebugHandler(respCache, storeMetrics, log.Named("debug")),
	}, cfg.AllowedOrigins, log.Named("http"))

	return &App{
		server:   server.New(cfg.Port, mux, log),
		handler:  mux,
		log:      log,
		store:    stores.kv,
		client:   client,
		sessions: sessions,
		recorder: recorder,
	}, nil
}

// NewLLMClient builds the Gemini client. The API key is required.
func NewLLMClient(ctx context.Context, cfg config.LLMConfig) (llmclient.LLMClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	gc, err := llmclient.NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to init gemini client: %w", err)
	}
	return gc, nil
}

// NewRunner wraps client with logging and rate limiting, retries with linear
// backoff and caches responses in store.
func NewRunner(cfg config.LLMConfig, client llmclient.LLMClient, store kv.Store, log *zap.Logger) (*pipeline.Runner, *response.Cache) {
	log = logging.OrNop(log)
	client = llm.Wrap(client, llm.WithLogging(log), llm.RateLimit(cfg.RPS, cfg.Burst))
	respCache := response.New(store, log.Named("cache"))
	inv := llm.NewInvoker(client,
		llm.WithBackoff(llm.LinearBackoff(cfg.BackoffBase)),
		llm.WithInvokerLogger(log.Named("llm")),
	)
	runner := pipeline.NewRunner(inv,
		pipeline.WithCache(respCache),
		pipeline.WithLogger(log.Named("pipeline")),
		pipeline.WithMaxRetries(cfg.MaxRetries),
	)
	return runner, respCache
}

// Handler exposes the routed handler for in-process servers.
func (a *App) Handler() http.Handler { return a.handler }

func (a *App) Start() error {
	return a.server.Start()
}

// Shutdown stops the listener, then sessions, then the backends.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	a.recorder.Flush()
	a.sessions.Close()
	if cerr := a.client.Close(); cerr != nil {
		a.log.Warn("close llm client", zap.Error(cerr))
	}
	if cerr := a.store.Close(); cerr != nil {
		a.log.Warn("close store", zap.Error(cerr))
	}
	_ = a.log.Sync()
	return err
}
