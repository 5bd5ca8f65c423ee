package main

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bizdiag/internal/gateway/app"
	"bizdiag/internal/gateway/config"
	"bizdiag/internal/kv"
	"bizdiag/internal/logging"
	"bizdiag/internal/repository/cases"
)

// newLLMClient is swapped out in tests.
var newLLMClient = app.NewLLMClient

type rootOptions struct {
	storage     string
	storagePath string
	logLevel    string
	getenv      func(string) string
}

type cliEnv struct {
	cfg   *config.Config
	log   *zap.Logger
	store kv.Store
}

// open resolves configuration the same way the gateway does, then applies
// the persistent flags on top.
func (o *rootOptions) open() (*cliEnv, error) {
	_ = godotenv.Load()
	cfg, err := config.Parse(nil, o.getenv)
	if err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(o.storage); v != "" {
		cfg.Storage.Backend = v
	}
	if v := strings.TrimSpace(o.storagePath); v != "" {
		cfg.Storage.Path = v
	}
	level := "warn"
	if v := strings.TrimSpace(o.logLevel); v != "" {
		level = v
	} else if cfg.LogLevel != "" {
		level = cfg.LogLevel
	}
	log, err := logging.New(cfg.Env, level)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	store, err := kv.Open(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Backend, err)
	}
	return &cliEnv{cfg: cfg, log: log, store: store}, nil
}

func (e *cliEnv) repo() *cases.Repository {
	return cases.New(e.store, cases.WithLogger(e.log.Named("cases")))
}

func (e *cliEnv) history() *cases.History {
	return cases.NewHistory(e.store, e.log.Named("history"))
}

func (e *cliEnv) Close() {
	if err := e.store.Close(); err != nil {
		e.log.Warn("close store", zap.Error(err))
	}
	_ = e.log.Sync()
}
