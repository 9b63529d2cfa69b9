// Package app assembles a session from configuration: the persistent store
// backend, the dispatcher and the connectivity probe.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/capitalize-ai/assistant-session/internal/config"
	"github.com/capitalize-ai/assistant-session/internal/contextwindow"
	"github.com/capitalize-ai/assistant-session/internal/dispatch"
	"github.com/capitalize-ai/assistant-session/internal/llm"
	natsclient "github.com/capitalize-ai/assistant-session/internal/nats"
	"github.com/capitalize-ai/assistant-session/internal/netcheck"
	"github.com/capitalize-ai/assistant-session/internal/session"
	"github.com/capitalize-ai/assistant-session/internal/store"
	"github.com/capitalize-ai/assistant-session/pkg/logger"
)

// Store backend names.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreNATS   = "nats"
)

// ProviderEndpoint selects the HTTP completion endpoint dispatcher.
const ProviderEndpoint = "endpoint"

// Runtime holds a wired session and the resources behind it.
type Runtime struct {
	Session    *session.Session
	Dispatcher dispatch.Dispatcher
	NATS       *natsclient.Client
}

// Close releases connections held by the runtime.
func (r *Runtime) Close() {
	if r.NATS != nil {
		r.NATS.Close()
	}
}

// Build wires a session from cfg.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Runtime, error) {
	rt := &Runtime{}

	backend, err := rt.backend(ctx, cfg, log)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.Dispatcher, err = NewDispatcher(cfg, log)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.Session = session.New(ctx, session.Options{
		Dispatcher:    rt.Dispatcher,
		Store:         store.New(backend, log),
		Connectivity:  netcheck.NewInterfaces(),
		Window:        contextwindow.NewBuilder(contextwindow.DefaultSize),
		Logger:        log,
		CancelOnClear: cfg.CancelOnClear,
	})

	log.Info("session ready",
		zap.String("session_id", rt.Session.ID()),
		zap.String("store", cfg.Store),
		zap.String("dispatcher", rt.Dispatcher.Name()),
	)
	return rt, nil
}

func (rt *Runtime) backend(ctx context.Context, cfg *config.Config, log *logger.Logger) (store.Backend, error) {
	switch cfg.Store {
	case StoreMemory:
		return store.NewMemoryBackend(), nil
	case StoreFile, "":
		b, err := store.NewFileBackend(cfg.StoreDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open file store: %w", err)
		}
		return b, nil
	case StoreNATS:
		client, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		rt.NATS = client

		kv, err := client.EnsureBucket(ctx, cfg.NATSBucket)
		if err != nil {
			return nil, fmt.Errorf("failed to ensure bucket: %w", err)
		}
		return store.NewNATSBackend(kv), nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// NewDispatcher selects the completion endpoint or a provider-direct
// dispatcher from cfg.Provider.
func NewDispatcher(cfg *config.Config, log *logger.Logger) (dispatch.Dispatcher, error) {
	switch cfg.Provider {
	case ProviderEndpoint, "":
		return dispatch.NewClient(cfg.APIURL,
			dispatch.WithTimeout(cfg.HTTPTimeout),
			dispatch.WithLogger(log),
		), nil
	case string(llm.ProviderOpenAI):
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("provider %s requires OPENAI_API_KEY", cfg.Provider)
		}
		client, err := llm.NewClient(llm.ProviderOpenAI, cfg.OpenAIAPIKey, "")
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
		}
		return dispatch.NewProviderDispatcher(client, cfg.Model, log), nil
	case string(llm.ProviderAnthropic):
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("provider %s requires ANTHROPIC_API_KEY", cfg.Provider)
		}
		client, err := llm.NewClient(llm.ProviderAnthropic, cfg.AnthropicAPIKey, "")
		if err != nil {
			return nil, fmt.Errorf("failed to create Anthropic client: %w", err)
		}
		return dispatch.NewProviderDispatcher(client, cfg.Model, log), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
