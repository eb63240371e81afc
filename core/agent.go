package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// Agent is the core interface that all agents must implement
type Agent interface {
	GetID() string
	GetName() string
	Assist(ctx context.Context, query string)
	Launch(ctx context.Context)
}

// BaseAgent wires an Identity, a Hook and a ResponseHandler together.
// Concrete agents embed it and implement Assist and Launch.
type BaseAgent struct {
	// Core fields (always available)
	Name            string
	Identity        Identity
	Hook            Hook
	ResponseHandler ResponseHandler
	Logger          Logger

	// Optional fields
	Telemetry Telemetry

	// Configuration
	Config *Config

	out   io.Writer
	outMu sync.Mutex
}

// AgentOption customizes a BaseAgent before its collaborators are built
type AgentOption func(*agentOptions)

type agentOptions struct {
	ids       IDGenerator
	hook      Hook
	logger    Logger
	telemetry Telemetry
	out       io.Writer
}

// WithAgentIDGenerator overrides the configured id generator
func WithAgentIDGenerator(gen IDGenerator) AgentOption {
	return func(o *agentOptions) { o.ids = gen }
}

// WithAgentHook supplies a hook instead of building one from config
func WithAgentHook(hook Hook) AgentOption {
	return func(o *agentOptions) { o.hook = hook }
}

// WithAgentLogger overrides the logger built from config
func WithAgentLogger(logger Logger) AgentOption {
	return func(o *agentOptions) { o.logger = logger }
}

// WithAgentTelemetry sets the telemetry used for spans and metrics
func WithAgentTelemetry(t Telemetry) AgentOption {
	return func(o *agentOptions) { o.telemetry = t }
}

// WithOutput redirects the agent's user-facing output (stdout by default)
func WithOutput(w io.Writer) AgentOption {
	return func(o *agentOptions) { o.out = w }
}

// NewBaseAgent creates a base agent named name with default configuration
func NewBaseAgent(name string, opts ...AgentOption) (*BaseAgent, error) {
	cfg := DefaultConfig()
	cfg.Name = name
	return NewBaseAgentWithConfig(cfg, opts...)
}

// NewBaseAgentWithConfig creates a base agent from configuration.
// The identity is generated once here; failures building any collaborator
// are returned to the caller.
func NewBaseAgentWithConfig(config *Config, opts ...AgentOption) (*BaseAgent, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Name == "" {
		return nil, &FrameworkError{
			Op:      "NewBaseAgent",
			Kind:    "agent",
			Message: "agent name is required",
			Err:     ErrMissingConfiguration,
		}
	}

	o := agentOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = NewProductionLogger(config.Logging, config.Name)
	}
	logger := createComponentLogger(o.logger, "agent/"+config.Name)

	if o.telemetry == nil {
		o.telemetry = &NoOpTelemetry{}
	}
	if o.out == nil {
		o.out = os.Stdout
	}

	ids := o.ids
	if ids == nil {
		gen, err := NewIDGenerator(config.Identity.Generator)
		if err != nil {
			return nil, err
		}
		ids = gen
	}

	identity, err := NewIdentity(ids, config.Name)
	if err != nil {
		logger.Error("Failed to create identity", map[string]interface{}{
			"error": err.Error(),
			"name":  config.Name,
		})
		return nil, err
	}

	hook := o.hook
	if hook == nil {
		hook, err = newHookFromConfig(config, identity, logger)
		if err != nil {
			logger.Error("Failed to create hook", map[string]interface{}{
				"error":    err.Error(),
				"provider": config.Hook.Provider,
			})
			return nil, err
		}
	}

	handler, err := NewDefaultResponseHandler(identity, hook,
		WithEventIDGenerator(ids),
		WithHandlerTelemetry(o.telemetry),
	)
	if err != nil {
		return nil, err
	}

	logger.Debug("Agent constructed", map[string]interface{}{
		"id":            identity.ID,
		"name":          identity.Name,
		"hook_provider": config.Hook.Provider,
	})

	return &BaseAgent{
		Name:            config.Name,
		Identity:        identity,
		Hook:            hook,
		ResponseHandler: handler,
		Logger:          logger,
		Telemetry:       o.telemetry,
		Config:          config,
		out:             o.out,
	}, nil
}

// newHookFromConfig builds the hook selected by config.Hook.Provider
func newHookFromConfig(config *Config, identity Identity, logger Logger) (Hook, error) {
	switch config.Hook.Provider {
	case "", HookProviderMemory:
		return NewDefaultHook(nil), nil
	case HookProviderRedis:
		client, err := NewRedisClient(RedisClientOptions{
			RedisURL:  config.Hook.RedisURL,
			DB:        config.Hook.RedisDB,
			Namespace: config.Hook.Namespace,
			Logger:    logger,
		})
		if err != nil {
			return nil, NewFrameworkError("NewBaseAgent", "hook", err)
		}
		return NewRedisHook(client, RedisHookOptions{
			Key:       identity.ID,
			TTL:       config.Hook.TTL,
			Logger:    logger,
			OwnClient: true,
		})
	default:
		return nil, &FrameworkError{
			Op:      "NewBaseAgent",
			Kind:    "hook",
			Message: fmt.Sprintf("unknown hook provider: %s", config.Hook.Provider),
			Err:     ErrInvalidConfiguration,
		}
	}
}

// GetID returns the agent's identity id
func (b *BaseAgent) GetID() string {
	return b.Identity.ID
}

// GetName returns the agent name
func (b *BaseAgent) GetName() string {
	return b.Name
}

// Println writes one line to the agent's output. Write failures are logged.
func (b *BaseAgent) Println(line string) {
	b.outMu.Lock()
	defer b.outMu.Unlock()

	if _, err := fmt.Fprintln(b.out, line); err != nil {
		b.Logger.Warn("Failed to write agent output", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// Close completes any open response and releases the hook
func (b *BaseAgent) Close(ctx context.Context) error {
	var firstErr error
	if b.ResponseHandler != nil && !b.ResponseHandler.IsComplete() {
		if err := b.ResponseHandler.Complete(ctx); err != nil {
			firstErr = err
		}
	}
	if b.Hook != nil {
		if err := b.Hook.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
