// Package launcher contains the example agent started by cmd/launch-agent.
package launcher

import (
	"context"

	"github.com/itsneelabh/agentlaunch/core"
)

// DefaultName is the name the launch command gives its agent
const DefaultName = "MyAgent"

// AssistEventName names the text event emitted for each query
const AssistEventName = "ASSIST"

// launchedLine is written by every Launch call
const launchedLine = "Agent launched"

// Agent echoes queries to its output and mirrors them as response events
type Agent struct {
	*core.BaseAgent
}

var _ core.Agent = (*Agent)(nil)

// New creates an agent named name with default configuration
func New(name string, opts ...core.AgentOption) (*Agent, error) {
	base, err := core.NewBaseAgent(name, opts...)
	if err != nil {
		return nil, err
	}
	return &Agent{BaseAgent: base}, nil
}

// NewWithConfig creates an agent from configuration
func NewWithConfig(cfg *core.Config, opts ...core.AgentOption) (*Agent, error) {
	base, err := core.NewBaseAgentWithConfig(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Agent{BaseAgent: base}, nil
}

// Assist writes "Assisting with query: <query>" and emits the query as an
// ASSIST text event. Emission failures are logged, not returned.
func (a *Agent) Assist(ctx context.Context, query string) {
	a.Println("Assisting with query: " + query)

	if err := a.ResponseHandler.EmitTextBlock(ctx, AssistEventName, query); err != nil {
		a.Logger.Warn("Failed to emit assist event", map[string]interface{}{
			"error": err.Error(),
			"id":    a.GetID(),
		})
	}
}

// Launch writes "Agent launched"
func (a *Agent) Launch(ctx context.Context) {
	a.Println(launchedLine)

	a.Logger.Info("Agent launched", map[string]interface{}{
		"id":      a.GetID(),
		"name":    a.GetName(),
		"version": core.Version,
		"commit":  core.GitCommit,
	})
}
