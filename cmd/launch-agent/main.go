package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/itsneelabh/agentlaunch/core"
	"github.com/itsneelabh/agentlaunch/launcher"
	"github.com/itsneelabh/agentlaunch/telemetry"
)

// defaultQuery is the query the launch command assists with
const defaultQuery = "hello"

func main() {
	os.Exit(run(context.Background(), os.Stdout, os.Stderr))
}

// run builds the agent, launches it and answers one query.
// Agent output goes to stdout; logs, traces and errors go to stderr.
func run(ctx context.Context, stdout, stderr io.Writer) int {
	cfg, err := core.NewConfig(core.WithName(launcher.DefaultName))
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return 1
	}

	var logger core.Logger
	if cfg.Logging.Output == "" || cfg.Logging.Output == "stderr" {
		logger = core.NewProductionLoggerWithWriter(cfg.Logging, cfg.Name, stderr)
	} else {
		logger = core.NewProductionLogger(cfg.Logging, cfg.Name)
	}
	defer func() {
		if c, ok := logger.(io.Closer); ok {
			_ = c.Close()
		}
	}()

	tel, shutdown, err := telemetry.NewFromConfig(ctx, cfg.Telemetry, cfg.Name, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "telemetry error: %v\n", err)
		return 1
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			logger.Warn("Failed to shut down telemetry", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	agent, err := launcher.NewWithConfig(cfg,
		core.WithAgentLogger(logger),
		core.WithAgentTelemetry(tel),
		core.WithOutput(stdout),
	)
	if err != nil {
		fmt.Fprintf(stderr, "failed to create agent: %v\n", err)
		return 1
	}

	agent.Launch(ctx)
	agent.Assist(ctx, defaultQuery)

	if err := agent.Close(ctx); err != nil {
		logger.Warn("Failed to close agent", map[string]interface{}{
			"error": err.Error(),
			"id":    agent.GetID(),
		})
	}
	return 0
}
