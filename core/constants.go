package core

import "time"

// Environment Variables
const (
	// Agent
	EnvAgentName   = "AGENT_NAME"
	EnvIDGenerator = "AGENT_ID_GENERATOR"

	// Hook
	EnvHookProvider  = "AGENT_HOOK_PROVIDER"
	EnvAgentRedisURL = "AGENT_REDIS_URL"
	EnvRedisURL      = "REDIS_URL" // fallback shared with other services
	EnvRedisDB       = "AGENT_REDIS_DB"
	EnvHookNamespace = "AGENT_HOOK_NAMESPACE"
	EnvHookTTL       = "AGENT_HOOK_TTL"

	// Logging
	EnvLogLevel  = "AGENT_LOG_LEVEL"
	EnvLogFormat = "AGENT_LOG_FORMAT"
	EnvLogOutput = "AGENT_LOG_OUTPUT"

	// Telemetry
	EnvTelemetryEnabled         = "AGENT_TELEMETRY_ENABLED"
	EnvTelemetryExporter        = "AGENT_TELEMETRY_EXPORTER"
	EnvTelemetryServiceName     = "AGENT_TELEMETRY_SERVICE_NAME"
	EnvOTELServiceName          = "OTEL_SERVICE_NAME"
	EnvTelemetryEndpoint        = "AGENT_TELEMETRY_ENDPOINT"
	EnvOTELEndpoint             = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvTelemetryMetricsEndpoint = "AGENT_TELEMETRY_METRICS_ENDPOINT"
	EnvTelemetryInsecure        = "AGENT_TELEMETRY_INSECURE"
)

// Hook Defaults
const (
	// DefaultHookNamespace prefixes every Redis event list key
	// Format: <namespace>:<agent-id>
	// Example: agentlaunch:events:01J9Z3V8K6Q2M4N5P7R8S9T0VW
	DefaultHookNamespace = "agentlaunch:events"

	// DefaultHookTTL is how long a Redis event list lives after its last write
	DefaultHookTTL = time.Hour
)
