package core

import (
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel is the minimum severity a ProductionLogger writes
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// defaultComponent tags framework log lines until WithComponent is called
const defaultComponent = "framework/core"

// ProductionLogger writes structured logs through zap.
// Every line carries service and component fields. JSON output is for log
// aggregation, text output for local development.
type ProductionLogger struct {
	level       LogLevel
	serviceName string
	component   string
	format      string
	output      io.Writer
	file        *os.File // set when output is a file opened by this logger

	once sync.Once
	zl   *zap.Logger
}

// NewProductionLogger builds a logger from logging configuration.
// Output may be "stdout", "stderr" (default) or a file path. A file that
// cannot be opened falls back to stderr with a warning; Close releases it.
func NewProductionLogger(cfg LoggingConfig, serviceName string) Logger {
	out, file, err := openLogOutput(cfg.Output)
	p := &ProductionLogger{
		level:       parseLogLevel(cfg.Level),
		serviceName: serviceName,
		component:   defaultComponent,
		format:      normalizeFormat(cfg.Format),
		output:      out,
		file:        file,
	}
	if err != nil {
		p.Warn("Failed to open log output, writing to stderr", map[string]interface{}{
			"output": cfg.Output,
			"error":  err.Error(),
		})
	}
	return p
}

// NewProductionLoggerWithWriter builds a logger writing to w
func NewProductionLoggerWithWriter(cfg LoggingConfig, serviceName string, w io.Writer) Logger {
	return &ProductionLogger{
		level:       parseLogLevel(cfg.Level),
		serviceName: serviceName,
		component:   defaultComponent,
		format:      normalizeFormat(cfg.Format),
		output:      w,
	}
}

// WithComponent returns a copy of the logger tagged with component
func (p *ProductionLogger) WithComponent(component string) Logger {
	return &ProductionLogger{
		level:       p.level,
		serviceName: p.serviceName,
		component:   component,
		format:      p.format,
		output:      p.output,
		file:        p.file,
	}
}

func (p *ProductionLogger) Debug(msg string, fields map[string]interface{}) {
	p.log(LogLevelDebug, msg, fields)
}

func (p *ProductionLogger) Info(msg string, fields map[string]interface{}) {
	p.log(LogLevelInfo, msg, fields)
}

func (p *ProductionLogger) Warn(msg string, fields map[string]interface{}) {
	p.log(LogLevelWarn, msg, fields)
}

func (p *ProductionLogger) Error(msg string, fields map[string]interface{}) {
	p.log(LogLevelError, msg, fields)
}

// Sync flushes buffered log entries
func (p *ProductionLogger) Sync() error {
	return p.logger().Sync()
}

// Close flushes and closes the log file, if the logger opened one.
// Component loggers share the file, so close only the root logger.
func (p *ProductionLogger) Close() error {
	if p.file == nil {
		return nil
	}
	_ = p.logger().Sync()
	return p.file.Close()
}

func (p *ProductionLogger) log(level LogLevel, msg string, fields map[string]interface{}) {
	if level < p.level {
		return
	}

	zl := p.logger()
	zfields := toZapFields(fields)

	switch level {
	case LogLevelDebug:
		zl.Debug(msg, zfields...)
	case LogLevelInfo:
		zl.Info(msg, zfields...)
	case LogLevelWarn:
		zl.Warn(msg, zfields...)
	default:
		zl.Error(msg, zfields...)
	}
}

// logger lazily builds the zap logger so struct literals work in tests
func (p *ProductionLogger) logger() *zap.Logger {
	p.once.Do(p.build)
	return p.zl
}

func (p *ProductionLogger) build() {
	encCfg := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "message",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var enc zapcore.Encoder
	if p.format == "text" {
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	out := p.output
	if out == nil {
		out = os.Stderr
	}

	zc := zapcore.NewCore(enc, zapcore.AddSync(out), zapcore.DebugLevel)
	p.zl = zap.New(zc).With(
		zap.String("service", p.serviceName),
		zap.String("component", p.component),
	)
}

// toZapFields converts map fields in key order so output is stable
func toZapFields(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		switch v := fields[k].(type) {
		case error:
			out = append(out, zap.String(k, v.Error()))
		default:
			out = append(out, zap.Any(k, v))
		}
	}
	return out
}

func parseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

func normalizeFormat(format string) string {
	if strings.ToLower(format) == "text" {
		return "text"
	}
	return "json"
}

// openLogOutput resolves output to a writer. The file is non-nil only when
// a path was opened; on error the writer is stderr.
func openLogOutput(output string) (io.Writer, *os.File, error) {
	switch output {
	case "", "stderr":
		return os.Stderr, nil, nil
	case "stdout":
		return os.Stdout, nil, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return os.Stderr, nil, err
		}
		return f, f, nil
	}
}
