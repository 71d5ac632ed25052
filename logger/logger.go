// Package logger defines the structured logging surface used across the
// payment stack. Components accept the Logger interface so callers can plug
// in zap in production and the no-op logger in tests.
package logger

// Logger is a leveled, structured logger. Fields carry request-scoped
// context such as the payer address or transaction hash.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// NoopLogger discards every log call.
type NoopLogger struct{}

func (NoopLogger) Debug(string, map[string]any) {}
func (NoopLogger) Info(string, map[string]any)  {}
func (NoopLogger) Warn(string, map[string]any)  {}
func (NoopLogger) Error(string, map[string]any) {}
