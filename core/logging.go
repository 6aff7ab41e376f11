package core

// Logger is implemented by services/logger. Implementations may inspect args
// for an identity value (e.g. a user) to attach person tracking to reports.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// NopLogger discards everything; handy default for tests.
type NopLogger struct{}

var _ Logger = (*NopLogger)(nil)

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
