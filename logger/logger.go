// Package logger is the key/value logging facade shared by the spimem packages.
//
// Components accept a Logger through their WithLogger options and fall back to the
// package default, which writes JSON through log/slog (or colored console output
// when SPIMEM_ENV=development). Levels map onto protocol events as follows:
//
//   - DebugLevel: every frame exchanged and every transaction state change.
//   - InfoLevel:  bench reports and telemetry points.
//   - WarnLevel:  transient peer faults that trigger a retry, exhausted poll budgets.
//   - ErrorLevel: bus failures and data-integrity faults.
//   - FatalLevel: unrecoverable CLI startup errors; exits the process.
package logger

// Level is a logging severity. Values match log/slog ordering divided by four.
type Level = int8

const (
	DebugLevel Level = iota - 1
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// Logger logs a message with alternating key/value pairs appended to any context
// attached through With.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	// Fatal logs at FatalLevel and exits with status 1, whatever the current level.
	Fatal(msg string, keysAndValues ...any)

	// With returns a child carrying keyValues on every message. Children share the
	// parent's level.
	With(keyValues ...any) Logger

	Level() Level
	SetLevel(level Level)
}
