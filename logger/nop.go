package logger

// nopLogger discards everything, including Fatal messages; it never exits.
type nopLogger struct {
	level Level
}

var _ Logger = (*nopLogger)(nil)

// NewNop returns a Logger that drops all messages.
func NewNop() Logger {
	return &nopLogger{level: FatalLevel}
}

func (*nopLogger) Debug(string, ...any) {}
func (*nopLogger) Info(string, ...any)  {}
func (*nopLogger) Warn(string, ...any)  {}
func (*nopLogger) Error(string, ...any) {}
func (*nopLogger) Fatal(string, ...any) {}

func (l *nopLogger) With(...any) Logger { return l }

func (l *nopLogger) Level() Level { return l.level }

func (l *nopLogger) SetLevel(level Level) { l.level = level }
