package telemetry

import (
	"context"
	"sort"

	"github.com/arloliu/go-spimem/logger"
)

// LogSink writes points to a logger at info level.
type LogSink struct {
	logger logger.Logger
}

// NewLogSink creates a LogSink. A nil logger uses the default logger.
func NewLogSink(l logger.Logger) *LogSink {
	if l == nil {
		l = logger.GetLogger()
	}

	return &LogSink{logger: l}
}

// Record logs p with its fields in key order.
func (s *LogSink) Record(_ context.Context, p Point) error {
	keys := make([]string, 0, len(p.Fields))
	for k := range p.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kv := make([]any, 0, 4+2*len(keys))
	kv = append(kv, "session", p.Session, "run", p.Run)
	for _, k := range keys {
		kv = append(kv, k, p.Fields[k])
	}
	s.logger.Info("telemetry: point", kv...)

	return nil
}

// Close is a no-op.
func (s *LogSink) Close() error { return nil }
