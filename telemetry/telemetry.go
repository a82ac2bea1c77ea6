package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/arloliu/go-spimem/logger"
)

// DefaultSession is the session name used when none is configured.
const DefaultSession = "dev"

// Point is one telemetry sample. Session becomes the measurement name, Run a tag.
type Point struct {
	Session string
	Run     int
	Time    time.Time
	Fields  map[string]float64
}

// NewPoint creates a Point stamped with the current UTC time.
func NewPoint(session string, run int, fields map[string]float64) Point {
	if session == "" {
		session = DefaultSession
	}

	return Point{
		Session: session,
		Run:     run,
		Time:    time.Now().UTC(),
		Fields:  fields,
	}
}

// Sink receives points. Record must not block on network round trips longer than
// the sink's own timeout.
type Sink interface {
	Record(ctx context.Context, p Point) error
	Close() error
}

type options struct {
	logger         logger.Logger
	clientID       string
	topic          string
	qos            byte
	publishTimeout time.Duration
	batchSize      uint
	flushInterval  time.Duration
}

// Option configures a sink.
type Option func(*options)

func newOptions(opts []Option) *options {
	o := &options{
		logger:         logger.GetLogger(),
		publishTimeout: 2 * time.Second,
		batchSize:      100,
		flushInterval:  time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClientID overrides the MQTT client id derived from the machine id.
func WithClientID(id string) Option {
	return func(o *options) { o.clientID = id }
}

// WithTopic overrides the MQTT topic prefix taken from the broker URL path.
func WithTopic(topic string) Option {
	return func(o *options) { o.topic = topic }
}

// WithQoS sets the MQTT publish QoS, 0 to 2.
func WithQoS(qos byte) Option {
	return func(o *options) {
		if qos <= 2 {
			o.qos = qos
		}
	}
}

// WithPublishTimeout bounds how long an MQTT Record waits for the publish to complete.
func WithPublishTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.publishTimeout = d
		}
	}
}

// WithBatchSize sets the InfluxDB write batch size.
func WithBatchSize(n uint) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithFlushInterval sets the InfluxDB flush interval.
func WithFlushInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.flushInterval = d
		}
	}
}

// multiSink fans out to several sinks.
type multiSink []Sink

// Multi returns a Sink recording every point to each of sinks. Errors are joined;
// one failing sink does not stop the others.
func Multi(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}

	return out
}

func (m multiSink) Record(ctx context.Context, p Point) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (m multiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
