package telemetry

import (
	"context"
	"errors"
	"strconv"
	"sync"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/arloliu/go-spimem/logger"
)

// InfluxConfig addresses an InfluxDB 2.x bucket.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// InfluxSink writes points through the non-blocking InfluxDB write API. Writes are
// batched in the background; failures are logged, never returned from Record.
type InfluxSink struct {
	client influxdb2.Client
	write  api.WriteAPI
	logger logger.Logger

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInfluxSink creates an InfluxSink. No connection is made until the first batch
// is flushed.
func NewInfluxSink(cfg InfluxConfig, opts ...Option) (*InfluxSink, error) {
	if cfg.URL == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, errors.New("telemetry: influx url, org and bucket are required")
	}

	o := newOptions(opts)
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(o.batchSize).
			SetFlushInterval(uint(o.flushInterval.Milliseconds())),
	)

	write := client.WriteAPI(cfg.Org, cfg.Bucket)
	// Errors must be taken before the first write; the client clears the field on Close.
	errCh := write.Errors()

	s := &InfluxSink{
		client: client,
		write:  write,
		logger: o.logger.With("sink", "influx", "bucket", cfg.Bucket),
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.drainErrors(errCh)

	return s, nil
}

func (s *InfluxSink) drainErrors(errCh <-chan error) {
	defer s.wg.Done()

	for {
		select {
		case err, ok := <-errCh:
			if !ok {
				return
			}
			s.logger.Warn("telemetry: influx write failed", "error", err)
		case <-s.done:
			return
		}
	}
}

// Record queues p for writing.
func (s *InfluxSink) Record(ctx context.Context, p Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fields := make(map[string]any, len(p.Fields))
	for k, v := range p.Fields {
		fields[k] = v
	}
	s.write.WritePoint(influxdb2.NewPoint(
		p.Session,
		map[string]string{"run": strconv.Itoa(p.Run)},
		fields,
		p.Time,
	))

	return nil
}

// Flush forces queued points to be written.
func (s *InfluxSink) Flush() {
	s.write.Flush()
}

// Close flushes queued points and releases the client.
func (s *InfluxSink) Close() error {
	s.closeOnce.Do(func() {
		s.write.Flush()
		s.client.Close()
		close(s.done)
		s.wg.Wait()
	})

	return nil
}
