package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/arloliu/go-spimem/bench"
	"github.com/arloliu/go-spimem/logger"
	"github.com/arloliu/go-spimem/spidev"
	"github.com/arloliu/go-spimem/spimem"
	"github.com/arloliu/go-spimem/spimem/simpeer"
	"github.com/arloliu/go-spimem/telemetry"
)

// simDevice is the device key of the in-memory simulated peer.
const simDevice = "sim"

// app holds the state shared by the cobra commands and the interactive shell.
type app struct {
	cfg    Config
	device string
	reg    *spimem.Registry
	out    io.Writer
	logger logger.Logger
}

func newApp(cfg Config, sim bool, out io.Writer, l logger.Logger) (*app, error) {
	a := &app{
		cfg:    cfg,
		device: cfg.Device,
		out:    out,
		logger: l,
	}
	if sim {
		a.device = simDevice
	}

	opts := append(cfg.runnerOptions(), spimem.WithLogger(l))
	reg, err := spimem.NewRegistry(a.openBus, opts...)
	if err != nil {
		return nil, err
	}
	a.reg = reg

	return a, nil
}

func (a *app) openBus(key string) (spimem.Bus, error) {
	if key == simDevice {
		return simpeer.New(), nil
	}

	dev, err := spidev.Open(key, append(a.cfg.deviceOptions(), spidev.WithLogger(a.logger))...)
	if err != nil {
		return nil, err
	}

	return dev, nil
}

func (a *app) runner() (*spimem.Runner, error) {
	return a.reg.Get(a.device)
}

func (a *app) close() error {
	return a.reg.CloseAll()
}

func (a *app) status() error {
	r, err := a.runner()
	if err != nil {
		return err
	}

	st, err := r.Status()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "status 0x%02X %s\n", st.Byte(), st)

	return nil
}

func (a *app) read(addrArg, lenArg, expectArg string) error {
	addr, err := parseAddr(addrArg)
	if err != nil {
		return err
	}
	length, err := strconv.ParseUint(lenArg, 0, 16)
	if err != nil {
		return fmt.Errorf("invalid length %q: %w", lenArg, err)
	}

	r, err := a.runner()
	if err != nil {
		return err
	}

	var (
		data   []byte
		regErr bool
	)
	if expectArg != "" {
		expected, perr := parseHex(expectArg)
		if perr != nil {
			return perr
		}
		if len(expected) != int(length) {
			return fmt.Errorf("expected data has %d bytes, length is %d", len(expected), length)
		}
		data, regErr, err = r.ReadVerify(addr, expected)
	} else {
		data, regErr, err = r.Read(addr, int(length))
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "0x%04X: %s\n", addr, hex.EncodeToString(data))
	if regErr {
		fmt.Fprintln(a.out, "register error reported by peer")
	}

	return nil
}

func (a *app) write(addrArg, dataArg string) error {
	addr, err := parseAddr(addrArg)
	if err != nil {
		return err
	}
	data, err := parseHex(dataArg)
	if err != nil {
		return err
	}

	r, err := a.runner()
	if err != nil {
		return err
	}

	regErr, err := r.Write(addr, data)
	if err != nil {
		return err
	}
	if regErr {
		fmt.Fprintln(a.out, "register error reported by peer")
		return nil
	}
	fmt.Fprintf(a.out, "wrote %d bytes at 0x%04X\n", len(data), addr)

	return nil
}

func (a *app) resync(maxBytes int) error {
	r, err := a.runner()
	if err != nil {
		return err
	}

	st, err := r.Resync(maxBytes)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "resynced, cleared status %s\n", st)

	return nil
}

func (a *app) unsync() error {
	r, err := a.runner()
	if err != nil {
		return err
	}
	if err := r.Unsync(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "peer parser desynchronized")

	return nil
}

func (a *app) bench(ctx context.Context, bc BenchConfig) (bench.Result, error) {
	r, err := a.runner()
	if err != nil {
		return bench.Result{}, err
	}

	sink, err := a.telemetrySink()
	if err != nil {
		return bench.Result{}, err
	}
	defer sink.Close()

	loop, err := bench.New(r,
		bench.WithIterations(bc.Iterations),
		bench.WithReportEvery(bc.ReportEvery),
		bench.WithResync(bc.Resync),
		bench.WithTelemetry(sink, a.cfg.Telemetry.Session, a.cfg.Telemetry.Run),
		bench.WithLogger(a.logger),
	)
	if err != nil {
		return bench.Result{}, err
	}

	res, err := loop.Run(ctx)
	fmt.Fprintf(a.out, "%d passes, %d bytes in %s, %.0f KB/s, %d register errors\n",
		res.Passes, res.Bytes, res.Elapsed.Round(time.Millisecond), res.KBps(), res.RegisterErrors)

	return res, err
}

// telemetrySink builds the configured sinks. Without any remote sink the points
// go to the logger.
func (a *app) telemetrySink() (telemetry.Sink, error) {
	tc := a.cfg.Telemetry
	var sinks []telemetry.Sink

	if tc.InfluxURL != "" {
		s, err := telemetry.NewInfluxSink(telemetry.InfluxConfig{
			URL:    tc.InfluxURL,
			Token:  tc.InfluxToken,
			Org:    tc.InfluxOrg,
			Bucket: tc.InfluxBucket,
		}, telemetry.WithLogger(a.logger))
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if tc.MQTTURL != "" {
		s, err := telemetry.NewMQTTSink(tc.MQTTURL, telemetry.WithTopic(tc.MQTTTopic), telemetry.WithLogger(a.logger))
		if err != nil {
			return nil, errors.Join(err, telemetry.Multi(sinks...).Close())
		}
		sinks = append(sinks, s)
	}
	if len(sinks) == 0 {
		sinks = append(sinks, telemetry.NewLogSink(a.logger))
	}

	return telemetry.Multi(sinks...), nil
}

// parseAddr accepts decimal or 0x-prefixed hex addresses.
func parseAddr(s string) (int, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}

	return int(v), nil
}

// parseHex decodes a hex byte string. An optional 0x prefix and separators
// (space, colon, dash) are ignored.
func parseHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	s = strings.NewReplacer(" ", "", ":", "", "-", "").Replace(s)

	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex data: %w", err)
	}
	if len(b) == 0 {
		return nil, errors.New("invalid hex data: empty")
	}

	return b, nil
}
