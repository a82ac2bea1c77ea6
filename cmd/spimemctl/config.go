package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/go-spimem/spidev"
	"github.com/arloliu/go-spimem/spimem"
)

// Config is the resolved spimemctl configuration.
type Config struct {
	Device         string
	SpeedHz        uint32
	Mode           uint8
	BitsPerWord    uint8
	PollLimit      int
	PollInterval   time.Duration
	SettleTime     time.Duration
	PeerBuffer     int
	InitRetryLimit int
	DataRetryLimit int
	LogLevel       string
	Telemetry      TelemetryConfig
	Bench          BenchConfig
}

// TelemetryConfig selects the telemetry sinks used by the bench command.
type TelemetryConfig struct {
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
	MQTTURL      string
	MQTTTopic    string
	Session      string
	Run          int
}

// BenchConfig holds bench loop defaults.
type BenchConfig struct {
	Iterations  int
	ReportEvery int
	Resync      bool
}

func defaultConfig() Config {
	return Config{
		Device:       "/dev/spidev0.0",
		SpeedHz:      spidev.DefaultSpeedHz,
		BitsPerWord:  spidev.DefaultBitsPerWord,
		PollLimit:    spimem.DefaultPollLimit,
		PollInterval: spimem.DefaultPollInterval,
		SettleTime:   spimem.DefaultSettleTime,
		PeerBuffer:   spimem.DefaultPeerBufferSize,
		LogLevel:     "info",
		Telemetry: TelemetryConfig{
			Session: "dev",
			Run:     1,
		},
		Bench: BenchConfig{
			ReportEvery: 100,
			Resync:      true,
		},
	}
}

// fileConfig is the on-disk layout. Unset keys keep their defaults.
type fileConfig struct {
	Device         *string          `yaml:"device" toml:"device"`
	SpeedHz        *uint32          `yaml:"speed_hz" toml:"speed_hz"`
	Mode           *uint8           `yaml:"mode" toml:"mode"`
	BitsPerWord    *uint8           `yaml:"bits_per_word" toml:"bits_per_word"`
	PollLimit      *int             `yaml:"poll_limit" toml:"poll_limit"`
	PollInterval   *string          `yaml:"poll_interval" toml:"poll_interval"`
	SettleTime     *string          `yaml:"settle_time" toml:"settle_time"`
	PeerBuffer     *int             `yaml:"peer_buffer" toml:"peer_buffer"`
	InitRetryLimit *int             `yaml:"init_retry_limit" toml:"init_retry_limit"`
	DataRetryLimit *int             `yaml:"data_retry_limit" toml:"data_retry_limit"`
	LogLevel       *string          `yaml:"log_level" toml:"log_level"`
	Telemetry      *telemetryFile   `yaml:"telemetry" toml:"telemetry"`
	Bench          *benchFileConfig `yaml:"bench" toml:"bench"`
}

type telemetryFile struct {
	InfluxURL    *string `yaml:"influx_url" toml:"influx_url"`
	InfluxToken  *string `yaml:"influx_token" toml:"influx_token"`
	InfluxOrg    *string `yaml:"influx_org" toml:"influx_org"`
	InfluxBucket *string `yaml:"influx_bucket" toml:"influx_bucket"`
	MQTTURL      *string `yaml:"mqtt_url" toml:"mqtt_url"`
	MQTTTopic    *string `yaml:"mqtt_topic" toml:"mqtt_topic"`
	Session      *string `yaml:"session" toml:"session"`
	Run          *int    `yaml:"run" toml:"run"`
}

type benchFileConfig struct {
	Iterations  *int  `yaml:"iterations" toml:"iterations"`
	ReportEvery *int  `yaml:"report_every" toml:"report_every"`
	Resync      *bool `yaml:"resync" toml:"resync"`
}

// loadConfig reads path over the defaults. Files ending in .toml are TOML, anything
// else is YAML. Unknown keys are rejected.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("load config: unknown keys %v", undecoded)
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
	}

	if err := raw.overlay(&cfg); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}

	return cfg, nil
}

func (f *fileConfig) overlay(cfg *Config) error {
	set(&cfg.Device, f.Device)
	set(&cfg.SpeedHz, f.SpeedHz)
	set(&cfg.Mode, f.Mode)
	set(&cfg.BitsPerWord, f.BitsPerWord)
	set(&cfg.PollLimit, f.PollLimit)
	set(&cfg.PeerBuffer, f.PeerBuffer)
	set(&cfg.InitRetryLimit, f.InitRetryLimit)
	set(&cfg.DataRetryLimit, f.DataRetryLimit)
	set(&cfg.LogLevel, f.LogLevel)

	if err := setDuration(&cfg.PollInterval, f.PollInterval, "poll_interval"); err != nil {
		return err
	}
	if err := setDuration(&cfg.SettleTime, f.SettleTime, "settle_time"); err != nil {
		return err
	}

	if t := f.Telemetry; t != nil {
		set(&cfg.Telemetry.InfluxURL, t.InfluxURL)
		set(&cfg.Telemetry.InfluxToken, t.InfluxToken)
		set(&cfg.Telemetry.InfluxOrg, t.InfluxOrg)
		set(&cfg.Telemetry.InfluxBucket, t.InfluxBucket)
		set(&cfg.Telemetry.MQTTURL, t.MQTTURL)
		set(&cfg.Telemetry.MQTTTopic, t.MQTTTopic)
		set(&cfg.Telemetry.Session, t.Session)
		set(&cfg.Telemetry.Run, t.Run)
	}
	if b := f.Bench; b != nil {
		set(&cfg.Bench.Iterations, b.Iterations)
		set(&cfg.Bench.ReportEvery, b.ReportEvery)
		set(&cfg.Bench.Resync, b.Resync)
	}

	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, key string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(*v))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d

	return nil
}

// runnerOptions converts the protocol settings into runner options.
func (c Config) runnerOptions() []spimem.Option {
	return []spimem.Option{
		spimem.WithPollLimit(c.PollLimit),
		spimem.WithPollInterval(c.PollInterval),
		spimem.WithSettleTime(c.SettleTime),
		spimem.WithPeerBufferSize(c.PeerBuffer),
		spimem.WithInitRetryLimit(c.InitRetryLimit),
		spimem.WithDataRetryLimit(c.DataRetryLimit),
	}
}

// deviceOptions converts the bus settings into spidev options.
func (c Config) deviceOptions() []spidev.Option {
	return []spidev.Option{
		spidev.WithSpeed(c.SpeedHz),
		spidev.WithMode(spidev.Mode(c.Mode)),
		spidev.WithBitsPerWord(c.BitsPerWord),
	}
}
