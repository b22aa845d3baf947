// Package config reads the kiosk settings from KIOSK_* environment
// variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gregLibert/kiosk-reader/pkg/reader"
)

// Config captures everything main needs to run the kiosk.
type Config struct {
	// ReaderName selects a PC/SC reader by name; when empty ReaderIndex
	// picks one from the listed readers.
	ReaderName  string
	ReaderIndex int

	Candidates [][]byte
	Permits    int

	OperationTimeout time.Duration
	AwaitTimeout     time.Duration
	ConnectTimeout   time.Duration
	CloseTimeout     time.Duration

	// LookupURL is the patient service root. Empty disables lookups.
	LookupURL string
	// MetricsAddr is where /metrics is served. Empty disables it.
	MetricsAddr string

	LogLevel slog.Level
	// Once stops after the first card instead of serving taps forever.
	Once bool
}

// FromEnv builds a Config from environment variables so main stays lean.
// Unset variables keep the engine defaults; malformed ones are reported
// together.
func FromEnv() (Config, error) {
	cfg := Config{
		ReaderName:       os.Getenv("KIOSK_READER"),
		Candidates:       reader.DefaultCandidates,
		Permits:          reader.DefaultPermits,
		OperationTimeout: reader.DefaultOperationTimeout,
		AwaitTimeout:     2 * reader.DefaultOperationTimeout,
		ConnectTimeout:   reader.DefaultConnectTimeout,
		CloseTimeout:     reader.DefaultCloseTimeout,
		LookupURL:        os.Getenv("KIOSK_LOOKUP_URL"),
		MetricsAddr:      ":9090",
		LogLevel:         slog.LevelInfo,
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	collect(intVar("KIOSK_READER_INDEX", &cfg.ReaderIndex))
	collect(intVar("KIOSK_PERMITS", &cfg.Permits))
	collect(durationVar("KIOSK_OP_TIMEOUT", &cfg.OperationTimeout))
	collect(durationVar("KIOSK_CONNECT_TIMEOUT", &cfg.ConnectTimeout))
	collect(durationVar("KIOSK_CLOSE_TIMEOUT", &cfg.CloseTimeout))
	collect(boolVar("KIOSK_ONCE", &cfg.Once))

	// The await budget follows the operation timeout unless set explicitly.
	cfg.AwaitTimeout = 2 * cfg.OperationTimeout
	collect(durationVar("KIOSK_AWAIT_TIMEOUT", &cfg.AwaitTimeout))

	if v, ok := os.LookupEnv("KIOSK_METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}

	if v := os.Getenv("KIOSK_AIDS"); v != "" {
		aids, err := parseAIDs(v)
		collect(err)
		if err == nil {
			cfg.Candidates = aids
		}
	}

	if v := os.Getenv("KIOSK_LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			collect(fmt.Errorf("KIOSK_LOG_LEVEL: %w", err))
		}
	}

	if cfg.Permits <= 0 {
		collect(fmt.Errorf("KIOSK_PERMITS: must be positive, got %d", cfg.Permits))
	}
	if cfg.ReaderIndex < 0 {
		collect(fmt.Errorf("KIOSK_READER_INDEX: must not be negative, got %d", cfg.ReaderIndex))
	}

	return cfg, errors.Join(errs...)
}

// EngineOptions turns the session settings into reader options.
func (c Config) EngineOptions() []reader.Option {
	return []reader.Option{
		reader.WithCandidates(c.Candidates...),
		reader.WithPermits(c.Permits),
		reader.WithOperationTimeout(c.OperationTimeout),
		reader.WithAwaitTimeout(c.AwaitTimeout),
		reader.WithConnectTimeout(c.ConnectTimeout),
		reader.WithCloseTimeout(c.CloseTimeout),
	}
}

// parseAIDs reads a comma separated list of hex AIDs.
func parseAIDs(v string) ([][]byte, error) {
	var aids [][]byte
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		aid, err := hex.DecodeString(part)
		if err != nil {
			return nil, fmt.Errorf("KIOSK_AIDS: %q: %w", part, err)
		}
		if len(aid) < 5 || len(aid) > 16 {
			return nil, fmt.Errorf("KIOSK_AIDS: %q: AID must be 5 to 16 bytes", part)
		}
		aids = append(aids, aid)
	}
	if len(aids) == 0 {
		return nil, errors.New("KIOSK_AIDS: no AID given")
	}
	return aids, nil
}

func intVar(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func durationVar(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s: must be positive, got %s", key, d)
	}
	*dst = d
	return nil
}

func boolVar(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}
