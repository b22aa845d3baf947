package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/gregLibert/kiosk-reader/pkg/config"
	"github.com/gregLibert/kiosk-reader/pkg/lookup"
	"github.com/gregLibert/kiosk-reader/pkg/metrics"
	"github.com/gregLibert/kiosk-reader/pkg/pcsc"
	"github.com/gregLibert/kiosk-reader/pkg/reader"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("kiosk stopped", "error", err)
		os.Exit(1)
	}
}

// =========================================================================
// Kiosk loop
// =========================================================================

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	readerName, err := pickReader(cfg)
	if err != nil {
		return err
	}
	fmt.Printf(">> Using reader: %s\n", readerName)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metrics.Handler(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown", "error", err)
			}
		}()
		logger.Info("serving metrics", "addr", cfg.MetricsAddr)
	}

	var patients *lookup.Client
	if cfg.LookupURL != "" {
		patients, err = lookup.New(cfg.LookupURL, lookup.WithLogger(logger))
		if err != nil {
			return err
		}
	}

	opts := append(cfg.EngineOptions(), reader.WithLogger(logger), reader.WithMetrics(m))
	engine := reader.New(opts...)

	for {
		fmt.Println("\n>> Waiting for a card...")
		if err := pcsc.WaitForCard(ctx, readerName); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		res := engine.ReadIdentity(ctx, pcsc.NewCard(readerName))
		printResult(res)

		if patients != nil {
			showPatient(ctx, patients, res, logger)
		}

		if cfg.Once {
			return nil
		}

		if err := pcsc.WaitForRemoval(ctx, readerName); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// =========================================================================
// Helper Functions
// =========================================================================

// pickReader resolves the configured reader, by name or by index.
func pickReader(cfg config.Config) (string, error) {
	if cfg.ReaderName != "" {
		return cfg.ReaderName, nil
	}

	readers, err := pcsc.Readers()
	if err != nil {
		return "", err
	}
	if cfg.ReaderIndex >= len(readers) {
		return "", fmt.Errorf("reader index %d out of range (%d readers: %s)",
			cfg.ReaderIndex, len(readers), strings.Join(readers, ", "))
	}
	return readers[cfg.ReaderIndex], nil
}

func printResult(res *reader.CardReadResult) {
	fmt.Println("\n=============================================")
	fmt.Printf(" CARD READ in %s (session %s)\n", res.Elapsed.Round(time.Millisecond), res.SessionID)
	fmt.Println("=============================================")

	if res.Empty() {
		fmt.Println(">> No identity data found on this card.")
	}

	field := func(label, v string) {
		if v != "" {
			fmt.Printf("   %-18s %s\n", label+":", v)
		}
	}
	field("Card ID", res.CardID)
	field("Holder Name", res.HolderName)
	field("Expiry", res.Expiry)
	field("Application", res.ApplicationLabel)
	field("PAN", res.PAN)

	keys := make([]string, 0, len(res.Additional))
	for k := range res.Additional {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		field(k, res.Additional[k])
	}

	fmt.Println("\n   Exchanges:")
	for _, line := range res.RawData {
		fmt.Printf("   - %s\n", line)
	}
}

func showPatient(ctx context.Context, patients *lookup.Client, res *reader.CardReadResult, logger *slog.Logger) {
	if res.CardID == "" {
		return
	}

	p, err := patients.Patient(ctx, res.CardID)
	switch {
	case errors.Is(err, lookup.ErrPatientNotFound):
		fmt.Println("\n>> Card not registered with the records service.")
		return
	case err != nil:
		logger.Warn("patient lookup failed", "card_id", res.CardID, "error", err)
		return
	}

	fmt.Println("\n---------------------------------------------")
	fmt.Printf(" PATIENT %s\n", p.ID)
	fmt.Println("---------------------------------------------")
	fmt.Printf("   Name:        %s\n", p.Name)
	fmt.Printf("   Born:        %s\n", p.DateOfBirth)
	fmt.Printf("   Sex:         %s\n", p.Sex)
	fmt.Printf("   Blood group: %s (genotype %s)\n", p.BloodGroup, p.Genotype)
	fmt.Printf("   Allergies:   %s\n", strings.Join(p.Allergies, ", "))
	fmt.Printf("   Medications: %s\n", strings.Join(p.Medications, ", "))
	fmt.Printf("   Emergency:   %s\n", p.EmergencyContact)
}
