// Command spidmx-monitor decodes a SPI-sampled DMX512 line and bridges
// it onto the network as sACN (E1.31), with a terminal dashboard for
// watching decode health live.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/edelmann/spidmx-monitor/internal/capture"
	"github.com/edelmann/spidmx-monitor/internal/dmxframe"
	"github.com/edelmann/spidmx-monitor/internal/sacn"
	"github.com/edelmann/spidmx-monitor/internal/spidmx"
	"github.com/edelmann/spidmx-monitor/internal/stats"
	"github.com/edelmann/spidmx-monitor/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
)

// config is read once at startup from the environment, the same
// envOr-style convention the rest of this corpus uses in place of a
// flag-parsing library.
type config struct {
	device          string
	simulate        bool
	universe        uint16
	sourceName      string
	publishInterval time.Duration
	chunkBytes      int
}

func loadConfig() config {
	return config{
		device:          envOr("SPIDMX_DEVICE", ""),
		simulate:        envOrBool("SPIDMX_SIMULATE", true),
		universe:        envOrUint16("SPIDMX_UNIVERSE", 1),
		sourceName:      envOr("SPIDMX_SOURCE_NAME", "spidmx-monitor"),
		publishInterval: envOrDuration("SPIDMX_PUBLISH_INTERVAL", 25*time.Millisecond),
		chunkBytes:      envOrInt("SPIDMX_CHUNK_BYTES", 4096),
	}
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envOrBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envOrInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrUint16(key string, def uint16) uint16 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 16)
	if err != nil {
		return def
	}
	return uint16(n)
}

func envOrDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		logger.Error("spidmx-monitor exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := loadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutdown signal received")
		cancel()
	}()

	source, err := newSource(cfg)
	if err != nil {
		return fmt.Errorf("configure capture source: %w", err)
	}

	frame := dmxframe.New()
	tracker := stats.NewTracker()

	var cid [16]byte
	if _, err := rand.Read(cid[:]); err != nil {
		return fmt.Errorf("generate source CID: %w", err)
	}

	publisher := sacn.NewPublisher(frame, cfg.universe, cfg.sourceName, cfg.publishInterval)
	publisher.CID = cid

	// parser is declared before assignment so its completion callback,
	// which only ever runs during a call to parser.Parse, can read back
	// ChannelCount for that same call.
	var parser *spidmx.Parser
	parser = spidmx.NewParser(frame, func() {
		frame.MarkComplete()
		tracker.RecordComplete(parser.ChannelCount() != 511)
	})

	var currentState atomic.Int32
	stateFn := func() spidmx.State { return spidmx.State(currentState.Load()) }

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return runCapture(gctx, source, parser, tracker, &currentState)
	})

	group.Go(func() error {
		return publisher.Run(gctx)
	})

	group.Go(func() error {
		model := tui.NewModel(frame, tracker, publisher, stateFn, cfg.universe)
		program := tea.NewProgram(model, tea.WithAltScreen())
		go func() {
			<-gctx.Done()
			program.Quit()
		}()
		_, err := program.Run()
		cancel()
		return err
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newSource(cfg config) (capture.Source, error) {
	if cfg.simulate || cfg.device == "" {
		slog.Info("using synthetic capture source", "universe", cfg.universe)
		var demo [512]byte
		for i := range demo {
			demo[i] = byte(i)
		}
		return capture.NewSimulator(demo, capture.DefaultEncodeOptions(), cfg.chunkBytes), nil
	}

	// No SPI backend ships with this bridge: every example retrieved for
	// this project stops at the bus-handle interface
	// (capture.SPIHandle), never a concrete kernel driver. Wiring
	// SPIDMX_DEVICE to a real bus is left to a platform-specific
	// capture.SPIHandle implementation outside this module.
	return nil, fmt.Errorf("no SPI backend available for device %q; set SPIDMX_SIMULATE=true", cfg.device)
}

// runCapture drives the capture->parser pipeline until ctx is
// cancelled. A relock is counted whenever the previous chunk left the
// parser mid-frame: Parse always resets to StateWaitForBreak on the
// next call, so any such chunk boundary forces the decoder to
// resynchronise from scratch.
func runCapture(ctx context.Context, source capture.Source, parser *spidmx.Parser, tracker *stats.Tracker, currentState *atomic.Int32) error {
	wasMidFrame := false
	for {
		if ctx.Err() != nil {
			return nil
		}

		chunk, err := source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read capture chunk: %w", err)
		}

		parser.Parse(chunk.Data)

		if wasMidFrame {
			tracker.RecordRelock()
		}
		wasMidFrame = parser.State() >= spidmx.StateInDataStartbit
		currentState.Store(int32(parser.State()))
	}
}
