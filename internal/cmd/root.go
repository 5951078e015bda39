package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/trunkctl/tetrabase/internal/config"
	"github.com/trunkctl/tetrabase/internal/housekeeping"
	"github.com/trunkctl/tetrabase/internal/kv"
	"github.com/trunkctl/tetrabase/internal/lmac"
	"github.com/trunkctl/tetrabase/internal/mac"
	"github.com/trunkctl/tetrabase/internal/metrics"
	"github.com/trunkctl/tetrabase/internal/pprof"
	"github.com/trunkctl/tetrabase/internal/pubsub"
	"github.com/trunkctl/tetrabase/internal/radio"
	"github.com/trunkctl/tetrabase/internal/station"
	"github.com/trunkctl/tetrabase/internal/tdmatime"
	"github.com/USA-RedDragon/configulator"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

// noticeTopic is the pubsub channel hangtime and fragment-eviction
// cross-process notices are published on.
const noticeTopic = "tetrabase:cmce"

func NewCommand(version, commit string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tetrabase",
		Version: fmt.Sprintf("%s - %s", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		RunE:              runRoot,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}
	return cmd
}

func runRoot(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	fmt.Printf("tetrabase - %s (%s)\n", cmd.Annotations["version"], cmd.Annotations["commit"])

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	setupLogger(cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	startBackgroundServices(cfg)

	kvStore, err := kv.MakeKV(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to key-value store: %w", err)
	}
	defer func() {
		if err := kvStore.Close(); err != nil {
			slog.Error("Failed to close kv", "error", err)
		}
	}()

	pubsubClient, err := pubsub.MakePubSub(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to pubsub: %w", err)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			slog.Error("Failed to close pubsub", "error", err)
		}
	}()

	st, err := buildStation(cfg, pubsubClient)
	if err != nil {
		return fmt.Errorf("failed to build station: %w", err)
	}

	hk, err := housekeeping.New(st.GCFragments, st.SweepHangtime)
	if err != nil {
		return fmt.Errorf("failed to build housekeeping: %w", err)
	}
	if err := hk.Start(); err != nil {
		return fmt.Errorf("failed to start housekeeping: %w", err)
	}

	stationCtx, cancelStation := context.WithCancel(ctx)
	st.Start(stationCtx)
	go st.Run(stationCtx, tdmatime.New(1, 1, 1, 0))

	setupShutdownHandlers(cancelStation, st, hk)

	return nil
}

// buildStation wires the protocol core: bus, every layer entity, the UMAC
// scheduler seeded from the configured cell identity, and the LMAC
// boundary. No real RF front end is configured beyond radio.Loopback and
// radio.NullTransceiver; a deployment with real hardware supplies its own
// lmac.Encoder/Decoder/station.Transceiver here instead.
func buildStation(cfg *config.Config, ps pubsub.PubSub) (*station.Station, error) {
	m := metrics.NewMetrics()
	return station.New(station.Deps{
		CellConfig:     deriveCellConfig(cfg.Network),
		ScramblingCode: lmac.DeriveScramblingCode(uint32(cfg.Network.ColourCode), uint32(cfg.Network.MNC), uint32(cfg.Network.MCC)),
		Clock:          time.Now,
		Metrics:        m,
		VoiceBridge:    cfg.VoiceBridge,
		Encoder:        radio.Loopback{},
		Decoder:        radio.Loopback{},
		Transceiver:    radio.NullTransceiver{},
		PubSub:         ps,
		NoticeTopic:    noticeTopic,
	})
}

// channelSpacingHz is the standard TETRA channel raster; deployments on a
// non-standard raster would need a configurable spacing, which the config
// package does not yet expose.
const channelSpacingHz = 25000

// deriveCellConfig packs the broadcast radio parameters from Network into
// the compact fields MAC-SYSINFO carries. FrequencyBandAndOffset follows
// ETSI's 4-bit band / 2-bit offset-code packing; the offset code only
// distinguishes the sign of a nonzero offset, not its magnitude, since
// MAC-SYSINFO's offset field is itself just a multiplier selector.
func deriveCellConfig(n config.Network) mac.CellConfig {
	var offsetCode uint8
	switch {
	case n.FrequencyOffsetHz > 0:
		offsetCode = 1
	case n.FrequencyOffsetHz < 0:
		offsetCode = 2
	}
	return mac.CellConfig{
		ColourCode:             uint8(n.ColourCode),
		MainCarrier:            uint16(n.MainCarrierHz / channelSpacingHz),
		FrequencyBandAndOffset: uint8(n.Band&0x0F)<<2 | offsetCode,
		MCC:                    uint16(n.MCC),
		MNC:                    uint16(n.MNC),
		LocationArea:           uint16(n.LocationArea),
		LateEntrySupported:     n.LateEntrySupported,
	}
}

// loadConfig loads the configuration from context
func loadConfig(ctx context.Context) (*config.Config, error) {
	c, err := configulator.FromContext[config.Config](ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get config from context: %w", err)
	}

	cfg, err := c.LoadWithoutValidation()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// setupLogger configures the structured logger
func setupLogger(cfg *config.Config) {
	var logger *slog.Logger
	switch cfg.LogLevel {
	case config.LogLevelDebug:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelDebug}))
	case config.LogLevelInfo:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	case config.LogLevelWarn:
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelWarn}))
	case config.LogLevelError:
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelError}))
	default:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	}
	slog.SetDefault(logger)
}

// startBackgroundServices starts the metrics and pprof servers.
func startBackgroundServices(cfg *config.Config) {
	go func() {
		if err := metrics.CreateMetricsServer(cfg); err != nil {
			slog.Error("Failed to start metrics server", "error", err)
		}
	}()
	go func() {
		if err := pprof.CreatePProfServer(cfg); err != nil {
			slog.Error("Failed to start pprof server", "error", err)
		}
	}()
}

// setupShutdownHandlers waits for a termination signal, then stops the
// station's tick loop, voice-bridge connection, and housekeeping jobs
// concurrently, giving each a bounded window before returning regardless.
func setupShutdownHandlers(cancelStation context.CancelFunc, st *station.Station, hk *housekeeping.Housekeeping) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)

	sig := <-sigCh
	slog.Error("Shutting down due to signal", "signal", sig)

	wg := new(sync.WaitGroup)

	wg.Add(1)
	go func() {
		defer wg.Done()
		cancelStation()
		st.Stop()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hk.Stop(); err != nil {
			slog.Error("Failed to stop housekeeping", "error", err)
		}
	}()

	const timeout = 10 * time.Second
	c := make(chan struct{})
	go func() {
		defer close(c)
		wg.Wait()
	}()
	select {
	case <-c:
		slog.Info("All services stopped, shutting down gracefully")
	case <-time.After(timeout):
		slog.Error("Shutdown timed out, forcing exit")
	}
}
