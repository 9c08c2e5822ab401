package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"spectra/cmd"
	"spectra/internal/analysis"
	"spectra/internal/audio"
	"spectra/internal/config"
	applog "spectra/internal/log"
	"spectra/internal/pipeline"
	"spectra/internal/shaper"
	"spectra/internal/transport"
	"spectra/internal/transport/udp"
	"spectra/pkg/build"
)

// main wires the pipeline together in three phases:
//
// 1. Startup (cold path): build info, config, PortAudio, CLI parsing,
// one-off commands.
//
// 2. Concurrent (hot path): capture stream callback feeding the clip, tick
// goroutine running transform + shaping, transports broadcasting frames.
//
// 3. Shutdown (cold path): stop ticks, stop capture, close transports.
func main() {
	// ==================== STARTUP PHASE ====================

	build.Initialize()

	if err := audio.Initialize(); err != nil {
		applog.Fatalf("%v", err)
	}
	defer audio.Terminate()

	cfg, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if cfg == nil {
		// Help or version output was requested.
		return
	}

	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}
	if cfg.Debug {
		applog.SetLevel(applog.LevelDebug)
	}

	if cfg.Command == "list" {
		if err := audio.ListDevices(); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}

	// ==================== CONCURRENT PHASE ====================

	capture, err := audio.NewCapture(cfg.Audio, cfg.Recording)
	if err != nil {
		applog.Fatalf("%v", err)
	}

	spectral, err := analysis.NewSpectral(cfg.Audio.ClipSize)
	if err != nil {
		applog.Fatalf("%v", err)
	}

	sh := shaper.FromSettings(shaper.Settings{
		Norm:           cfg.Shaper.Norm,
		FullNorm:       cfg.Shaper.FullNorm,
		NormScale:      cfg.Shaper.NormScale,
		Smooth:         cfg.Shaper.Smooth,
		FlashFlood:     cfg.Shaper.FlashFlood,
		MovingAvgRange: cfg.Shaper.MovingAvgRange,
	})

	publisher, err := buildPublisher(cfg)
	if err != nil {
		applog.Fatalf("%v", err)
	}

	coordinator, err := pipeline.NewCoordinator(capture, spectral, sh, publisher, cfg.Audio.TickInterval)
	if err != nil {
		applog.Fatalf("%v", err)
	}
	coordinator.Start()

	if cfg.Audio.InputDevice != config.MinDeviceID {
		if err := coordinator.SelectDevice(cfg.Audio.InputDevice); err != nil {
			applog.Errorf("%v", err)
			applog.Infof("Waiting in source selection; run '%s list' to see devices",
				build.GetBuildFlags().Name)
		}
	} else {
		applog.Infof("No device selected; pass --device or run '%s list'",
			build.GetBuildFlags().Name)
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	// ==================== SHUTDOWN PHASE ====================

	coordinator.Stop()
	coordinator.UnselectDevice()

	if err := capture.Close(); err != nil {
		applog.Errorf("Error closing capture: %v", err)
	}
	if err := publisher.Close(); err != nil {
		applog.Errorf("Error closing transports: %v", err)
	}
}

// buildPublisher assembles the configured transports into a single fanout.
func buildPublisher(cfg *config.Config) (*transport.Fanout, error) {
	publishers := []pipeline.Publisher{transport.NewLoggingPublisher()}

	if cfg.Transport.WSEnabled {
		publishers = append(publishers,
			transport.NewWebSocketPublisher(cfg.Transport.WSPort, cfg.Transport.SendInterval))
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return nil, err
		}
		interval := cfg.Transport.SendInterval
		if interval <= 0 {
			interval = 16 * time.Millisecond // ~60Hz is plenty for a datagram feed.
		}
		pub, err := udp.NewPublisher(sender, interval)
		if err != nil {
			return nil, err
		}
		publishers = append(publishers, pub)
	}

	return transport.NewFanout(publishers...), nil
}
