package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rovercam/go-rover/internal/config"
	"github.com/rovercam/go-rover/internal/log"
	"github.com/rovercam/go-rover/pkg/camera"
	"github.com/rovercam/go-rover/pkg/pid"
	"github.com/rovercam/go-rover/pkg/rover"
	"github.com/rovercam/go-rover/pkg/telemetry"
	"github.com/rovercam/go-rover/pkg/web"
	"github.com/rovercam/go-rover/pkg/wheel"
)

func main() {
	configPath := flag.String("config", "rover.yaml", "Path to yaml config")
	simulate := flag.Bool("sim", true, "Drive simulated wheels instead of hardware")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	log.Init(cfg.Log.Level)

	rv := rover.New(rover.Options{
		Logger:         log.With("component", "rover"),
		CommandTimeout: cfg.Rover.CommandTimeout.D(),
	})

	tuning := pid.Tuning{
		MaxSpeed: cfg.PID.MaxSpeed,
		Kp:       cfg.PID.Kp,
		Ki:       cfg.PID.Ki,
		Kd:       cfg.PID.Kd,
	}

	// Hardware motor/encoder drivers live outside this process; without
	// them we attach a simulated plant so the whole stack is drivable.
	var sims []*wheel.SimWheel
	var left, right *wheel.Wheel
	if *simulate {
		simLeft := wheel.NewSimWheel(200, 150*time.Millisecond)
		simRight := wheel.NewSimWheel(200, 150*time.Millisecond)
		sims = []*wheel.SimWheel{simLeft, simRight}
		left = wheel.New(simLeft, simLeft, tuning)
		right = wheel.New(simRight, simRight, tuning)
	} else {
		fmt.Fprintln(os.Stderr, "Error: no hardware wheel driver configured; run with -sim")
		os.Exit(1)
	}

	if err := rv.Attach(left, right); err != nil {
		fmt.Fprintf(os.Stderr, "Error attaching wheels: %v\n", err)
		os.Exit(1)
	}
	defer rv.Detach()

	// Record the configured tuning so /status reports it.
	if err := rv.SetSpeedControl(tuning.MaxSpeed, tuning.Kp, tuning.Ki, tuning.Kd); err != nil {
		fmt.Fprintf(os.Stderr, "Error setting speed control: %v\n", err)
		os.Exit(1)
	}

	var frames camera.FrameSource
	if cfg.Camera.Enabled {
		frames = camera.NewTestPattern(320, 240)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	server := web.NewServer(addr, rv, frames, cfg.Camera.FrameInterval.D())

	var publisher *telemetry.Publisher
	if cfg.Telemetry.Enabled {
		publisher, err = telemetry.Connect(telemetry.Options{
			Broker:   cfg.Telemetry.Broker,
			ClientID: cfg.Telemetry.ClientID,
			Topic:    cfg.Telemetry.Topic,
		})
		if err != nil {
			log.Warn("telemetry disabled", "error", err)
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}

	rv.OnTelemetry(func(state rover.State) {
		server.PublishTelemetry(state)
		if publisher != nil {
			publisher.Publish(state)
		}
	})

	log.Info("go-rover starting",
		"addr", addr,
		"tick", cfg.Rover.TickInterval.D(),
		"watchdog", cfg.Rover.CommandTimeout.D(),
		"sim", *simulate)

	// Control loop: step the simulated plants (if any) and poll the rover.
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.Rover.TickInterval.D())
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				rv.Halt()
				return
			case now := <-ticker.C:
				for _, s := range sims {
					s.Step(now)
				}
				rv.Poll(now)
			}
		}
	}()

	go func() {
		if err := server.Start(); err != nil {
			log.Error("web server stopped", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	close(stop)
	if err := server.Shutdown(); err != nil {
		log.Error("shutdown error", "error", err)
	}
}
