package main

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/cjeanneret/boothcam/internal/booth"
	"github.com/cjeanneret/boothcam/internal/config"
	"github.com/cjeanneret/boothcam/internal/debug"
	"github.com/cjeanneret/boothcam/internal/device"
	"github.com/cjeanneret/boothcam/internal/device/gphoto2"
	"github.com/cjeanneret/boothcam/internal/device/simulated"
	"github.com/cjeanneret/boothcam/internal/hw/gpio"
	"github.com/cjeanneret/boothcam/internal/hw/release"
	"github.com/cjeanneret/boothcam/internal/logic/capture"
	"github.com/cjeanneret/boothcam/internal/notify"
	"github.com/cjeanneret/boothcam/internal/web"
)

func serveCmd(stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP daemon for a photobooth front end",
		Description: `Serves the camera over HTTP:

  GET    /api/health            liveness and backend
  POST   /api/capture           take a picture (409 while another one runs)
  GET    /api/camera/config     camera settings
  GET    /api/status            daemon status
  GET    /api/status/stream     narration as server-sent events
  GET    /api/photo/{filename}  download a captured file
  DELETE /api/photo/{filename}  remove a captured file
  GET    /metrics               Prometheus metrics`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address (default :3000)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd, stderr)
			if err != nil {
				return err
			}
			return serve(ctx, cfg, stderr)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, stderr io.Writer) error {
	broadcaster := web.NewStatusBroadcaster()
	debug.SetOutput(io.MultiWriter(stderr, web.BroadcastWriter(broadcaster)))

	debug.Step(1, "Connecting notifier")
	notifier := newNotifier(cfg)

	debug.Step(2, "Preparing camera backend")
	svc, cleanup, err := newService(cfg, notifier, true)
	if err != nil {
		notifier.Close()
		return err
	}
	defer cleanup()

	debug.Step(3, "Starting HTTP server")
	srv := web.NewServer(web.Options{
		Addr:      cfg.Server.Addr,
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
	}, web.NewHandlers(svc, broadcaster, web.Info{Service: name, Version: version}))

	debug.Summary(fmt.Sprintf("%s %s listening on %s", name, version, cfg.Server.Addr))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		return notifier.Close()
	})
	return g.Wait()
}

// newNotifier connects to MQTT when enabled. A broker that cannot be reached
// is reported and replaced by a no-op notifier.
func newNotifier(cfg *config.Config) notify.Publisher {
	if !cfg.MQTT.Enabled {
		return notify.Noop{}
	}
	m, err := notify.Connect(cfg.MQTT, cfg.MQTTConnectTimeout())
	if err != nil {
		debug.Warn("mqtt: %v; capture results will not be published", err)
		return notify.Noop{}
	}
	debug.Value("MQTT topic prefix", cfg.MQTT.TopicPrefix)
	return m
}

// newService builds the backend, the optional wired trigger and the booth
// service. The breaker only guards long-running daemons.
func newService(cfg *config.Config, n notify.Publisher, daemon bool) (*booth.Service, func(), error) {
	lib, err := newLibrary(cfg)
	if err != nil {
		return nil, nil, err
	}

	trig, closeTrigger, err := newTrigger(cfg)
	if err != nil {
		return nil, nil, err
	}

	svc := booth.New(lib, booth.Options{
		OutputDir: cfg.Camera.OutputDir,
		Policy: capture.Policy{
			PollTimeout:  cfg.EventTimeout(),
			PollAttempts: cfg.Camera.EventAttempts,
		},
		Trigger: trig,
		Breaker: booth.BreakerConfig{
			Enabled:          daemon && cfg.Server.Breaker.Enabled,
			FailureThreshold: cfg.Server.Breaker.FailureThreshold,
			OpenTimeout:      cfg.BreakerOpenTimeout(),
		},
		Notifier: n,
	})

	cleanup := func() {
		if err := closeTrigger(); err != nil {
			debug.Warn("trigger: close: %v", err)
		}
	}
	return svc, cleanup, nil
}

func newLibrary(cfg *config.Config) (device.Library, error) {
	switch cfg.Camera.Backend {
	case config.BackendSimulated:
		q, err := simulated.ParseQuirk(cfg.Camera.Simulated.Quirk)
		if err != nil {
			return nil, err
		}
		debug.Info("Using SIMULATED camera (quirk %s)", q)
		return simulated.New(simulated.Options{
			Quirk:       q,
			EventDelay:  cfg.Camera.Simulated.EventDelay,
			PollLatency: cfg.PollLatency(),
		}), nil
	case config.BackendGPhoto2:
		lib, err := gphoto2.New()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", device.ErrContextCreation, err)
		}
		return lib, nil
	default:
		return nil, fmt.Errorf("unsupported camera backend: %s", cfg.Camera.Backend)
	}
}

// newTrigger returns nil for the camera's own trigger, or a wired release.
func newTrigger(cfg *config.Config) (capture.Trigger, func() error, error) {
	noop := func() error { return nil }
	if cfg.Trigger.Type != config.TriggerRemoteRelease {
		return nil, noop, nil
	}

	debug.Value("Mock GPIO", cfg.Trigger.MockGPIO)
	drv, err := gpio.NewDriver(cfg.Trigger.MockGPIO)
	if err != nil {
		return nil, noop, fmt.Errorf("init GPIO: %w", err)
	}
	rel, err := release.New(drv, release.Config{
		FocusPin:     cfg.Trigger.FocusPin,
		ShutterPin:   cfg.Trigger.ShutterPin,
		FocusDelay:   cfg.FocusDelay(),
		ShutterDelay: cfg.ShutterDelay(),
	})
	if err != nil {
		drv.Close()
		return nil, noop, fmt.Errorf("init remote release: %w", err)
	}
	debug.Value("Focus pin", cfg.Trigger.FocusPin)
	debug.Value("Shutter pin", cfg.Trigger.ShutterPin)

	return rel, rel.Close, nil
}
