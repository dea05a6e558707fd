package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/cjeanneret/boothcam/internal/config"
	"github.com/cjeanneret/boothcam/internal/debug"
	"github.com/cjeanneret/boothcam/internal/logic/capture"
)

const name = "boothcam"

// overridden during build with ldflags
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run executes the command line and returns the process exit code:
// 0 when a known command ran, 1 otherwise.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if err := newApp(stdout, stderr).Run(ctx, args); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return 1
	}
	return 0
}

func newApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     "Capture photos from a USB camera and report its settings",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to YAML config file (built-in defaults when empty)",
				Sources: cli.EnvVars("BOOTHCAM_CONFIG"),
			},
			&cli.IntFlag{
				Name:  "debug-level",
				Usage: "narration level on stderr: 0 off, 1 info, 2 live, 3 verbose, 4 trace",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "narration format (console, json)",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "camera backend (gphoto2, simulated)",
			},
			&cli.StringFlag{
				Name:  "output-dir",
				Usage: "directory captured files are saved to",
			},
		},
		Commands: []*cli.Command{
			captureCmd(stdout, stderr),
			configCmd(stdout, stderr),
			serveCmd(stderr),
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() > 0 {
				return fmt.Errorf("unknown command: %s", cmd.Args().First())
			}
			return fmt.Errorf("missing command (capture, config or serve)")
		},
	}
}

func captureCmd(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "capture",
		Usage: "Take one picture, save it locally and remove it from the camera",
		Description: `Fires the camera and prints one JSON result on stdout:

  {"success":true,"local_path":"/tmp/IMG_0001.JPG","device_locator":{...}}
  {"success":false,"error":"capture fired but no file retrieved"}

When the camera reports a failed capture, boothcam watches the event stream
for the file, then triggers once more and watches again before giving up.
The exit code is 0 whenever the capture ran, whatever its outcome.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd, stderr)
			if err != nil {
				return err
			}

			svc, cleanup, err := newService(cfg, nil, false)
			if err != nil {
				debug.Error(err)
				return writeJSON(stdout, capture.Failure(err))
			}
			defer cleanup()

			res, _ := svc.Capture(ctx)
			return writeJSON(stdout, res)
		},
	}
}

func configCmd(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Print the camera settings as JSON",
		Description: `Reads the camera settings tree and prints the known settings the camera
exposes (iso, aperture, shutterspeed, whitebalance...) with their value,
label, type and choices or range. Settings the camera lacks are omitted.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd, stderr)
			if err != nil {
				return err
			}

			svc, cleanup, err := newService(cfg, nil, false)
			if err != nil {
				debug.Error(err)
				return writeJSON(stdout, errorJSON{Error: err.Error()})
			}
			defer cleanup()

			out, err := svc.Settings(ctx)
			if err != nil {
				debug.Error(err)
				return writeJSON(stdout, errorJSON{Error: err.Error()})
			}
			return writeJSON(stdout, out)
		},
	}
}

type errorJSON struct {
	Error string `json:"error"`
}

func writeJSON(w io.Writer, v interface{}) error {
	return json.NewEncoder(w).Encode(v)
}

// loadConfig layers the config file, BOOTHCAM_* variables and flags, then
// configures narration.
func loadConfig(cmd *cli.Command, stderr io.Writer) (*config.Config, error) {
	path := cmd.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if cmd.IsSet("debug-level") {
		cfg.Logging.DebugLevel = int(cmd.Int("debug-level"))
	}
	if cmd.IsSet("log-format") {
		cfg.Logging.Format = cmd.String("log-format")
	}
	if cmd.IsSet("backend") {
		cfg.Camera.Backend = cmd.String("backend")
	}
	if cmd.IsSet("output-dir") {
		cfg.Camera.OutputDir = cmd.String("output-dir")
	}
	if cmd.IsSet("addr") {
		cfg.Server.Addr = cmd.String("addr")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	debug.Configure(cfg.Logging.DebugLevel, cfg.Logging.Format, stderr)
	debug.Section("Initialization")
	debug.Value("Version", version)
	debug.Value("Config path", path)
	debug.Value("Backend", cfg.Camera.Backend)
	debug.Value("Output dir", cfg.Camera.OutputDir)
	debug.Value("Trigger", cfg.Trigger.Type)
	debug.PrintStruct("Camera config", cfg.Camera)
	return cfg, nil
}
