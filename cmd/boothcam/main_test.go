package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanneret/boothcam/internal/config"
	"github.com/cjeanneret/boothcam/internal/hw/release"
)

// writeConfig creates a simulated-backend config with a fast poll policy.
func writeConfig(t *testing.T, quirk string) (path, outDir string) {
	t.Helper()
	outDir = t.TempDir()
	content := "camera:\n" +
		"  backend: simulated\n" +
		"  output_dir: " + outDir + "\n" +
		"  event_timeout_ms: 1\n" +
		"  event_attempts: 5\n" +
		"  simulated:\n" +
		"    quirk: " + quirk + "\n" +
		"logging:\n" +
		"  debug_level: 3\n"
	path = filepath.Join(t.TempDir(), "boothcam.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path, outDir
}

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), append([]string{"boothcam"}, args...), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_MissingCommand(t *testing.T) {
	code, stdout, stderr := runCLI(t)
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "missing command")
}

func TestRun_UnknownCommand(t *testing.T) {
	code, stdout, stderr := runCLI(t, "shoot")
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "unknown command: shoot")
}

func TestRun_CaptureFallback(t *testing.T) {
	cfgPath, outDir := writeConfig(t, "capture_error")

	code, stdout, stderr := runCLI(t, "--config", cfgPath, "capture")
	require.Equal(t, 0, code, stderr)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 1, "stdout must carry exactly one JSON object")

	var res map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &res))
	assert.Equal(t, true, res["success"])
	localPath, _ := res["local_path"].(string)
	assert.Equal(t, outDir, filepath.Dir(localPath))
	assert.FileExists(t, localPath)

	loc := res["device_locator"].(map[string]interface{})
	assert.Equal(t, filepath.Base(localPath), loc["name"])
	assert.NotEmpty(t, loc["folder"])

	assert.Contains(t, stderr, "Initialization", "narration goes to stderr")
}

func TestRun_CaptureExhaustedStillExitsZero(t *testing.T) {
	cfgPath, _ := writeConfig(t, "silent")

	code, stdout, _ := runCLI(t, "--config", cfgPath, "capture")
	assert.Equal(t, 0, code)
	assert.Equal(t, `{"success":false,"error":"capture fired but no file retrieved"}`+"\n", stdout)
}

func TestRun_CaptureFlagsOverrideFile(t *testing.T) {
	cfgPath, _ := writeConfig(t, "none")
	dir := t.TempDir()

	code, stdout, stderr := runCLI(t, "--config", cfgPath, "--output-dir", dir, "--debug-level", "0", "capture")
	require.Equal(t, 0, code, stderr)
	assert.Empty(t, stderr)

	var res struct {
		Success   bool   `json:"success"`
		LocalPath string `json:"local_path"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.True(t, res.Success)
	assert.Equal(t, dir, filepath.Dir(res.LocalPath))
}

func TestRun_CaptureNoCamera(t *testing.T) {
	cfgPath, _ := writeConfig(t, "no_camera")

	code, stdout, _ := runCLI(t, "--config", cfgPath, "capture")
	assert.Equal(t, 0, code)
	assert.Equal(t, `{"success":false,"error":"init camera: Unknown model (code -105)"}`+"\n", stdout)
}

func TestRun_Config(t *testing.T) {
	cfgPath, _ := writeConfig(t, "none")

	code, stdout, stderr := runCLI(t, "--config", cfgPath, "config")
	require.Equal(t, 0, code, stderr)

	var out map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Contains(t, out, "iso")
	assert.Equal(t, "400", out["iso"]["value"])
	assert.NotEmpty(t, out["iso"]["choices"])
	assert.NotContains(t, out, "shutterspeed2")
}

func TestRun_ConfigNoCamera(t *testing.T) {
	cfgPath, _ := writeConfig(t, "no_camera")

	code, stdout, _ := runCLI(t, "--config", cfgPath, "config")
	assert.Equal(t, 0, code)
	assert.Equal(t, `{"error":"init camera: Unknown model (code -105)"}`+"\n", stdout)
}

func TestRun_BadConfigFile(t *testing.T) {
	code, stdout, stderr := runCLI(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "capture")
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "load config")
}

func TestRun_InvalidBackendFlag(t *testing.T) {
	code, _, stderr := runCLI(t, "--backend", "ptpip", "capture")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "backend")
}

func TestNewTrigger(t *testing.T) {
	cfg := config.Default()
	trig, closeFn, err := newTrigger(cfg)
	require.NoError(t, err)
	assert.Nil(t, trig, "device trigger uses the camera itself")
	assert.NoError(t, closeFn())

	cfg.Trigger.Type = config.TriggerRemoteRelease
	cfg.Trigger.FocusPin, cfg.Trigger.ShutterPin = 24, 25
	cfg.Trigger.FocusDelayMs, cfg.Trigger.ShutterDelayMs = 1, 1
	cfg.Trigger.MockGPIO = true
	trig, closeFn, err = newTrigger(cfg)
	require.NoError(t, err)
	assert.IsType(t, &release.Release{}, trig)
	assert.NoError(t, trig.TriggerCapture())
	assert.NoError(t, closeFn())
}

func TestNewLibrary_Simulated(t *testing.T) {
	cfg := config.Default()
	cfg.Camera.Backend = config.BackendSimulated
	cfg.Camera.Simulated.Quirk = "needs_trigger"

	lib, err := newLibrary(cfg)
	require.NoError(t, err)
	assert.Equal(t, "simulated", lib.Name())

	cfg.Camera.Simulated.Quirk = "jammed"
	_, err = newLibrary(cfg)
	assert.Error(t, err)
}

func TestCommandStructure(t *testing.T) {
	app := newApp(&bytes.Buffer{}, &bytes.Buffer{})
	assert.Equal(t, "boothcam", app.Name)

	want := map[string]bool{"capture": false, "config": false, "serve": false}
	for _, c := range app.Commands {
		if _, ok := want[c.Name]; ok {
			want[c.Name] = true
			assert.NotEmpty(t, c.Usage, c.Name)
			assert.NotNil(t, c.Action, c.Name)
		}
	}
	for n, found := range want {
		assert.True(t, found, "command %q not registered", n)
	}
}
