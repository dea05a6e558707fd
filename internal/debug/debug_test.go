package debug

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withBuffer(t *testing.T, lvl int, format string) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	Configure(lvl, format, buf)
	t.Cleanup(func() { Configure(LevelOff, FormatConsole, os.Stderr) })
	return buf
}

func TestLevelOff_NoOutput(t *testing.T) {
	buf := withBuffer(t, LevelOff, FormatConsole)

	Info("hello %d", 1)
	Live("live")
	Verbose("verbose")
	Trace("trace")
	Error(errors.New("boom"))

	assert.Empty(t, buf.String())
}

func TestLevelGating(t *testing.T) {
	cases := []struct {
		name    string
		level   int
		emit    func()
		visible bool
	}{
		{"info_at_info", LevelInfo, func() { Info("msg") }, true},
		{"live_at_info", LevelInfo, func() { Live("msg") }, false},
		{"live_at_live", LevelLive, func() { Live("msg") }, true},
		{"verbose_at_live", LevelLive, func() { Verbose("msg") }, false},
		{"verbose_at_verbose", LevelVerbose, func() { Verbose("msg") }, true},
		{"trace_at_verbose", LevelVerbose, func() { Trace("msg") }, false},
		{"trace_at_trace", LevelTrace, func() { Trace("msg") }, true},
		{"gpio_at_trace", LevelTrace, func() { GPIO("WritePin", 24, true) }, true},
		{"summary_at_info", LevelInfo, func() { Summary("listening") }, true},
		{"step_at_live", LevelLive, func() { Step(1, "msg") }, false},
		{"step_at_verbose", LevelVerbose, func() { Step(1, "msg") }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := withBuffer(t, tc.level, FormatConsole)
			tc.emit()
			assert.Equal(t, tc.visible, buf.Len() > 0, "output: %q", buf.String())
		})
	}
}

func TestCallback_ErrorsVisibleAtInfo(t *testing.T) {
	buf := withBuffer(t, LevelInfo, FormatConsole)

	Callback("status", "Initializing")
	assert.Empty(t, buf.String())

	Callback("error", "Fuji Capture failed: Perhaps no auto-focus?")
	assert.Contains(t, buf.String(), "Perhaps no auto-focus?")
}

func TestJSONFormat(t *testing.T) {
	buf := withBuffer(t, LevelLive, FormatJSON)

	Transition("abc", "Capturing", "NeedsFallback")

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "Capturing", entry["from"])
	assert.Equal(t, "NeedsFallback", entry["to"])
	assert.Equal(t, "boothcam", entry["component"])
}

func TestSetOutput_KeepsLevel(t *testing.T) {
	withBuffer(t, LevelInfo, FormatConsole)
	other := &bytes.Buffer{}
	SetOutput(other)

	assert.Equal(t, LevelInfo, Level())
	Info("redirected")
	assert.Contains(t, other.String(), "redirected")
}
