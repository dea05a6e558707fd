package debug

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Debug levels
const (
	LevelOff     = 0 // No output
	LevelInfo    = 1 // Important info (capture result, session lifecycle)
	LevelLive    = 2 // Live info (state transitions, events received)
	LevelVerbose = 3 // Verbose (every poll, settings lookups)
	LevelTrace   = 4 // Trace (GPIO, library callbacks)
)

// Output formats
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

var (
	mu    sync.RWMutex
	level int
	out   io.Writer = os.Stderr
)

var (
	format = FormatConsole
	logger = zerolog.Nop()
)

// Configure initializes the debug system with a level (0-4), an output
// format and a writer.
// 0 = no output
// 1 = important info (capture result, session open/close)
// 2 = live info (state transitions, device events)
// 3 = verbose (each poll call, settings lookups)
// 4 = trace (GPIO, library context callbacks)
//
// boothcam passes stderr: stdout is reserved for command results.
func Configure(debugLevel int, outputFormat string, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	level = debugLevel
	format = strings.ToLower(outputFormat)
	out = w
	rebuild()
}

// SetOutput replaces the writer, keeping level and format.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	out = w
	rebuild()
}

func rebuild() {
	if level <= LevelOff || out == nil {
		logger = zerolog.Nop()
		return
	}

	// Gating happens on our own level; let zerolog pass everything through.
	zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var l zerolog.Logger
	if format == FormatJSON {
		l = zerolog.New(out)
	} else {
		l = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: true})
	}
	logger = l.With().Timestamp().Str("component", "boothcam").Logger()
}

func current() (int, zerolog.Logger) {
	mu.RLock()
	defer mu.RUnlock()
	return level, logger
}

// Level returns the current debug level.
func Level() int {
	lvl, _ := current()
	return lvl
}

// --- Level 1 functions (Info): important info ---

// Info prints a level 1 message (important info).
func Info(format string, args ...interface{}) {
	if lvl, l := current(); lvl >= LevelInfo {
		l.Info().Msgf(format, args...)
	}
}

// Warn prints a level 1 warning.
func Warn(format string, args ...interface{}) {
	if lvl, l := current(); lvl >= LevelInfo {
		l.Warn().Msgf(format, args...)
	}
}

// Summary prints an important summary (level 1).
func Summary(title string) {
	if lvl, l := current(); lvl >= LevelInfo {
		l.Info().Msg("═══════════════════════════════════════")
		l.Info().Msgf("  %s", title)
		l.Info().Msg("═══════════════════════════════════════")
	}
}

// Value prints a named value in formatted form (level 1).
func Value(name string, value interface{}) {
	if lvl, l := current(); lvl >= LevelInfo {
		l.Info().Interface(name, value).Msgf("  %s = %v", name, value)
	}
}

// --- Level 2 functions (Live): real-time info ---

// Live prints a level 2 message (live info).
func Live(format string, args ...interface{}) {
	if lvl, l := current(); lvl >= LevelLive {
		l.Info().Str("stage", "live").Msgf(format, args...)
	}
}

// Transition prints a capture state machine transition (level 2).
func Transition(op, from, to string) {
	if lvl, l := current(); lvl >= LevelLive {
		l.Info().Str("op", op).Str("from", from).Str("to", to).Msgf("capture: %s -> %s", from, to)
	}
}

// Event prints a device event received while waiting (level 2).
func Event(attempt, budget int, kind string) {
	if lvl, l := current(); lvl >= LevelLive {
		l.Info().Int("attempt", attempt).Int("budget", budget).Str("event", kind).
			Msgf("capture: event %s (poll %d/%d)", kind, attempt, budget)
	}
}

// --- Level 3 functions (Verbose): everything ---

// Verbose prints a level 3 message (verbose).
func Verbose(format string, args ...interface{}) {
	if lvl, l := current(); lvl >= LevelVerbose {
		l.Debug().Msgf(format, args...)
	}
}

// Printf is an alias for Verbose.
func Printf(format string, args ...interface{}) {
	Verbose(format, args...)
}

// PrintStruct prints a struct in formatted form (level 3).
func PrintStruct(name string, v interface{}) {
	if lvl, l := current(); lvl >= LevelVerbose {
		l.Debug().Msgf("%s: %+v", name, v)
	}
}

// Section prints a section separator (level 3).
func Section(name string) {
	if lvl, l := current(); lvl >= LevelVerbose {
		l.Debug().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		l.Debug().Msgf("  %s", name)
		l.Debug().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	}
}

// Step prints a numbered step (level 3).
func Step(num int, description string) {
	if lvl, l := current(); lvl >= LevelVerbose {
		l.Debug().Int("step", num).Msgf("Step %d: %s", num, description)
	}
}

// --- Level 4 functions (Trace): very low level ---

// Trace prints a level 4 message (trace).
func Trace(format string, args ...interface{}) {
	if lvl, l := current(); lvl >= LevelTrace {
		l.Trace().Msgf(format, args...)
	}
}

// GPIO prints a GPIO operation (level 4).
func GPIO(operation string, pin int, value interface{}) {
	if lvl, l := current(); lvl >= LevelTrace {
		l.Trace().Str("gpio", operation).Int("pin", pin).Msgf("[GPIO] %s pin=%d value=%v", operation, pin, value)
	}
}

// Callback prints a message emitted by the device-control library.
// Library errors are shown from level 1, status and messages from level 4.
func Callback(kind, msg string) {
	lvl, l := current()
	switch {
	case kind == "error" && lvl >= LevelInfo:
		l.Error().Str("source", "library").Msgf("library error: %s", msg)
	case lvl >= LevelTrace:
		l.Trace().Str("source", "library").Msgf("library %s: %s", kind, msg)
	}
}

// --- General functions ---

// Error prints a debug error (level 1+).
func Error(err error) {
	if lvl, l := current(); lvl >= LevelInfo && err != nil {
		l.Error().Err(err).Msg(err.Error())
	}
}
