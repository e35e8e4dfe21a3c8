package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog     zerolog.Logger
	diagFile    *os.File
	historyFile *os.File
	logMu       sync.Mutex
	logReady    bool
	pid         int
	dir         string
)

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		if !filepath.IsAbs(flagPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, flagPath), nil
		}
		return flagPath, nil
	}

	// Priority 2: SOUNDBOARD_LOG_PATH environment variable
	envPath := os.Getenv("SOUNDBOARD_LOG_PATH")
	if envPath != "" {
		if !filepath.IsAbs(envPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, envPath), nil
		}
		return envPath, nil
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	historyPath := filepath.Join(dir, "history_log.txt")
	historyFile, err = os.OpenFile(historyPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if historyFile != nil {
		historyFile.Close()
		historyFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

// History appends one line to history_log.txt, the plain-text record of
// what the board played and saved.
func History(text string) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	line := fmt.Sprintf("%s\t[%d]\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, text)
	historyFile.WriteString(line)
}

func PlaybackStarted(clip, strategy string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("clip", clip).
		Str("strategy", strategy).
		Msg("playback_started")
}

func PlaybackFallback(clip, from, to, reason string) {
	if !logReady {
		return
	}
	diagLog.Warn().
		Str("clip", clip).
		Str("from", from).
		Str("to", to).
		Str("reason", reason).
		Msg("playback_fallback")
}

func PlaybackDone(clip string, seconds float64) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("clip", clip).
		Float64("seconds", seconds).
		Msg("playback_done")
}

func PlaybackExhausted(clip string, attempts int) {
	if !logReady {
		return
	}
	diagLog.Error().
		Str("clip", clip).
		Int("attempts", attempts).
		Msg("playback_exhausted")
}

func RecordingStarted(mode, device string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("mode", mode).
		Str("device", device).
		Msg("recording_started")
}

func RecordingSaved(name string, seconds float64, bytes int64) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("name", name).
		Float64("seconds", seconds).
		Int64("bytes", bytes).
		Msg("recording_saved")
}

func HotkeyBound(combo, clip string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("combo", combo).
		Str("clip", clip).
		Msg("hotkey_bound")
}

func HotkeyUnbound(combo, clip string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("combo", combo).
		Str("clip", clip).
		Msg("hotkey_unbound")
}

func Devices(outputs, inputs, monitors, virtuals int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("outputs", outputs).
		Int("inputs", inputs).
		Int("monitors", monitors).
		Int("virtuals", virtuals).
		Msg("device_inventory")
}

func SessionStart(clips int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("clips", clips).
		Msg("session_start")
}

func SessionEnd(played, recorded int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("played", played).
		Int("recorded", recorded).
		Msg("session_end")
}
