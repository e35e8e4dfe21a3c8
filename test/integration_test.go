//go:build integration

package test_test

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

var testBinary string

func TestMain(m *testing.M) {
	testBinary = os.Getenv("SOUNDBOARD_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "SOUNDBOARD_TEST_BIN not set; run: make test-integration")
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func cmds(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

type boardRun struct {
	out     string
	dataDir string
	logDir  string
}

// runBoard drives the binary's stdin test mode in isolated data, log,
// and config dirs. configTOML, when nonempty, becomes the app config.
func runBoard(t *testing.T, stdin, configTOML string) boardRun {
	t.Helper()

	dataDir := t.TempDir()
	logDir := t.TempDir()
	configDir := t.TempDir()

	if configTOML != "" {
		appDir := filepath.Join(configDir, "soundboard")
		if err := os.MkdirAll(appDir, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(appDir, "config.toml"), []byte(configTOML), 0644); err != nil {
			t.Fatal(err)
		}
	}

	cmd := exec.Command(testBinary, "-test", "-logpath", logDir)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = append(os.Environ(),
		"SOUNDBOARD_DATA_DIR="+dataDir,
		"XDG_CONFIG_HOME="+configDir,
	)

	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("soundboard exited with error: %v\noutput: %s", err, out)
	}
	return boardRun{out: string(out), dataDir: dataDir, logDir: logDir}
}

func requireLine(t *testing.T, out, want string) {
	t.Helper()
	if !strings.Contains(out, want) {
		t.Errorf("output missing %q\noutput:\n%s", want, out)
	}
}

func TestRecordThenPlay(t *testing.T) {
	r := runBoard(t, cmds(
		"RECORD",
		"FEED 2",
		"STOPREC",
		"PLAY Clip_01",
		"SLEEP 100",
		"FINISH",
		"SLEEP 400",
		"QUIT",
	), "")

	requireLine(t, r.out, "RECORDING true mic")
	requireLine(t, r.out, "CLIP_SAVED Clip_01 2.0")
	requireLine(t, r.out, "PLAYBACK true")
	requireLine(t, r.out, "PLAYBACK false")

	if _, err := os.Stat(filepath.Join(r.dataDir, "clips.json")); err != nil {
		t.Errorf("clips.json: %v", err)
	}
	if _, err := os.Stat(filepath.Join(r.dataDir, "clips", "Clip_01.wav")); err != nil {
		t.Errorf("recorded wav: %v", err)
	}
}

func TestHotkeyTriggersPlayback(t *testing.T) {
	r := runBoard(t, cmds(
		"RECORD",
		"FEED 1",
		"STOPREC",
		"BIND Clip_01 ctrl+f1",
		"PRESS ctrl+f1",
		"SLEEP 100",
		"QUIT",
	), "")

	requireLine(t, r.out, "BOUND true")
	requireLine(t, r.out, "HOTKEY ")
	requireLine(t, r.out, "PLAYBACK true")
}

func TestStopPlaybackIdempotent(t *testing.T) {
	r := runBoard(t, cmds(
		"RECORD",
		"FEED 1",
		"STOPREC",
		"PLAY Clip_01",
		"STOP",
		"STOP",
		"STATE",
		"QUIT",
	), "")

	requireLine(t, r.out, "STATE playing=false recording=false")
	if got := strings.Count(r.out, "PLAYBACK false"); got != 1 {
		t.Errorf("PLAYBACK false lines = %d, want 1\noutput:\n%s", got, r.out)
	}
}

func TestSystemCaptureToolMissing(t *testing.T) {
	r := runBoard(t, cmds(
		"RECORD_SYS",
		"STATE",
		"QUIT",
	), "parecord = \"soundboard-no-such-tool\"\nffmpeg = \"soundboard-no-such-tool\"\n")

	requireLine(t, r.out, "RECORDING_ERROR System audio capture needs parecord or ffmpeg")
	requireLine(t, r.out, "STATE playing=false recording=false")
}

func TestSettingsCoercion(t *testing.T) {
	r := runBoard(t, cmds(
		"SETTING outputDeviceId bogus-device",
		"SETTING inputDeviceId pulse-3",
		"QUIT",
	), "")

	data, err := os.ReadFile(filepath.Join(r.dataDir, "settings.json"))
	if err != nil {
		t.Fatalf("settings.json: %v", err)
	}
	if !strings.Contains(string(data), "\"outputDeviceId\": \"\"") {
		t.Errorf("unknown output id not coerced:\n%s", data)
	}
	if !strings.Contains(string(data), "\"inputDeviceId\": \"pulse-3\"") {
		t.Errorf("valid input id not kept:\n%s", data)
	}
}

func TestDeviceInventoryNonEmpty(t *testing.T) {
	r := runBoard(t, cmds("DEVICES", "QUIT"), "")
	if !strings.Contains(r.out, "DEVICE ") {
		t.Errorf("no devices listed:\n%s", r.out)
	}
}

func TestHistoryLogRecordsPlays(t *testing.T) {
	r := runBoard(t, cmds(
		"RECORD",
		"FEED 1",
		"STOPREC",
		"PLAY Clip_01",
		"SLEEP 100",
		"QUIT",
	), "")

	history, err := os.ReadFile(filepath.Join(r.logDir, "history_log.txt"))
	if err != nil {
		t.Fatalf("history_log.txt: %v", err)
	}
	if !strings.Contains(string(history), "saved Clip_01") {
		t.Errorf("history missing save entry:\n%s", history)
	}
	if !strings.Contains(string(history), "played Clip_01") {
		t.Errorf("history missing play entry:\n%s", history)
	}
}
