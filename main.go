package main

import (
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"soundboard/audio"
	"soundboard/config"
	"soundboard/doctor"
	"soundboard/hotkey"
	"soundboard/log"
	"soundboard/playback"
	"soundboard/shutdown"
)

var version = "dev"

var shutdownOnce sync.Once

func gracefulShutdown(app *App) {
	shutdownOnce.Do(func() {
		app.Shutdown()
		log.Close()
		os.Exit(0)
	})
}

func run() {
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	listFlag := flag.Bool("list", false, "List audio devices and exit")
	setupFlag := flag.Bool("setup", false, "Select the playback output device before starting")
	playFlag := flag.String("play", "", "Play the named clip and exit")
	testFlag := flag.Bool("test", false, "Test mode (headless, stdin-driven, fake backends)")
	crashFlag := flag.Bool("crash", false, "Trigger synthetic panic for testing crash logging")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	profileFlag := flag.String("profile", "", "Enable pprof profiling server (e.g., :6060 or localhost:6060)")
	flag.Parse()

	// Resolve log directory early
	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)

	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *profileFlag != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", *profileFlag)
			if err := http.ListenAndServe(*profileFlag, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	if *crashFlag {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}

	if *versionFlag {
		fmt.Printf("soundboard %s\n", version)
		os.Exit(0)
	}

	if *doctorFlag {
		os.Exit(doctor.Run())
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}

	if *testFlag {
		runTestMode(cfg)
		return
	}

	ctx := newAudioContext(cfg)

	if *listFlag {
		printDevices(ctx)
		ctx.Close()
		log.Close()
		return
	}

	app, err := NewApp(cfg, ctx, hotkey.NewBackend(), playback.NewEngine(), playback.StartProcess, multiSink{notifySink{}})
	if err != nil {
		log.Errorf("startup: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *setupFlag {
		runSetup(app, ctx)
	}

	if *playFlag != "" {
		code := playOnce(app, *playFlag)
		log.Close()
		os.Exit(code)
	}

	app.Start()
	go pollDevices(app)

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)

	fmt.Printf("soundboard %s ready — %d clips, data in %s (Ctrl+C to quit)\n",
		version, len(app.GetClips()), cfg.DataDir)

	<-sigChan
	fmt.Println("\nshutting down")
	gracefulShutdown(app)
}

// newAudioContext falls back to the unavailable context when the backend
// cannot be reached: the inventory keeps its always-nonempty contract and
// playback still has the bare-command strategies.
func newAudioContext(cfg *config.Config) audio.Context {
	ctx, err := audio.NewContext(cfg.Aplay)
	if err != nil {
		log.Errorf("audio backend: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: audio backend unreachable (%v), running degraded\n", err)
		return audio.Unavailable(err)
	}
	return ctx
}

func printDevices(ctx audio.Context) {
	for _, d := range ctx.Devices() {
		marks := ""
		if d.Default {
			marks += " *default"
		}
		if d.Virtual {
			marks += " [virtual]"
		}
		fmt.Printf("%-20s %-8s %s%s\n", d.ID, d.Kind, d.Name, marks)
	}
}

func runSetup(app *App, ctx audio.Context) {
	fmt.Println("Select the playback output device:")
	dev, err := audio.SelectDevice(ctx, audio.KindOutput, audio.KindVirtual)
	if err != nil || dev == nil {
		fmt.Println("Keeping system default output.")
		return
	}
	if _, err := app.UpdateSettings(map[string]any{"outputDeviceId": dev.ID}); err != nil {
		fmt.Printf("Warning: could not save settings: %v\n", err)
		return
	}
	fmt.Printf("Output device set to %s\n", dev.Name)
}

// playOnce is the one-shot CLI path: play a clip by name or id, wait for
// it to finish, exit.
func playOnce(app *App, name string) int {
	id := ""
	for _, c := range app.GetClips() {
		if c.Name == name || c.ID == name {
			id = c.ID
			break
		}
	}
	if id == "" {
		fmt.Fprintf(os.Stderr, "Unknown clip %q\n", name)
		return 1
	}

	if err := app.PlayClip(id); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	for app.PlaybackSnapshot().IsPlaying {
		time.Sleep(50 * time.Millisecond)
	}
	app.Shutdown()
	return 0
}

// pollDevices watches for hotplug: when the device set changes, the new
// inventory counts go to the log so a vanished output is visible without
// waiting for a failed play.
func pollDevices(app *App) {
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()
	var last []string
	for range ticker.C {
		devices := app.GetAudioDevices()
		ids := make([]string, len(devices))
		for i := range devices {
			ids[i] = devices[i].ID
		}
		if slices.Equal(last, ids) {
			continue
		}
		if last != nil {
			log.Info("device set changed")
			app.logInventory()
		}
		last = ids
	}
}
