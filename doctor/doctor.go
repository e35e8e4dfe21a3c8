package doctor

import (
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"soundboard/audio"
	"soundboard/config"
	"soundboard/encoder"
	"soundboard/hotkey"
	"soundboard/playback"
)

// Run executes interactive diagnostic checks and returns an exit code
// (0=all pass, 1=any fail).
func Run() int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("soundboard doctor - interactive system diagnostics")
	fmt.Println("==================================================")

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("FAIL: config: %v\n", err)
		return 1
	}

	allPass := true

	ctx := checkBackend(cfg)
	if ctx == nil {
		allPass = false
		ctx = audio.Unavailable(fmt.Errorf("backend unreachable"))
	}
	defer ctx.Close()

	if !checkTools(cfg) {
		allPass = false
	}
	if !checkSpeaker() {
		allPass = false
	}
	if !checkMicrophone(ctx) {
		allPass = false
	}
	if !checkHotkey() {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func checkBackend(cfg *config.Config) audio.Context {
	fmt.Println()
	fmt.Println("[1/5] Audio backend and device inventory")

	ctx, err := audio.NewContext(cfg.Aplay)
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio backend: %v\n", err)
		return nil
	}

	devices := ctx.Devices()
	for _, d := range devices {
		marks := ""
		if d.Default {
			marks += " *default"
		}
		if d.Virtual {
			marks += " [virtual]"
		}
		fmt.Printf("    %-18s %-8s %s%s\n", d.ID, d.Kind, d.Name, marks)
	}
	fmt.Printf("  PASS: %d devices\n", len(devices))
	return ctx
}

func checkTools(cfg *config.Config) bool {
	fmt.Println()
	fmt.Println("[2/5] External tools")

	probe := func(bin, flag string) bool {
		cmd := exec.Command(bin, flag)
		cmd.Stdout, cmd.Stderr = nil, nil
		return cmd.Run() == nil
	}

	tools := []struct {
		bin, flag, role string
	}{
		{cfg.Paplay, "--version", "device-targeted playback"},
		{cfg.Aplay, "--version", "ALSA playback"},
		{cfg.Parecord, "--version", "system audio capture"},
		{cfg.Ffmpeg, "-version", "system audio capture (fallback)"},
		{cfg.Pactl, "--version", "virtual sink management"},
	}

	found := map[string]bool{}
	for _, t := range tools {
		if probe(t.bin, t.flag) {
			fmt.Printf("    %-10s ok        (%s)\n", t.bin, t.role)
			found[t.bin] = true
		} else {
			fmt.Printf("    %-10s MISSING   (%s)\n", t.bin, t.role)
		}
	}

	if !found[cfg.Paplay] && !found[cfg.Aplay] {
		fmt.Println("  WARN: no external player found; playback uses the library path only")
	}
	if !found[cfg.Parecord] && !found[cfg.Ffmpeg] {
		fmt.Println("  WARN: system audio recording unavailable (install pulseaudio-utils or ffmpeg)")
	}
	fmt.Println("  PASS: probes complete")
	return true
}

func checkSpeaker() bool {
	fmt.Println()
	fmt.Println("[3/5] Speaker output")

	path := filepath.Join(os.TempDir(), "soundboard-doctor-tone.wav")
	if err := writeTone(path); err != nil {
		fmt.Printf("  FAIL: cannot write test tone: %v\n", err)
		return false
	}
	defer os.Remove(path)

	fmt.Println("  Playing a 1 second tone on the default output...")
	sess, err := playback.NewEngine().Play(path, "")
	if err != nil {
		fmt.Printf("  FAIL: playback error: %v\n", err)
		return false
	}
	select {
	case err := <-sess.Done():
		if err != nil {
			fmt.Printf("  FAIL: playback ended with: %v\n", err)
			return false
		}
	case <-time.After(5 * time.Second):
		sess.Stop()
		fmt.Println("  FAIL: playback did not finish")
		return false
	}

	if !confirm("Did you hear the tone?") {
		fmt.Println("  FAIL: tone not confirmed")
		return false
	}
	fmt.Println("  PASS: speaker output verified")
	return true
}

// writeTone renders one second of 440 Hz sine in the clip format.
func writeTone(path string) error {
	enc, err := encoder.NewWav(path)
	if err != nil {
		return err
	}
	block := make([]int16, encoder.BlockSize)
	written := 0
	for written < encoder.SampleRate {
		for i := range block {
			t := float64(written+i) / float64(encoder.SampleRate)
			block[i] = int16(12000 * math.Sin(2*math.Pi*440*t))
		}
		n := encoder.SampleRate - written
		if n > len(block) {
			n = len(block)
		}
		if err := enc.EncodeBlock(block[:n]); err != nil {
			enc.Close()
			return err
		}
		written += n
	}
	return enc.Close()
}

func checkMicrophone(ctx audio.Context) bool {
	fmt.Println()
	fmt.Println("[4/5] Microphone capture")

	dev, err := audio.SelectDevice(ctx, audio.KindInput)
	if err != nil {
		fmt.Printf("  device selection: %v, using default\n", err)
	}
	source := ""
	if dev != nil {
		if name, err := ctx.ResolveSourceName(audio.ParseRef(dev.ID)); err == nil {
			source = name
		}
		fmt.Printf("  Using %s\n", dev.Name)
	}

	capture, err := ctx.NewCapture(source, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		fmt.Printf("  FAIL: cannot open capture device: %v\n", err)
		return false
	}
	defer capture.Close()

	var mu sync.Mutex
	var peak float64
	capture.SetCallback(func(data []byte, frames uint32) {
		rms := chunkRMS(data)
		mu.Lock()
		if rms > peak {
			peak = rms
		}
		mu.Unlock()
		bar := int(rms * 60)
		if bar > 50 {
			bar = 50
		}
		fmt.Printf("\r  level %-50s", strings.Repeat("#", bar))
	})

	fmt.Println("  Speak for 3 seconds...")
	if err := capture.Start(); err != nil {
		fmt.Printf("  FAIL: capture start: %v\n", err)
		return false
	}
	time.Sleep(3 * time.Second)
	capture.Stop()
	capture.ClearCallback()
	fmt.Println()

	mu.Lock()
	got := peak
	mu.Unlock()
	if got < 0.01 {
		fmt.Printf("  FAIL: no signal detected (peak %.3f)\n", got)
		return false
	}
	fmt.Printf("  PASS: signal detected (peak %.2f)\n", got)
	return true
}

func chunkRMS(data []byte) float64 {
	n := len(data) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i+1 < len(data); i += 2 {
		v := float64(int16(uint16(data[i]) | uint16(data[i+1])<<8))
		sum += v * v
	}
	return math.Sqrt(sum/float64(n)) / 32768
}

func checkHotkey() bool {
	fmt.Println()
	fmt.Println("[5/5] Global hotkeys")

	info, err := hotkey.Diagnose()
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Println("  " + info)

	backend := hotkey.NewBackend()
	defer backend.Close()

	pressed := make(chan struct{}, 1)
	binding, err := backend.Register("ctrl+shift+f9", func() {
		select {
		case pressed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		fmt.Printf("  FAIL: could not register test hotkey: %v\n", err)
		return false
	}
	defer binding.Unregister()

	fmt.Println("  Press Ctrl+Shift+F9 within 10 seconds...")
	select {
	case <-pressed:
		resetTerminal()
		fmt.Println("  PASS: hotkey detected")
		return true
	case <-time.After(10 * time.Second):
		fmt.Println("  FAIL: timeout waiting for hotkey")
		return false
	}
}

func confirm(question string) bool {
	resetTerminal()
	fmt.Printf("%s [y/n]: ", question)
	var answer string
	fmt.Scanln(&answer)
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}
