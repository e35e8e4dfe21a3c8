//go:build linux

package audio

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// VirtualRouting manages the null sink and loopback modules that make up
// the soundboard-output virtual device. Module IDs returned by pactl are
// tracked so Teardown can unload exactly what was loaded.
type VirtualRouting struct {
	pactl string

	mu      sync.Mutex
	modules []string
}

func NewVirtualRouting(pactl string) *VirtualRouting {
	return &VirtualRouting{pactl: pactl}
}

func (v *VirtualRouting) loadModule(args ...string) (string, error) {
	out, err := exec.Command(v.pactl, append([]string{"load-module"}, args...)...).Output()
	if err != nil {
		return "", fmt.Errorf("pactl load-module %s: %w", args[0], err)
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		return "", fmt.Errorf("pactl load-module %s: empty module id", args[0])
	}
	return id, nil
}

// Apply brings the routing modules in line with the settings. It always
// tears down the previous set first so toggling a loopback does not leak
// modules.
func (v *VirtualRouting) Apply(enabled, playbackLoopback, micLoopback bool) error {
	v.Teardown()
	if !enabled {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	id, err := v.loadModule("module-null-sink",
		"sink_name="+VirtualSinkName,
		"sink_properties=device.description=Soundboard_Virtual_Output")
	if err != nil {
		return err
	}
	v.modules = append(v.modules, id)

	if playbackLoopback {
		id, err := v.loadModule("module-loopback",
			"source="+VirtualSinkName+".monitor",
			"latency_msec=30")
		if err != nil {
			return err
		}
		v.modules = append(v.modules, id)
	}

	if micLoopback {
		id, err := v.loadModule("module-loopback",
			"sink="+VirtualSinkName,
			"latency_msec=30")
		if err != nil {
			return err
		}
		v.modules = append(v.modules, id)
	}

	return nil
}

func (v *VirtualRouting) Teardown() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, id := range v.modules {
		_ = exec.Command(v.pactl, "unload-module", id).Run()
	}
	v.modules = nil
}

// Active reports whether any routing modules are currently loaded.
func (v *VirtualRouting) Active() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.modules) > 0
}
