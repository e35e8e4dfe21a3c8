//go:build !linux

package audio

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

type malgoContext struct {
	ctx *malgo.AllocatedContext
}

// NewContext initializes miniaudio. The aplay argument is accepted for
// signature parity with the Linux backend and ignored.
func NewContext(aplay string) (Context, error) {
	_ = aplay
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("malgo context: %w", err)
	}
	return &malgoContext{ctx: ctx}, nil
}

func (m *malgoContext) Close() {
	_ = m.ctx.Uninit()
	m.ctx.Free()
}

func (m *malgoContext) Devices() []Device {
	var devices []Device
	failures := 0

	outputs, err := m.ctx.Devices(malgo.Playback)
	if err != nil {
		failures++
	}
	for _, info := range outputs {
		name := strings.TrimRight(info.Name(), "\x00")
		d := Device{
			ID:      fmt.Sprintf("%x", info.ID),
			Name:    name,
			Kind:    KindOutput,
			Default: info.IsDefault != 0,
		}
		if IsVirtualName(name) {
			d.Kind = KindVirtual
			d.Virtual = true
		}
		devices = append(devices, d)
	}

	for _, kv := range KnownVirtualDevices() {
		if !HasDevice(devices, kv.ID) {
			devices = append(devices, kv)
		}
	}

	inputs, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		failures++
	}
	for _, info := range inputs {
		name := strings.TrimRight(info.Name(), "\x00")
		devices = append(devices, Device{
			ID:          fmt.Sprintf("%x", info.ID),
			Name:        name,
			Kind:        KindInput,
			Default:     info.IsDefault != 0,
			Description: InputLabel(name),
		})
	}

	if failures == 2 {
		return FallbackDevices()
	}
	return devices
}

func (m *malgoContext) findDevice(deviceType malgo.DeviceType, ref DeviceRef) (*malgo.DeviceInfo, error) {
	if ref.Kind == RefDefault {
		return nil, nil
	}
	if ref.Kind != RefNamed {
		return nil, ErrDeviceNotFound
	}
	infos, err := m.ctx.Devices(deviceType)
	if err != nil {
		return nil, err
	}
	for i, info := range infos {
		id := fmt.Sprintf("%x", info.ID)
		if strings.HasPrefix(id, ref.Name) || strings.Contains(info.Name(), ref.Name) {
			return &infos[i], nil
		}
	}
	return nil, ErrDeviceNotFound
}

func (m *malgoContext) ResolveSinkName(ref DeviceRef) (string, error) {
	info, err := m.findDevice(malgo.Playback, ref)
	if err != nil {
		return "", err
	}
	if info == nil {
		return "", nil
	}
	return fmt.Sprintf("%x", info.ID), nil
}

func (m *malgoContext) ResolveSourceName(ref DeviceRef) (string, error) {
	info, err := m.findDevice(malgo.Capture, ref)
	if err != nil {
		return "", err
	}
	if info == nil {
		return "", nil
	}
	return fmt.Sprintf("%x", info.ID), nil
}

func (m *malgoContext) NewCapture(sourceName string, config CaptureConfig) (CaptureDevice, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = config.Channels
	deviceConfig.SampleRate = config.SampleRate
	deviceConfig.Alsa.NoMMap = 1

	name := "system default"
	if sourceName != "" {
		infos, err := m.ctx.Devices(malgo.Capture)
		if err == nil {
			for i, info := range infos {
				id := fmt.Sprintf("%x", info.ID)
				if strings.HasPrefix(id, sourceName) {
					deviceConfig.Capture.DeviceID = infos[i].ID.Pointer()
					name = strings.TrimRight(info.Name(), "\x00")
					break
				}
			}
		}
	}

	c := &malgoCapture{name: name}
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			cb := c.callback.Load()
			if cb == nil {
				return
			}
			(*cb)(input, frameCount)
		},
	}

	device, err := malgo.InitDevice(m.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("malgo capture device: %w", err)
	}
	c.device = device
	return c, nil
}

type malgoCapture struct {
	device   *malgo.Device
	name     string
	callback atomic.Pointer[DataCallback]
}

func (c *malgoCapture) Start() error {
	return c.device.Start()
}

func (c *malgoCapture) Stop() {
	_ = c.device.Stop()
}

func (c *malgoCapture) Close() {
	c.device.Uninit()
}

func (c *malgoCapture) SetCallback(cb DataCallback) {
	c.callback.Store(&cb)
}

func (c *malgoCapture) ClearCallback() {
	c.callback.Store(nil)
}

func (c *malgoCapture) DeviceName() string {
	return c.name
}
