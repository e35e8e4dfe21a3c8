package audio

import (
	"errors"
	"strings"
)

// Fixed clip format. Every recorded file and every playback path assumes
// this; changing it breaks externally spawned players and recorders alike.
const (
	SampleRate    = 44100
	Channels      = 1
	BitsPerSample = 16

	WAVHeaderSize = 44
)

var ErrDeviceNotFound = errors.New("audio: device not found")

type DeviceKind string

const (
	KindOutput  DeviceKind = "output"
	KindInput   DeviceKind = "input"
	KindVirtual DeviceKind = "virtual"
	KindMonitor DeviceKind = "monitor"
)

// Device is a point-in-time view of one audio endpoint. Recomputed on every
// inventory query, never persisted.
type Device struct {
	ID          string
	Name        string
	Kind        DeviceKind
	Default     bool
	Virtual     bool
	Monitor     bool
	Description string
}

// FallbackDevices is what the inventory degrades to when every backend
// query fails: playback through the system default still works.
func FallbackDevices() []Device {
	return []Device{{ID: "default", Name: "System Default", Kind: KindOutput, Default: true}}
}

// VirtualSinkName is the null sink this program creates for routing clip
// audio into calls.
const VirtualSinkName = "soundboard-output"

// KnownVirtualDevices are offered as selectable routing targets even before
// they physically exist (the null sink is created on demand, VB-Cable by an
// installer).
func KnownVirtualDevices() []Device {
	return []Device{
		{ID: VirtualSinkName, Name: "Soundboard Virtual Output", Kind: KindVirtual, Virtual: true},
		{ID: "vb-cable", Name: "VB-Audio Virtual Cable", Kind: KindVirtual, Virtual: true},
	}
}

var virtualKeywords = []string{"virtual", "null", "soundboard-output"}

func IsVirtualName(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range virtualKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func IsMonitorName(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "monitor") || strings.Contains(lower, "loopback")
}

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]", "bluez",
}

func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// InputLabel classifies a capture device by name for display purposes.
func InputLabel(name string) string {
	lower := strings.ToLower(name)
	switch {
	case IsBluetooth(name):
		return "Bluetooth"
	case strings.Contains(lower, "usb"):
		return "USB"
	default:
		return "Built-in"
	}
}

// HasDevice reports whether id names a device in the given inventory.
func HasDevice(devices []Device, id string) bool {
	for _, d := range devices {
		if d.ID == id {
			return true
		}
	}
	return false
}

type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

// Context is the audio backend: device inventory plus capture streams.
// Devices never fails; it degrades to FallbackDevices instead.
type Context interface {
	Devices() []Device
	ResolveSinkName(ref DeviceRef) (string, error)
	ResolveSourceName(ref DeviceRef) (string, error)
	NewCapture(sourceName string, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

// Unavailable is the Context used when the backend cannot be reached at
// all. The inventory contract still holds.
func Unavailable(err error) Context {
	return &unavailableContext{err: err}
}

type unavailableContext struct {
	err error
}

func (u *unavailableContext) Devices() []Device { return FallbackDevices() }

func (u *unavailableContext) ResolveSinkName(DeviceRef) (string, error) {
	return "", ErrDeviceNotFound
}

func (u *unavailableContext) ResolveSourceName(DeviceRef) (string, error) {
	return "", ErrDeviceNotFound
}

func (u *unavailableContext) NewCapture(string, CaptureConfig) (CaptureDevice, error) {
	return nil, u.err
}

func (u *unavailableContext) Close() {}
