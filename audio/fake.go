package audio

import (
	"encoding/binary"
	"sync"
	"sync/atomic"
)

// FakeContext is an in-memory Context for tests and the -test harness.
// The device list is fixed at construction; captures are fed by the test.
type FakeContext struct {
	DeviceList []Device
	FailAll    bool

	mu       sync.Mutex
	captures []*FakeCapture
}

func NewFakeContext(devices ...Device) *FakeContext {
	if len(devices) == 0 {
		devices = []Device{
			{ID: "pulse-0", Name: "Built-in Audio", Kind: KindOutput, Default: true, Description: "alsa_output.pci-0000_00_1f.3.analog-stereo"},
			{ID: "pulse-1", Name: "Soundboard Virtual Output", Kind: KindVirtual, Virtual: true, Description: "soundboard-output"},
			{ID: "pulse-2", Name: "Built-in Audio", Kind: KindMonitor, Monitor: true, Description: "alsa_output.pci-0000_00_1f.3.analog-stereo.monitor"},
			{ID: "pulse-3", Name: "Built-in Microphone", Kind: KindInput, Default: true, Description: "Built-in"},
		}
	}
	return &FakeContext{DeviceList: devices}
}

func (f *FakeContext) Devices() []Device {
	if f.FailAll {
		return FallbackDevices()
	}
	return f.DeviceList
}

func (f *FakeContext) resolve(ref DeviceRef, want func(Device) bool) (string, error) {
	if ref.Kind == RefDefault {
		return "", nil
	}
	for _, d := range f.DeviceList {
		if !want(d) {
			continue
		}
		if d.ID == ref.String() || d.Description == ref.Name || d.Name == ref.Name {
			return d.Description, nil
		}
	}
	return "", ErrDeviceNotFound
}

func (f *FakeContext) ResolveSinkName(ref DeviceRef) (string, error) {
	return f.resolve(ref, func(d Device) bool {
		return d.Kind == KindOutput || d.Kind == KindVirtual
	})
}

func (f *FakeContext) ResolveSourceName(ref DeviceRef) (string, error) {
	return f.resolve(ref, func(d Device) bool {
		return d.Kind == KindInput || d.Kind == KindMonitor
	})
}

func (f *FakeContext) NewCapture(sourceName string, config CaptureConfig) (CaptureDevice, error) {
	c := &FakeCapture{name: sourceName, config: config}
	if c.name == "" {
		c.name = "fake default"
	}
	f.mu.Lock()
	f.captures = append(f.captures, c)
	f.mu.Unlock()
	return c, nil
}

func (f *FakeContext) Close() {}

// LastCapture returns the most recently created capture, or nil.
func (f *FakeContext) LastCapture() *FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.captures) == 0 {
		return nil
	}
	return f.captures[len(f.captures)-1]
}

type FakeCapture struct {
	name     string
	config   CaptureConfig
	callback atomic.Pointer[DataCallback]
	started  atomic.Bool
}

func (c *FakeCapture) Start() error {
	c.started.Store(true)
	return nil
}

func (c *FakeCapture) Stop() {
	c.started.Store(false)
}

func (c *FakeCapture) Close() {
	c.Stop()
}

func (c *FakeCapture) SetCallback(cb DataCallback) {
	c.callback.Store(&cb)
}

func (c *FakeCapture) ClearCallback() {
	c.callback.Store(nil)
}

func (c *FakeCapture) DeviceName() string {
	return c.name
}

func (c *FakeCapture) Started() bool {
	return c.started.Load()
}

// SimFeed delivers raw 16-bit mono PCM to the registered callback, as the
// real backend would from the device thread.
func (c *FakeCapture) SimFeed(pcm []byte) {
	if !c.started.Load() {
		return
	}
	cb := c.callback.Load()
	if cb == nil {
		return
	}
	(*cb)(pcm, uint32(len(pcm)/2))
}

// SimFeedSamples converts int16 samples to bytes and feeds them.
func (c *FakeCapture) SimFeedSamples(samples []int16) {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	c.SimFeed(pcm)
}

// SimSilence feeds n frames of zeroed PCM.
func (c *FakeCapture) SimSilence(n int) {
	c.SimFeed(make([]byte, n*2))
}
