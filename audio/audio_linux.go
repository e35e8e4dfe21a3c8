//go:build linux

package audio

import (
	"encoding/binary"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

const invalidIndex = 0xffffffff

type pulseContext struct {
	client *pulse.Client
	aplay  string
}

// NewContext connects to the PulseAudio (or pipewire-pulse) server. aplay
// is the binary used for the secondary ALSA card scan; empty disables it.
func NewContext(aplay string) (Context, error) {
	c, err := pulse.NewClient()
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulseContext{client: c, aplay: aplay}, nil
}

func (p *pulseContext) Close() {
	p.client.Close()
}

func (p *pulseContext) serverDefaults() (sink, source string) {
	var rep proto.GetServerInfoReply
	if err := p.client.RawRequest(&proto.GetServerInfo{}, &rep); err != nil {
		return "", ""
	}
	return rep.DefaultSinkName, rep.DefaultSourceName
}

func (p *pulseContext) sinkInfos() ([]*proto.GetSinkInfoReply, error) {
	var rep proto.GetSinkInfoListReply
	if err := p.client.RawRequest(&proto.GetSinkInfoList{}, &rep); err != nil {
		return nil, fmt.Errorf("pulse list sinks: %w", err)
	}
	return rep, nil
}

func (p *pulseContext) sourceInfos() ([]*proto.GetSourceInfoReply, error) {
	var rep proto.GetSourceInfoListReply
	if err := p.client.RawRequest(&proto.GetSourceInfoList{}, &rep); err != nil {
		return nil, fmt.Errorf("pulse list sources: %w", err)
	}
	return rep, nil
}

// Devices assembles the inventory: pulse sinks, ALSA cards, the known
// virtual devices, then pulse sources (monitors and inputs). Each step is
// independently fault-tolerant; only when every backend query fails does
// the result degrade to the synthetic default entry.
func (p *pulseContext) Devices() []Device {
	defaultSink, defaultSource := p.serverDefaults()

	var devices []Device
	failures := 0

	sinks, err := p.sinkInfos()
	if err != nil {
		failures++
	}
	for _, s := range sinks {
		if IsMonitorName(s.SinkName) {
			continue
		}
		d := Device{
			ID:          fmt.Sprintf("pulse-%d", s.SinkIndex),
			Name:        s.Device,
			Kind:        KindOutput,
			Default:     s.SinkName == defaultSink,
			Description: s.SinkName,
		}
		if d.Name == "" {
			d.Name = s.SinkName
		}
		if IsVirtualName(s.SinkName) || IsVirtualName(s.Device) {
			d.Kind = KindVirtual
			d.Virtual = true
		}
		devices = append(devices, d)
	}

	if p.aplay != "" {
		cards, err := p.alsaCards()
		if err != nil {
			failures++
		}
		devices = append(devices, cards...)
	} else {
		failures++
	}

	for _, kv := range KnownVirtualDevices() {
		if !HasDevice(devices, kv.ID) {
			devices = append(devices, kv)
		}
	}

	sources, err := p.sourceInfos()
	if err != nil {
		failures++
	}
	for _, s := range sources {
		d := Device{
			ID:          fmt.Sprintf("pulse-%d", s.SourceIndex),
			Name:        s.Device,
			Description: s.SourceName,
		}
		if d.Name == "" {
			d.Name = s.SourceName
		}
		if IsMonitorName(s.SourceName) {
			d.Kind = KindMonitor
			d.Monitor = true
			// Description keeps the raw source name for capture tools.
			d.Description = s.SourceName
			d.Name = strings.TrimSuffix(s.SourceName, ".monitor")
			if desc := monitorDescription(s, sinks); desc != "" {
				d.Name = desc
			}
		} else {
			d.Kind = KindInput
			d.Default = s.SourceName == defaultSource
			d.Description = InputLabel(d.Name)
		}
		devices = append(devices, d)
	}

	if failures == 3 && len(devices) == len(KnownVirtualDevices()) {
		return FallbackDevices()
	}
	if len(devices) == 0 {
		return FallbackDevices()
	}
	return devices
}

// monitorDescription resolves a monitor source to the human description of
// the sink it mirrors.
func monitorDescription(s *proto.GetSourceInfoReply, sinks []*proto.GetSinkInfoReply) string {
	if s.MonitorSourceIndex == invalidIndex {
		return ""
	}
	for _, sink := range sinks {
		if sink.SinkIndex == s.MonitorSourceIndex {
			return sink.Device
		}
	}
	return ""
}

func (p *pulseContext) alsaCards() ([]Device, error) {
	out, err := exec.Command(p.aplay, "-l").Output()
	if err != nil {
		return nil, fmt.Errorf("aplay -l: %w", err)
	}
	return parseAlsaCards(string(out)), nil
}

// parseAlsaCards extracts one Device per card from `aplay -l` output.
// Lines look like:
//
//	card 0: PCH [HDA Intel PCH], device 0: ALC892 Analog [ALC892 Analog]
func parseAlsaCards(out string) []Device {
	var devices []Device
	seen := make(map[string]bool)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "card ") {
			continue
		}
		rest := line[len("card "):]
		colon := strings.Index(rest, ":")
		if colon < 0 {
			continue
		}
		num := rest[:colon]
		if _, err := strconv.Atoi(num); err != nil {
			continue
		}
		id := "alsa-" + num
		if seen[id] {
			continue
		}
		seen[id] = true

		label := strings.TrimSpace(strings.SplitN(rest[colon+1:], ",", 2)[0])
		desc := ""
		if open := strings.Index(label, "["); open >= 0 {
			if end := strings.Index(label[open:], "]"); end > 0 {
				desc = label[open+1 : open+end]
			}
			label = strings.TrimSpace(label[:open])
		}
		name := desc
		if name == "" {
			name = label
		}

		d := Device{ID: id, Name: name, Kind: KindOutput, Description: "ALSA card " + num}
		if IsVirtualName(name) || IsVirtualName(label) {
			d.Kind = KindVirtual
			d.Virtual = true
		}
		devices = append(devices, d)
	}
	return devices
}

func (p *pulseContext) ResolveSinkName(ref DeviceRef) (string, error) {
	switch ref.Kind {
	case RefDefault:
		return "", nil
	case RefPulse:
		sinks, err := p.sinkInfos()
		if err != nil {
			return "", err
		}
		for _, s := range sinks {
			if s.SinkIndex == ref.Index {
				return s.SinkName, nil
			}
		}
		return "", ErrDeviceNotFound
	case RefNamed:
		sinks, err := p.sinkInfos()
		if err != nil {
			return "", err
		}
		for _, s := range sinks {
			if strings.Contains(s.SinkName, ref.Name) {
				return s.SinkName, nil
			}
		}
		return "", ErrDeviceNotFound
	default:
		return "", ErrDeviceNotFound
	}
}

func (p *pulseContext) ResolveSourceName(ref DeviceRef) (string, error) {
	switch ref.Kind {
	case RefDefault:
		return "", nil
	case RefPulse:
		sources, err := p.sourceInfos()
		if err != nil {
			return "", err
		}
		for _, s := range sources {
			if s.SourceIndex == ref.Index {
				return s.SourceName, nil
			}
		}
		return "", ErrDeviceNotFound
	case RefNamed:
		sources, err := p.sourceInfos()
		if err != nil {
			return "", err
		}
		for _, s := range sources {
			if strings.Contains(s.SourceName, ref.Name) {
				return s.SourceName, nil
			}
		}
		return "", ErrDeviceNotFound
	default:
		return "", ErrDeviceNotFound
	}
}

func (p *pulseContext) NewCapture(sourceName string, config CaptureConfig) (CaptureDevice, error) {
	return &pulseCapture{
		client: p.client,
		source: sourceName,
		config: config,
	}, nil
}

type pulseCapture struct {
	client   *pulse.Client
	source   string
	config   CaptureConfig
	callback atomic.Pointer[DataCallback]

	stream *pulse.RecordStream
	mu     sync.Mutex
	stop   chan struct{}
	done   chan struct{}
}

func (c *pulseCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	writer := pulse.Int16Writer(func(buf []int16) (int, error) {
		if len(buf) == 0 {
			return 0, nil
		}
		cb := c.callback.Load()
		if cb == nil {
			return len(buf), nil
		}
		data := make([]byte, len(buf)*2)
		for i, s := range buf {
			binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
		}
		(*cb)(data, uint32(len(buf)))
		return len(buf), nil
	})

	opts := []pulse.RecordOption{
		pulse.RecordMono,
		pulse.RecordSampleRate(int(c.config.SampleRate)),
		pulse.RecordLatency(0.05),
	}
	if c.source != "" {
		source, err := c.client.SourceByID(c.source)
		if err == nil && source != nil {
			opts = append(opts, pulse.RecordSource(source))
		}
	}

	stream, err := c.client.NewRecord(writer, opts...)
	if err != nil {
		return fmt.Errorf("pulse record: %w", err)
	}

	c.stream = stream
	c.stop = make(chan struct{})
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		stream.Start()
		<-c.stop
		stream.Stop()
		stream.Close()
	}()

	return nil
}

func (c *pulseCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		select {
		case <-c.stop:
		default:
			close(c.stop)
		}
		<-c.done
	}
}

func (c *pulseCapture) Close() {
	c.Stop()
}

func (c *pulseCapture) SetCallback(cb DataCallback) {
	c.callback.Store(&cb)
}

func (c *pulseCapture) ClearCallback() {
	c.callback.Store(nil)
}

func (c *pulseCapture) DeviceName() string {
	if c.source != "" {
		return c.source
	}
	return "system default"
}
