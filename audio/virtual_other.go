//go:build !linux

package audio

// VirtualRouting is a no-op outside Linux. Virtual cables there are
// provided by third-party drivers (VB-Cable) and are not managed by us.
type VirtualRouting struct{}

func NewVirtualRouting(pactl string) *VirtualRouting {
	_ = pactl
	return &VirtualRouting{}
}

func (v *VirtualRouting) Apply(enabled, playbackLoopback, micLoopback bool) error {
	return nil
}

func (v *VirtualRouting) Teardown() {}

func (v *VirtualRouting) Active() bool { return false }
