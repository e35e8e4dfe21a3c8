package audio

import (
	"fmt"
	"strconv"
	"strings"
)

// RefKind discriminates DeviceRef.
type RefKind int

const (
	RefDefault RefKind = iota
	RefPulse
	RefAlsa
	RefNamed
)

// DeviceRef is the parsed form of a device id string. Ids encode their
// backend: "pulse-<n>" (pulse sink/source index), "alsa-<n>" (ALSA card),
// a bare sentinel for known virtual devices ("soundboard-output",
// "vb-cable"), or empty/"default" for the system default. Parsing happens
// once at the boundary; controllers switch on Kind instead of re-matching
// prefixes.
type DeviceRef struct {
	Kind  RefKind
	Index uint32 // pulse index or ALSA card number
	Name  string // sentinel for RefNamed
}

func ParseRef(id string) DeviceRef {
	switch {
	case id == "" || id == "default":
		return DeviceRef{Kind: RefDefault}
	case strings.HasPrefix(id, "pulse-"):
		if n, err := strconv.ParseUint(id[len("pulse-"):], 10, 32); err == nil {
			return DeviceRef{Kind: RefPulse, Index: uint32(n)}
		}
		return DeviceRef{Kind: RefNamed, Name: id}
	case strings.HasPrefix(id, "alsa-"):
		if n, err := strconv.ParseUint(id[len("alsa-"):], 10, 32); err == nil {
			return DeviceRef{Kind: RefAlsa, Index: uint32(n)}
		}
		return DeviceRef{Kind: RefNamed, Name: id}
	default:
		return DeviceRef{Kind: RefNamed, Name: id}
	}
}

// String re-encodes the ref as a device id. ParseRef(r.String()) == r.
func (r DeviceRef) String() string {
	switch r.Kind {
	case RefPulse:
		return fmt.Sprintf("pulse-%d", r.Index)
	case RefAlsa:
		return fmt.Sprintf("alsa-%d", r.Index)
	case RefNamed:
		return r.Name
	default:
		return "default"
	}
}

func (r DeviceRef) IsDefault() bool {
	return r.Kind == RefDefault
}
