package playback

import (
	"errors"
	"fmt"

	"soundboard/audio"
)

// ErrExhausted reports that every strategy in the chain failed to start.
var ErrExhausted = errors.New("all playback strategies exhausted")

// errNotApplicable is returned by a strategy that cannot express the
// requested route; the chain moves on without counting it as a failure.
var errNotApplicable = errors.New("strategy not applicable")

// Request carries one resolved playback attempt through the chain.
type Request struct {
	Path string
	Ref  audio.DeviceRef
	// Sink is the resolved backend device name, empty for the default.
	Sink string
}

// Strategy is one rung of the fallback ladder. Start either hands back a
// running Handle or an error that sends the chain to the next rung.
type Strategy struct {
	Name  string
	Start func(req Request) (Handle, error)
}

// DefaultChain builds the standard ladder: device-targeted player command,
// native library, then bare aplay and paplay with no device argument.
func DefaultChain(paplay, aplay string, engine Engine, run Runner) []Strategy {
	return []Strategy{
		DeviceCommandStrategy(paplay, aplay, run),
		LibraryStrategy(engine),
		DirectCommandStrategy("direct-alsa", aplay, run),
		DirectCommandStrategy("direct-pulse", paplay, run),
	}
}

// DeviceCommandStrategy shells out with an explicit device argument. It
// only applies when the request names a concrete route.
func DeviceCommandStrategy(paplay, aplay string, run Runner) Strategy {
	return Strategy{
		Name: "device-command",
		Start: func(req Request) (Handle, error) {
			switch {
			case req.Ref.Kind == audio.RefAlsa:
				return run(aplay, "-D", fmt.Sprintf("plughw:%d,0", req.Ref.Index), req.Path)
			case req.Sink != "":
				return run(paplay, "--device="+req.Sink, req.Path)
			default:
				return nil, errNotApplicable
			}
		},
	}
}

// LibraryStrategy plays through the in-process engine.
func LibraryStrategy(engine Engine) Strategy {
	return Strategy{
		Name: "library",
		Start: func(req Request) (Handle, error) {
			if req.Ref.Kind == audio.RefAlsa {
				return nil, errNotApplicable
			}
			session, err := engine.Play(req.Path, req.Sink)
			if err != nil {
				return nil, err
			}
			return newLibraryHandle(session), nil
		},
	}
}

// DirectCommandStrategy shells out with no device argument, landing on
// whatever the system considers default.
func DirectCommandStrategy(name, player string, run Runner) Strategy {
	return Strategy{
		Name: name,
		Start: func(req Request) (Handle, error) {
			return run(player, req.Path)
		},
	}
}
