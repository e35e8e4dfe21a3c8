package playback

// Engine plays WAV files through the native audio library, as opposed to
// shelling out. device is a backend-specific identifier; empty means the
// system default output.
type Engine interface {
	Play(path, device string) (Session, error)
}

// Session is one in-flight library playback. Done yields the terminal
// error (nil for a clean finish) exactly once.
type Session interface {
	Done() <-chan error
	Stop()
}
