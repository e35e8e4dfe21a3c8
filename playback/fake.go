package playback

import (
	"sync"
	"sync/atomic"
)

// FakeHandle is a Handle whose exit the test controls.
type FakeHandle struct {
	pid        int
	done       chan error
	exitOnce   sync.Once
	terminated atomic.Bool
}

func NewFakeHandle(pid int) *FakeHandle {
	return &FakeHandle{pid: pid, done: make(chan error, 1)}
}

func (h *FakeHandle) Wait() error { return <-h.done }
func (h *FakeHandle) PID() int    { return h.pid }

func (h *FakeHandle) Terminate() {
	h.terminated.Store(true)
	h.SimExit(errSimTerminated)
}

func (h *FakeHandle) Terminated() bool { return h.terminated.Load() }

// SimExit completes the handle with the given error; later calls no-op.
func (h *FakeHandle) SimExit(err error) {
	h.exitOnce.Do(func() { h.done <- err })
}

type simError string

func (e simError) Error() string { return string(e) }

const errSimTerminated = simError("terminated")

// StartedCommand records one fake process launch.
type StartedCommand struct {
	Name   string
	Args   []string
	Handle *FakeHandle
}

// FakeRunner hands out FakeHandles instead of real processes. Commands
// listed in FailFor refuse to start with that error.
type FakeRunner struct {
	mu      sync.Mutex
	started []StartedCommand
	nextPID int

	FailFor map[string]error
}

func NewFakeRunner() *FakeRunner {
	return &FakeRunner{nextPID: 1000, FailFor: make(map[string]error)}
}

func (r *FakeRunner) Run(name string, args ...string) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.FailFor[name]; ok && err != nil {
		return nil, err
	}
	r.nextPID++
	h := NewFakeHandle(r.nextPID)
	r.started = append(r.started, StartedCommand{Name: name, Args: args, Handle: h})
	return h, nil
}

func (r *FakeRunner) Started() []StartedCommand {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StartedCommand(nil), r.started...)
}

func (r *FakeRunner) Last() *StartedCommand {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.started) == 0 {
		return nil
	}
	return &r.started[len(r.started)-1]
}

// FakeSession is a library playback the test finishes by hand.
type FakeSession struct {
	Path   string
	Device string

	done     chan error
	exitOnce sync.Once
	stopped  atomic.Bool
}

func (s *FakeSession) Done() <-chan error { return s.done }

func (s *FakeSession) Stop() {
	s.stopped.Store(true)
	s.SimFinish(nil)
}

func (s *FakeSession) Stopped() bool { return s.stopped.Load() }

func (s *FakeSession) SimFinish(err error) {
	s.exitOnce.Do(func() { s.done <- err })
}

// FakeEngine returns FakeSessions, or PlayErr when set.
type FakeEngine struct {
	mu       sync.Mutex
	sessions []*FakeSession

	PlayErr error
}

func NewFakeEngine() *FakeEngine { return &FakeEngine{} }

func (e *FakeEngine) Play(path, device string) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.PlayErr != nil {
		return nil, e.PlayErr
	}
	s := &FakeSession{Path: path, Device: device, done: make(chan error, 1)}
	e.sessions = append(e.sessions, s)
	return s, nil
}

func (e *FakeEngine) Last() *FakeSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.sessions) == 0 {
		return nil
	}
	return e.sessions[len(e.sessions)-1]
}
