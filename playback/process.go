package playback

import (
	"os/exec"
	"sync"
)

// Handle is a running playback attempt. Wait blocks until the underlying
// process or stream finishes and must be called exactly once; Terminate is
// idempotent and safe to call from any goroutine.
type Handle interface {
	Wait() error
	PID() int
	Terminate()
}

// Runner starts an external player process. Tests substitute a fake.
type Runner func(name string, args ...string) (Handle, error)

type commandHandle struct {
	cmd  *exec.Cmd
	done chan error
	once sync.Once
}

// StartProcess launches the player in its own process group so Terminate
// reaches helper children too.
func StartProcess(name string, args ...string) (Handle, error) {
	cmd := exec.Command(name, args...)
	setProcAttr(cmd)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	h := &commandHandle{cmd: cmd, done: make(chan error, 1)}
	go func() {
		h.done <- cmd.Wait()
	}()
	return h, nil
}

func (h *commandHandle) Wait() error {
	return <-h.done
}

func (h *commandHandle) PID() int {
	return h.cmd.Process.Pid
}

func (h *commandHandle) Terminate() {
	h.once.Do(func() {
		terminateGroup(h.cmd)
	})
}

type libraryHandle struct {
	session Session
	once    sync.Once
}

func newLibraryHandle(s Session) Handle {
	return &libraryHandle{session: s}
}

func (h *libraryHandle) Wait() error {
	return <-h.session.Done()
}

func (h *libraryHandle) PID() int { return 0 }

func (h *libraryHandle) Terminate() {
	h.once.Do(h.session.Stop)
}
