package hotkey

import "sync"

// FakeBackend registers combos in memory; tests fire them with SimPress.
type FakeBackend struct {
	mu       sync.Mutex
	bindings map[string]*fakeBinding

	FailRegister bool
	closed       bool
}

func NewFake() *FakeBackend {
	return &FakeBackend{bindings: make(map[string]*fakeBinding)}
}

type fakeBinding struct {
	owner *FakeBackend
	combo string
	fn    func()
}

func (f *FakeBackend) Register(combo string, fn func()) (Binding, error) {
	normalized, err := Normalize(combo)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailRegister {
		return nil, ErrNoKeyboards
	}
	binding := &fakeBinding{owner: f, combo: normalized, fn: fn}
	f.bindings[normalized] = binding
	return binding, nil
}

func (b *fakeBinding) Unregister() {
	f := b.owner
	f.mu.Lock()
	defer f.mu.Unlock()
	if current, ok := f.bindings[b.combo]; ok && current == b {
		delete(f.bindings, b.combo)
	}
}

func (f *FakeBackend) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.bindings = make(map[string]*fakeBinding)
}

// SimPress fires the callback registered for combo, if any. Synchronous,
// unlike the real backends.
func (f *FakeBackend) SimPress(combo string) bool {
	normalized, err := Normalize(combo)
	if err != nil {
		return false
	}
	f.mu.Lock()
	binding, ok := f.bindings[normalized]
	f.mu.Unlock()
	if !ok {
		return false
	}
	binding.fn()
	return true
}

// Registered reports whether combo currently holds an OS registration.
func (f *FakeBackend) Registered(combo string) bool {
	normalized, err := Normalize(combo)
	if err != nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.bindings[normalized]
	return ok
}
