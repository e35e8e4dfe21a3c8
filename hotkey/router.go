package hotkey

import (
	"sync"
	"sync/atomic"
)

// Router owns the combo-to-clip table. One clip per combo, one combo per
// clip; a rebind silently steals the combo from its previous owner. The
// OS registration happens before the persistence hook runs, so a combo
// the OS refuses never reaches the store.
type Router struct {
	backend Backend
	persist func(clipID, combo string) error
	trigger func(clipID string)
	enabled atomic.Bool

	mu      sync.Mutex
	byCombo map[string]*routerEntry
	byClip  map[string]string
}

type routerEntry struct {
	clipID  string
	binding Binding
}

func NewRouter(backend Backend, persist func(clipID, combo string) error, trigger func(clipID string)) *Router {
	r := &Router{
		backend: backend,
		persist: persist,
		trigger: trigger,
		byCombo: make(map[string]*routerEntry),
		byClip:  make(map[string]string),
	}
	r.enabled.Store(true)
	return r
}

// SetEnabled gates dispatch only. Bindings stay registered while disabled
// so re-enabling needs no OS round trip.
func (r *Router) SetEnabled(v bool) {
	r.enabled.Store(v)
}

func (r *Router) Enabled() bool {
	return r.enabled.Load()
}

func (r *Router) fire(clipID string) {
	if !r.enabled.Load() {
		return
	}
	r.trigger(clipID)
}

// Bind routes combo to clipID, replacing any previous owner of the combo
// and any previous combo of the clip.
func (r *Router) Bind(clipID, combo string) error {
	if err := r.bind(clipID, combo); err != nil {
		return err
	}
	if r.persist != nil {
		normalized, _ := Normalize(combo)
		return r.persist(clipID, normalized)
	}
	return nil
}

func (r *Router) bind(clipID, combo string) error {
	normalized, err := Normalize(combo)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byClip[clipID] == normalized {
		return nil
	}

	if entry, ok := r.byCombo[normalized]; ok {
		entry.binding.Unregister()
		delete(r.byClip, entry.clipID)
		delete(r.byCombo, normalized)
	}
	if old, ok := r.byClip[clipID]; ok {
		if entry, ok := r.byCombo[old]; ok {
			entry.binding.Unregister()
			delete(r.byCombo, old)
		}
		delete(r.byClip, clipID)
	}

	binding, err := r.backend.Register(normalized, func() { r.fire(clipID) })
	if err != nil {
		return err
	}

	r.byCombo[normalized] = &routerEntry{clipID: clipID, binding: binding}
	r.byClip[clipID] = normalized
	return nil
}

// Unbind releases the clip's combo. Unknown clips are a no-op.
func (r *Router) Unbind(clipID string) error {
	r.mu.Lock()
	combo, ok := r.byClip[clipID]
	if ok {
		if entry, ok := r.byCombo[combo]; ok {
			entry.binding.Unregister()
			delete(r.byCombo, combo)
		}
		delete(r.byClip, clipID)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}
	if r.persist != nil {
		return r.persist(clipID, "")
	}
	return nil
}

// Combo reports the combo currently bound to the clip, if any.
func (r *Router) Combo(clipID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byClip[clipID]
}

// Replay restores stored bindings at startup without touching the store.
// Registration failures skip the combo; the stored value survives for the
// next run.
func (r *Router) Replay(bindings map[string]string) []error {
	var errs []error
	for clipID, combo := range bindings {
		if combo == "" {
			continue
		}
		if err := r.bind(clipID, combo); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (r *Router) Close() {
	r.mu.Lock()
	for _, entry := range r.byCombo {
		entry.binding.Unregister()
	}
	r.byCombo = make(map[string]*routerEntry)
	r.byClip = make(map[string]string)
	r.mu.Unlock()
	r.backend.Close()
}
