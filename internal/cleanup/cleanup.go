// Package cleanup implements the per-request scoped resource manager
// (spec.md §4.6): a single-shot release mechanism that watches a stream's
// lifecycle events and guarantees registered callbacks run exactly once,
// regardless of how many events fire or how many times Run is called.
package cleanup

import (
	"sync"

	"mcpgateway/pkg/logging"
)

// Emitter is the narrow subscribe surface the Manager needs on whatever stream
// it is told to watch. Implementations may additionally support either
// unsubscribe style, both, or neither — on a stream that supports neither,
// listeners are still attached but are never detached, and Run's single-shot
// guard turns any later event into a no-op (spec.md §9, "Emitter abstraction").
type Emitter interface {
	On(event string, listener func(args ...interface{}))
}

// Off-style and RemoveListener-style detachment are optional capabilities an
// Emitter may additionally implement.
type offEmitter interface {
	Off(event string, listener func(args ...interface{}))
}

type removeListenerEmitter interface {
	RemoveListener(event string, listener func(args ...interface{}))
}

type subscription struct {
	emitter  Emitter
	event    string
	listener func(args ...interface{})
}

// Manager is a per-request, single-shot cleanup coordinator. The zero value
// is not usable; construct with New.
type Manager struct {
	profileName string

	mu            sync.Mutex
	triggered     bool
	callbacks     []func()
	subscriptions []subscription
}

// New builds a Manager scoped to one inbound request for the named profile
// (used only to annotate the warning log emitted when cause is an error).
func New(profileName string) *Manager {
	return &Manager{profileName: profileName}
}

// Register appends a cleanup callback, run (at most once, and concurrently
// with any others) when Run fires.
func (m *Manager) Register(callback func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// WatchEmitter installs a listener on each named event of emitter; the
// listener calls Run with the event's first argument as cause if it is an
// error. A nil emitter is a no-op.
func (m *Manager) WatchEmitter(emitter Emitter, events ...string) {
	if emitter == nil {
		return
	}
	for _, event := range events {
		event := event
		listener := func(args ...interface{}) {
			var cause error
			if len(args) > 0 {
				if err, ok := args[0].(error); ok {
					cause = err
				}
			}
			m.Run(cause)
		}
		emitter.On(event, listener)

		m.mu.Lock()
		m.subscriptions = append(m.subscriptions, subscription{emitter: emitter, event: event, listener: listener})
		m.mu.Unlock()
	}
}

// Run triggers cleanup, at most once. Detaches every subscription before
// invoking registered callbacks, concurrently and independently; any
// callback's panic or the caller's own error reporting is caught and logged
// at warn without preventing the others from running.
func (m *Manager) Run(cause error) {
	m.mu.Lock()
	if m.triggered {
		m.mu.Unlock()
		return
	}
	m.triggered = true
	subs := m.subscriptions
	m.subscriptions = nil
	callbacks := m.callbacks
	m.mu.Unlock()

	if cause != nil {
		logging.Warn("Cleanup", "profile %s: cleanup triggered by error: %v", m.profileName, cause)
	}

	for _, s := range subs {
		detach(s)
	}

	var wg sync.WaitGroup
	for _, cb := range callbacks {
		cb := cb
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logging.Warn("Cleanup", "profile %s: cleanup callback panicked: %v", m.profileName, r)
				}
			}()
			cb()
		}()
	}
	wg.Wait()
}

// detach prefers an Off-style API, falling back to RemoveListener-style, and
// is a no-op if the emitter supports neither.
func detach(s subscription) {
	if off, ok := s.emitter.(offEmitter); ok {
		off.Off(s.event, s.listener)
		return
	}
	if rl, ok := s.emitter.(removeListenerEmitter); ok {
		rl.RemoveListener(s.event, s.listener)
	}
}
