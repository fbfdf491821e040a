// Package session models the external authentication lifecycle as a
// subscribe/unsubscribe bus: components register init/destroy callbacks and
// never invoke them outside the login/logout hook.
package session

import "sync"

// Listener receives session lifecycle callbacks.
type Listener interface {
	OnLogin()
	OnLogout()
}

// Bus broadcasts login/logout transitions to subscribed listeners.
type Bus struct {
	mu        sync.Mutex
	listeners []Listener
	loggedIn  bool
}

func NewBus() *Bus {
	return &Bus{listeners: make([]Listener, 0)}
}

// Subscribe adds a listener. If a session is already active the listener's
// OnLogin fires immediately, so late subscribers never miss the hook.
func (b *Bus) Subscribe(l Listener) {
	b.mu.Lock()
	b.listeners = append(b.listeners, l)
	active := b.loggedIn
	b.mu.Unlock()
	if active {
		l.OnLogin()
	}
}

// Unsubscribe removes a listener. A removed listener receives no further
// callbacks, including for a logout already in flight.
func (b *Bus) Unsubscribe(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, reg := range b.listeners {
		if reg == l {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			break
		}
	}
}

// Login marks the session active and notifies listeners. A no-op when a
// session is already active.
func (b *Bus) Login() {
	b.mu.Lock()
	if b.loggedIn {
		b.mu.Unlock()
		return
	}
	b.loggedIn = true
	listeners := b.snapshot()
	b.mu.Unlock()
	for _, l := range listeners {
		l.OnLogin()
	}
}

// Logout marks the session inactive and notifies listeners. A no-op when no
// session is active.
func (b *Bus) Logout() {
	b.mu.Lock()
	if !b.loggedIn {
		b.mu.Unlock()
		return
	}
	b.loggedIn = false
	listeners := b.snapshot()
	b.mu.Unlock()
	for _, l := range listeners {
		l.OnLogout()
	}
}

// LoggedIn reports whether a session is currently active.
func (b *Bus) LoggedIn() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loggedIn
}

func (b *Bus) snapshot() []Listener {
	out := make([]Listener, len(b.listeners))
	copy(out, b.listeners)
	return out
}
