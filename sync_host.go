package hsm

import "github.com/enetx/g"

// NewSyncHost wraps host so that its dispatches are serialized.
func NewSyncHost(host Host) *SyncHost {
	return &SyncHost{host: host}
}

// Dispatch is the serialized version of Dispatch.
// Callbacks receive the wrapped host, not the SyncHost.
func (sh *SyncHost) Dispatch(event *Event) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	return Dispatch(sh.host, event)
}

// State returns the wrapped host's current state. It never observes the empty
// state a host holds between the exit and enter phases of a dispatch.
func (sh *SyncHost) State() g.String {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	return sh.host.State()
}

// Reinitialize is the serialized version of Reinitialize.
func (sh *SyncHost) Reinitialize() error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	return Reinitialize(sh.host)
}

// Do runs fn with exclusive access to the wrapped host.
func (sh *SyncHost) Do(fn func(Host) error) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	return fn(sh.host)
}
