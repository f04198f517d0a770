package notifications

import "sync"

// Registry tracks the live channels of each online user.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]map[Channel]struct{}
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]map[Channel]struct{})}
}

// Add registers ch for userID and reports whether the user was offline before.
func (r *Registry) Add(userID string, ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.channels[userID]
	if !ok {
		set = make(map[Channel]struct{})
		r.channels[userID] = set
	}
	set[ch] = struct{}{}
	return !ok
}

// Remove drops ch and deletes the user entry once no channel is left.
// It reports whether the user went offline.
func (r *Registry) Remove(userID string, ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.channels[userID]
	if !ok {
		return false
	}
	delete(set, ch)
	if len(set) == 0 {
		delete(r.channels, userID)
		return true
	}
	return false
}

// IsOnline reports whether userID holds at least one channel.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels[userID]) > 0
}

// ConnectedCount returns the number of distinct online users.
func (r *Registry) ConnectedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}

// Status reports the connection state of userID.
func (r *Registry) Status(userID string) ConnectionStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := len(r.channels[userID])
	return ConnectionStatus{Online: count > 0, ConnectionCount: count}
}

// Channels returns a snapshot of the user's channels.
func (r *Registry) Channels(userID string) []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.channels[userID]
	if len(set) == 0 {
		return nil
	}
	out := make([]Channel, 0, len(set))
	for ch := range set {
		out = append(out, ch)
	}
	return out
}

// CloseAll closes every registered channel and empties the registry.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	channels := r.channels
	r.channels = make(map[string]map[Channel]struct{})
	r.mu.Unlock()

	for _, set := range channels {
		for ch := range set {
			_ = ch.Close()
		}
	}
}
