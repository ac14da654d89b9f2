package chaos

import "sync"

// Broadcaster is told about every settings change.
type Broadcaster interface {
	Broadcast(settings Settings)
}

// BroadcastFunc adapts a plain function to Broadcaster.
type BroadcastFunc func(Settings)

// Broadcast calls f(settings).
func (f BroadcastFunc) Broadcast(settings Settings) {
	f(settings)
}

// Store owns the live settings. Every request reads a Snapshot; every
// mutation is validated, applied and then broadcast with the merged result.
type Store struct {
	mu      sync.RWMutex
	current Settings
	initial Settings

	// serializes mutate+broadcast so observers see updates in order
	publishMu   sync.Mutex
	subscribers []Broadcaster
}

// NewStore creates a store seeded with initial. Subscribers may be nil.
func NewStore(initial Settings, subscribers ...Broadcaster) *Store {
	s := &Store{current: initial, initial: initial}
	for _, b := range subscribers {
		if b != nil {
			s.subscribers = append(s.subscribers, b)
		}
	}
	return s
}

// Subscribe adds a broadcaster for later updates.
func (s *Store) Subscribe(b Broadcaster) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	s.subscribers = append(s.subscribers, b)
}

// Snapshot returns the settings in effect now.
func (s *Store) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Initial returns the settings the store started with.
func (s *Store) Initial() Settings {
	return s.initial
}

// Update merges p into the current settings. An invalid result leaves the
// store untouched and nothing is broadcast.
func (s *Store) Update(p Patch) (Settings, error) {
	return s.publish(func(current Settings) (Settings, error) {
		next := p.Apply(current)
		if err := next.Validate(); err != nil {
			return current, err
		}
		return next, nil
	})
}

// Reset restores the initial settings.
func (s *Store) Reset() Settings {
	next, _ := s.publish(func(Settings) (Settings, error) {
		return s.initial, nil
	})
	return next
}

// Apply replaces the settings with the preset laid over the initial ones,
// so applying the same preset always yields the same result.
func (s *Store) Apply(preset Preset) (Settings, error) {
	return s.publish(func(current Settings) (Settings, error) {
		next := preset.Patch.Apply(s.initial)
		if err := next.Validate(); err != nil {
			return current, err
		}
		return next, nil
	})
}

func (s *Store) publish(mutate func(Settings) (Settings, error)) (Settings, error) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	next, err := mutate(s.current)
	if err != nil {
		s.mu.Unlock()
		return next, err
	}
	s.current = next
	s.mu.Unlock()

	for _, b := range s.subscribers {
		b.Broadcast(next)
	}
	return next, nil
}
