package resilience

import (
	"sort"
	"strings"
	"sync"
)

// Registry hands out one breaker per name so that state survives across
// requests for the same resource.
type Registry struct {
	defaults  Settings
	overrides sync.Map // name -> Settings
	breakers  sync.Map // name -> *Breaker
	listeners []func(Event)
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithListener adds a listener that receives events from every breaker the
// registry creates.
func WithListener(fn func(Event)) RegistryOption {
	return func(r *Registry) {
		if fn != nil {
			r.listeners = append(r.listeners, fn)
		}
	}
}

// NewRegistry creates a registry whose breakers use defaults unless
// overridden with Configure.
func NewRegistry(defaults Settings, opts ...RegistryOption) *Registry {
	r := &Registry{defaults: defaults}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Key joins parts into a breaker name, e.g. Key("product-details", "3").
func Key(parts ...string) string {
	return strings.Join(parts, "-")
}

// Configure sets per-name settings. Zero fields fall back to the registry
// defaults. It has no effect on a breaker that already exists.
func (r *Registry) Configure(name string, settings Settings) {
	r.overrides.Store(name, settings)
}

// Get returns the breaker for name, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	if b, ok := r.breakers.Load(name); ok {
		return b.(*Breaker)
	}

	actual, _ := r.breakers.LoadOrStore(name, New(name, r.settingsFor(name)))
	return actual.(*Breaker)
}

// Lookup returns an existing breaker without creating one.
func (r *Registry) Lookup(name string) (*Breaker, bool) {
	b, ok := r.breakers.Load(name)
	if !ok {
		return nil, false
	}
	return b.(*Breaker), true
}

// Names returns the sorted names of all created breakers.
func (r *Registry) Names() []string {
	var names []string
	r.breakers.Range(func(key, _ any) bool {
		names = append(names, key.(string))
		return true
	})
	sort.Strings(names)
	return names
}

// Len returns the number of created breakers.
func (r *Registry) Len() int {
	n := 0
	r.breakers.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Snapshot returns stats for every breaker, sorted by name.
func (r *Registry) Snapshot() []Stats {
	names := r.Names()
	stats := make([]Stats, 0, len(names))
	for _, name := range names {
		if b, ok := r.Lookup(name); ok {
			stats = append(stats, b.Stats())
		}
	}
	return stats
}

func (r *Registry) settingsFor(name string) Settings {
	s := r.defaults
	if v, ok := r.overrides.Load(name); ok {
		s = merge(s, v.(Settings))
	}

	own := s.OnEvent
	listeners := r.listeners
	if own != nil || len(listeners) > 0 {
		s.OnEvent = func(ev Event) {
			if own != nil {
				own(ev)
			}
			for _, fn := range listeners {
				fn(ev)
			}
		}
	}
	return s
}

func merge(base, over Settings) Settings {
	if over.CallTimeout > 0 {
		base.CallTimeout = over.CallTimeout
	}
	if over.ErrorThresholdPercentage > 0 {
		base.ErrorThresholdPercentage = over.ErrorThresholdPercentage
	}
	if over.VolumeThreshold > 0 {
		base.VolumeThreshold = over.VolumeThreshold
	}
	if over.ResetTimeout > 0 {
		base.ResetTimeout = over.ResetTimeout
	}
	if over.RollingWindow > 0 {
		base.RollingWindow = over.RollingWindow
	}
	if over.Buckets > 0 {
		base.Buckets = over.Buckets
	}
	if over.IsFailure != nil {
		base.IsFailure = over.IsFailure
	}
	if over.OnEvent != nil {
		base.OnEvent = over.OnEvent
	}
	if over.Clock != nil {
		base.Clock = over.Clock
	}
	return base
}
