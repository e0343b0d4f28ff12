package plugin

import (
	"sync"

	"github.com/rotisserie/eris"
)

var (
	ErrDuplicatePlugin = eris.New("plugin already registered")
	ErrRegistrySealed  = eris.New("plugin registry is sealed")
)

// Registry is the ordered set of plugins the feeder runs. It is built at startup, sealed before the
// manager starts, and read-only afterwards.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	byName  map[string]Plugin
	sealed  bool
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Plugin)}
}

// Register appends p. Registration order decides which plugin wins a module name collision.
func (r *Registry) Register(plugins ...Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range plugins {
		if r.sealed {
			return eris.Wrapf(ErrRegistrySealed, "cannot register %q", p.Name())
		}
		if _, ok := r.byName[p.Name()]; ok {
			return eris.Wrapf(ErrDuplicatePlugin, "plugin %q", p.Name())
		}
		r.plugins = append(r.plugins, p)
		r.byName[p.Name()] = p
	}
	return nil
}

// Seal forbids further registration.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

func (r *Registry) Get(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[name]
	return p, ok
}

// All returns the plugins in registration order. The slice is a copy.
func (r *Registry) All() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plugin, len(r.plugins))
	copy(out, r.plugins)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}
