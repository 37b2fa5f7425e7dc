package devices

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ogulcanaydogan/pulse-guardian/pkg/model"
)

// ErrNotFound is returned for unknown device ids.
var ErrNotFound = errors.New("device not found")

// Registry holds the paired devices by id.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]model.Device
}

// NewRegistry creates an empty device registry.
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[string]model.Device),
	}
}

// NewRegistryWith creates a registry pre-populated with devices.
func NewRegistryWith(devices []model.Device) (*Registry, error) {
	r := NewRegistry()
	for _, d := range devices {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a device to the registry.
func (r *Registry) Register(d model.Device) error {
	if d.ID == "" {
		return errors.New("device id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.devices[d.ID]; exists {
		return fmt.Errorf("device %q already registered", d.ID)
	}
	r.devices[d.ID] = d
	return nil
}

// Get returns a device by id.
func (r *Registry) Get(id string) (model.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return model.Device{}, fmt.Errorf("device %q: %w", id, ErrNotFound)
	}
	return d, nil
}

// List returns every device ordered by name.
func (r *Registry) List() []model.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// SetConnected records whether a device is currently being polled.
func (r *Registry) SetConnected(id string, connected bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return fmt.Errorf("device %q: %w", id, ErrNotFound)
	}
	d.Connected = connected
	r.devices[id] = d
	return nil
}
