// Package registry holds the explicit set of servable models and their
// announced pricing. The validator consumes it as its supported-model set;
// nothing here is read from ambient state.
package registry

import (
	"sort"
	"sync"

	"github.com/dexloom/lloom/logging"
	"github.com/dexloom/lloom/protocol"
)

type Registry struct {
	mu     sync.RWMutex
	models map[string]protocol.ModelDescriptor
}

func New() *Registry {
	return &Registry{models: make(map[string]protocol.ModelDescriptor)}
}

// NewFromDescriptors seeds a registry, typically from configuration.
func NewFromDescriptors(descriptors []protocol.ModelDescriptor) *Registry {
	r := New()
	for _, d := range descriptors {
		r.Announce(d)
	}
	return r
}

// Announce upserts a model descriptor.
func (r *Registry) Announce(d protocol.ModelDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[d.ModelID] = d
	logging.Debug("Announced model", protocol.Registry, "modelId", d.ModelID, "available", d.Available)
}

// Retire marks a model unavailable without forgetting its pricing.
func (r *Registry) Retire(modelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.models[modelID]
	if !ok {
		return
	}
	d.Available = false
	r.models[modelID] = d
	logging.Info("Retired model", protocol.Registry, "modelId", modelID)
}

// Supports reports whether the model is known and currently available.
func (r *Registry) Supports(modelID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.models[modelID]
	return ok && d.Available
}

func (r *Registry) Get(modelID string) (protocol.ModelDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.models[modelID]
	return d, ok
}

// List returns all descriptors ordered by model id.
func (r *Registry) List() []protocol.ModelDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]protocol.ModelDescriptor, 0, len(r.models))
	for _, d := range r.models {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModelID < out[j].ModelID })
	return out
}
