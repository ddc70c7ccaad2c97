package graph

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Manager owns the ID counter and the registry of pipelines. It replaces the
// process-wide counter and document registry: two Managers never share IDs,
// so independent tests and documents do not interfere.
//
// The counter and registry are safe for concurrent use. Everything below a
// Pipeline is not.
type Manager struct {
	nextID atomic.Int64

	mu        sync.RWMutex
	pipelines []*Pipeline
}

// NewManager creates an empty manager whose first allocated ID is 1.
func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) allocID() ItemID {
	return ItemID(m.nextID.Add(1))
}

// assign gives an item its ID the first time it is inserted into a list.
func (m *Manager) assign(id *ItemID) {
	if *id == 0 {
		*id = m.allocID()
	}
}

// NewPipeline creates and registers a pipeline targeting the given GL
// version (e.g. 330, 430).
func (m *Manager) NewPipeline(name string, glVersion int) *Pipeline {
	p := &Pipeline{
		manager:    m,
		name:       name,
		documentID: uuid.New(),
		glVersion:  glVersion,
	}
	m.assign(&p.id)

	m.mu.Lock()
	m.pipelines = append(m.pipelines, p)
	m.mu.Unlock()
	return p
}

// RemovePipeline tears the pipeline down (all commands and blocks are
// deleted) and unregisters it.
func (m *Manager) RemovePipeline(p *Pipeline) error {
	m.mu.Lock()
	idx := -1
	for i, candidate := range m.pipelines {
		if candidate == p {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return Errorf(ErrNotFound, "pipeline %q is not registered", p.Name())
	}
	m.pipelines = append(m.pipelines[:idx], m.pipelines[idx+1:]...)
	m.mu.Unlock()

	p.teardown()
	return nil
}

// Pipelines returns a snapshot of the registered pipelines in creation order.
func (m *Manager) Pipelines() []*Pipeline {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Pipeline, len(m.pipelines))
	copy(out, m.pipelines)
	return out
}

// PipelineByName returns the first pipeline with the given name.
func (m *Manager) PipelineByName(name string) (*Pipeline, bool) {
	for _, p := range m.Pipelines() {
		if p.name == name {
			return p, true
		}
	}
	return nil, false
}

// FindPipeline looks a pipeline up by its document identity.
func (m *Manager) FindPipeline(documentID uuid.UUID) (*Pipeline, bool) {
	for _, p := range m.Pipelines() {
		if p.documentID == documentID {
			return p, true
		}
	}
	return nil, false
}

// FindItem searches every pipeline for an item with the given ID.
func (m *Manager) FindItem(id ItemID) (Item, *Pipeline, bool) {
	for _, p := range m.Pipelines() {
		if item, ok := p.FindItem(id); ok {
			return item, p, true
		}
	}
	return nil, nil, false
}
