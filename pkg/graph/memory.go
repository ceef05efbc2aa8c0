package graph

import (
	"sync"

	"github.com/ajitpratap0/wpbridge/pkg/errors"
)

// MemorySink is an in-memory Sink for tests and dry runs.
type MemorySink struct {
	mu          sync.Mutex
	collections map[string]*MemoryCollection
}

// MemoryCollection holds the nodes registered for one entity type.
type MemoryCollection struct {
	Name  string
	Route string

	mu    sync.Mutex
	nodes []map[string]interface{}
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{collections: make(map[string]*MemoryCollection)}
}

// RegisterEntityType registers a collection; registering the same name
// twice returns the existing handle.
func (s *MemorySink) RegisterEntityType(name, route string) (Collection, error) {
	if name == "" {
		return nil, errors.New(errors.ErrorTypeData, "entity type name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[name]; ok {
		return c, nil
	}
	c := &MemoryCollection{Name: name, Route: route}
	s.collections[name] = c
	return c, nil
}

// Collection returns a registered collection, or nil.
func (s *MemorySink) Collection(name string) *MemoryCollection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collections[name]
}

// CollectionNames returns the names of all registered collections.
func (s *MemorySink) CollectionNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	return names
}

// AddNode stores one normalized node.
func (c *MemoryCollection) AddNode(fields map[string]interface{}) error {
	if _, ok := fields["id"]; !ok {
		return errors.New(errors.ErrorTypeData, "node is missing id").
			WithDetail("entity_type", c.Name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes = append(c.nodes, fields)
	return nil
}

// Nodes returns the nodes added so far.
func (c *MemoryCollection) Nodes() []map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]interface{}, len(c.nodes))
	copy(out, c.nodes)
	return out
}
