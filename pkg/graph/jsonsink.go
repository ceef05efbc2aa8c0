package graph

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gojson "github.com/goccy/go-json"

	"github.com/ajitpratap0/wpbridge/pkg/errors"
)

// JSONSink writes each registered entity type to a line-delimited JSON
// file (NDJSON) under one output directory, plus a manifest mapping
// entity type names to their display routes. It stands in for a real
// content-graph store when inspecting a run's output on disk.
type JSONSink struct {
	dir        string
	bufferSize int

	mu          sync.Mutex
	collections map[string]*jsonCollection
}

type jsonCollection struct {
	name  string
	route string

	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
}

// NewJSONSink creates a sink writing into dir, which is created if absent.
func NewJSONSink(dir string) (*JSONSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create output directory").
			WithDetail("dir", dir)
	}
	return &JSONSink{
		dir:         dir,
		bufferSize:  64 * 1024,
		collections: make(map[string]*jsonCollection),
	}, nil
}

// RegisterEntityType opens the NDJSON file for one entity type.
func (s *JSONSink) RegisterEntityType(name, route string) (Collection, error) {
	if name == "" {
		return nil, errors.New(errors.ErrorTypeData, "entity type name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[name]; ok {
		return c, nil
	}

	path := filepath.Join(s.dir, strings.ToLower(name)+".ndjson")
	file, err := os.Create(path) //nolint:gosec // G304: path derives from the output dir
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create collection file").
			WithDetail("path", path)
	}

	c := &jsonCollection{
		name:   name,
		route:  route,
		file:   file,
		writer: bufio.NewWriterSize(file, s.bufferSize),
	}
	s.collections[name] = c
	return c, nil
}

// Close flushes every collection file and writes the route manifest.
func (s *JSONSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	routes := make(map[string]string, len(s.collections))
	var firstErr error
	for name, c := range s.collections {
		routes[name] = c.route
		if err := c.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	manifest, err := gojson.MarshalIndent(routes, "", "  ")
	if err == nil {
		err = os.WriteFile(filepath.Join(s.dir, "manifest.json"), manifest, 0644) //nolint:gosec
	}
	if err != nil && firstErr == nil {
		firstErr = errors.Wrap(err, errors.ErrorTypeFile, "failed to write manifest")
	}

	return firstErr
}

// AddNode appends one normalized node as a JSON line.
func (c *jsonCollection) AddNode(fields map[string]interface{}) error {
	if _, ok := fields["id"]; !ok {
		return errors.New(errors.ErrorTypeData, "node is missing id").
			WithDetail("entity_type", c.name)
	}

	line, err := gojson.Marshal(fields)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to encode node").
			WithDetail("entity_type", c.name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.writer.Write(line); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write node")
	}
	if err := c.writer.WriteByte('\n'); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write node")
	}
	return nil
}

func (c *jsonCollection) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.writer.Flush(); err != nil {
		c.file.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to flush collection file")
	}
	return c.file.Close()
}
