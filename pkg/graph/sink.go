// Package graph defines the boundary to the host content-graph store and
// the orchestrator that drives one ingestion run against it. The store
// itself (schema registration, persistence, reference resolution) is an
// external collaborator; wpbridge only produces nodes and references.
package graph

import (
	"strings"
	"unicode"

	"github.com/ajitpratap0/wpbridge/pkg/metrics"
)

// Reference is a typed pointer to another entity. Creation never requires
// the target to exist; resolution is deferred to the external store, so a
// dangling reference is not an error here.
type Reference struct {
	Type string      `json:"type"`
	ID   interface{} `json:"id"`
}

// NewReference creates a reference to the given canonical entity type.
func NewReference(typeName string, id interface{}) Reference {
	metrics.ReferencesCreated.WithLabelValues(typeName).Inc()
	return Reference{Type: typeName, ID: id}
}

// Sink is the single explicit interface to the external content-graph
// store. It has exactly one operation; registered collections accept
// nodes through the returned Collection handle.
type Sink interface {
	// RegisterEntityType registers a named content kind with its display
	// route template and returns the handle nodes are added through.
	RegisterEntityType(name, route string) (Collection, error)
}

// Collection accepts normalized nodes for one registered entity type.
type Collection interface {
	// AddNode stores one normalized node; fields must include "id".
	AddNode(fields map[string]interface{}) error
}

// CanonicalName derives the canonical entity type name from a raw API
// type name: the configured prefix followed by the UpperCamel form of the
// raw name. "wp_block" with prefix "Wordpress" becomes "WordpressWpBlock".
func CanonicalName(prefix, raw string) string {
	var b strings.Builder
	b.WriteString(prefix)

	upperNext := true
	for _, r := range raw {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upperNext = true
			continue
		}
		if upperNext {
			b.WriteRune(unicode.ToUpper(r))
			upperNext = false
		} else {
			b.WriteRune(r)
		}
	}

	return b.String()
}
