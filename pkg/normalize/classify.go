// Package normalize implements the recursive, type-directed rewrite that
// turns heterogeneous API records into canonical nodes: internal link
// keys are stripped, keys are camel-cased, embedded foreign-entity
// pointers become typed references and embedded images become asset
// descriptors.
//
// Shape recognition is a pure classification over the candidate mapping;
// the recursive rewrite consults it but owns no detection logic itself.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
)

// Kind tags the recognized shape of a nested mapping.
type Kind int

const (
	// KindPlain means no special shape was recognized; recurse into it.
	KindPlain Kind = iota
	// KindImage is an embedded image object (type "image", a filename and a URL).
	KindImage
	// KindEntityRef is a foreign content-entity pointer (post type + id).
	KindEntityRef
	// KindAttachmentRef is an attachment-like object (filename + id, no post type).
	KindAttachmentRef
	// KindRendered is a rich-text wrapper holding only a rendered string.
	KindRendered
)

// imageURLPattern matches bare image-file URLs: https, an image
// extension, optionally followed by a query string.
var imageURLPattern = regexp.MustCompile(`^https://.*\.(jpg|jpeg|png|svg)(\?.*)?$`)

// Classify recognizes the shape of a nested mapping. The four shapes are
// mutually exclusive and tested in priority order. allowImages reflects
// whether this traversal point may produce asset descriptors (inside a
// special field group with image downloading enabled); when false, an
// image-shaped mapping falls through to the remaining checks.
func Classify(m map[string]interface{}, allowImages bool) Kind {
	_, hasFilename := m["filename"]
	_, hasPostType := m["post_type"]
	_, hasURL := m["url"]
	hasID := hasIDField(m)

	if allowImages && m["type"] == "image" && hasFilename && hasURL {
		return KindImage
	}
	if hasPostType && hasID {
		return KindEntityRef
	}
	if hasFilename && hasID && !hasPostType {
		return KindAttachmentRef
	}
	if _, ok := m["rendered"]; ok {
		return KindRendered
	}
	return KindPlain
}

// IsImageURL reports whether a bare string value looks like an image-file URL.
func IsImageURL(s string) bool {
	return imageURLPattern.MatchString(s)
}

func hasIDField(m map[string]interface{}) bool {
	if _, ok := m["id"]; ok {
		return true
	}
	_, ok := m["ID"]
	return ok
}

func idField(m map[string]interface{}) interface{} {
	if v, ok := m["id"]; ok {
		return v
	}
	return m["ID"]
}

// CamelCase rewrites a raw field key to the canonical casing convention:
// segments split on '_' and '-', first segment untouched, the rest
// capitalized. "featured_media" becomes "featuredMedia".
func CamelCase(key string) string {
	var b strings.Builder
	upperNext := false
	for i, r := range key {
		if r == '_' || r == '-' {
			if i == 0 {
				continue
			}
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
