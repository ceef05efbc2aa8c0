// Package wp implements the WordPress REST API transport and the
// bounded-concurrency paginated fetcher. It is the only package that
// talks to the remote site; everything downstream consumes raw Records.
package wp

import (
	gojson "github.com/goccy/go-json"

	"github.com/ajitpratap0/wpbridge/pkg/errors"
)

// Record is one raw item returned by the API before normalization.
type Record map[string]interface{}

// ID returns the record's id field, which WordPress reports as a JSON
// number. The second return is false when the field is missing.
func (r Record) ID() (interface{}, bool) {
	if v, ok := r["id"]; ok {
		return v, true
	}
	if v, ok := r["ID"]; ok {
		return v, true
	}
	return nil, false
}

// TypeInfo describes one declared content type from /wp/v2/types.
type TypeInfo struct {
	Name       string   `json:"name"`
	Slug       string   `json:"slug"`
	RestBase   string   `json:"rest_base"`
	Taxonomies []string `json:"taxonomies"`
}

// TaxonomyInfo describes one declared taxonomy from /wp/v2/taxonomies.
type TaxonomyInfo struct {
	Name     string   `json:"name"`
	Slug     string   `json:"slug"`
	RestBase string   `json:"rest_base"`
	Types    []string `json:"types"`
}

// decodeRecords decodes a page body into a record list. WordPress
// occasionally returns the list double-encoded as a JSON string; that
// case is unwrapped once. Anything else is a fatal data error carrying
// the requesting path and a preview of the offending payload.
func decodeRecords(body []byte, path string) ([]Record, error) {
	if len(body) == 0 {
		return nil, nil
	}

	var records []Record
	if err := gojson.Unmarshal(body, &records); err == nil {
		return records, nil
	}

	var wrapped string
	if err := gojson.Unmarshal(body, &wrapped); err == nil {
		if err := gojson.Unmarshal([]byte(wrapped), &records); err == nil {
			return records, nil
		}
	}

	return nil, errors.Newf(errors.ErrorTypeData, "response for %s is not a record list", path).
		WithDetail("path", path).
		WithDetail("payload_preview", preview(body, 256))
}

// preview returns at most n bytes of the payload for error reporting.
func preview(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
