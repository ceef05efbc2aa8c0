package graph

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONSink(t *testing.T) {
	t.Run("writes one NDJSON line per node", func(t *testing.T) {
		dir := t.TempDir()
		sink, err := NewJSONSink(dir)
		require.NoError(t, err)

		col, err := sink.RegisterEntityType("WordpressPost", "/posts/:slug")
		require.NoError(t, err)
		require.NoError(t, col.AddNode(map[string]interface{}{"id": float64(1), "title": "First"}))
		require.NoError(t, col.AddNode(map[string]interface{}{"id": float64(2), "title": "Second"}))
		require.NoError(t, sink.Close())

		file, err := os.Open(filepath.Join(dir, "wordpresspost.ndjson"))
		require.NoError(t, err)
		defer file.Close()

		var nodes []map[string]interface{}
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			var node map[string]interface{}
			require.NoError(t, gojson.Unmarshal(scanner.Bytes(), &node))
			nodes = append(nodes, node)
		}
		require.NoError(t, scanner.Err())

		require.Len(t, nodes, 2)
		assert.Equal(t, "First", nodes[0]["title"])
		assert.Equal(t, "Second", nodes[1]["title"])
	})

	t.Run("manifest maps names to routes", func(t *testing.T) {
		dir := t.TempDir()
		sink, err := NewJSONSink(dir)
		require.NoError(t, err)

		_, err = sink.RegisterEntityType("WordpressPost", "/posts/:slug")
		require.NoError(t, err)
		_, err = sink.RegisterEntityType("WordpressUser", "/author/:slug")
		require.NoError(t, err)
		require.NoError(t, sink.Close())

		raw, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
		require.NoError(t, err)
		var manifest map[string]string
		require.NoError(t, gojson.Unmarshal(raw, &manifest))

		assert.Equal(t, map[string]string{
			"WordpressPost": "/posts/:slug",
			"WordpressUser": "/author/:slug",
		}, manifest)
	})

	t.Run("registration is idempotent", func(t *testing.T) {
		dir := t.TempDir()
		sink, err := NewJSONSink(dir)
		require.NoError(t, err)
		defer sink.Close()

		first, err := sink.RegisterEntityType("WordpressTag", "/tags/:slug")
		require.NoError(t, err)
		second, err := sink.RegisterEntityType("WordpressTag", "/tags/:slug")
		require.NoError(t, err)
		assert.Same(t, first, second)
	})

	t.Run("node without id is rejected", func(t *testing.T) {
		dir := t.TempDir()
		sink, err := NewJSONSink(dir)
		require.NoError(t, err)
		defer sink.Close()

		col, err := sink.RegisterEntityType("WordpressPage", "/pages/:slug")
		require.NoError(t, err)
		assert.Error(t, col.AddNode(map[string]interface{}{"title": "no id"}))
	})
}
