package normalize

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ajitpratap0/wpbridge/pkg/assets"
	"github.com/ajitpratap0/wpbridge/pkg/config"
	"github.com/ajitpratap0/wpbridge/pkg/graph"
	"github.com/ajitpratap0/wpbridge/pkg/wp"
)

func testNormalizer(t *testing.T, downloadImages bool) *Normalizer {
	t.Helper()

	var scheduler *assets.Scheduler
	if downloadImages {
		cfg := config.Default()
		cfg.WordPress.BaseURL = "https://example.com"
		cfg.Assets.DownloadDir = filepath.Join(t.TempDir(), "images")
		cfg.Assets.StagingDir = filepath.Join(t.TempDir(), "staging")
		downloader, err := assets.NewDownloader(cfg, zap.NewNop())
		require.NoError(t, err)
		scheduler = assets.NewScheduler(downloader, zap.NewNop())
		t.Cleanup(scheduler.Wait)
	}

	return New(Options{TypePrefix: "Wordpress", DownloadImages: downloadImages}, scheduler, zap.NewNop())
}

func TestNormalize_Keys(t *testing.T) {
	n := testNormalizer(t, false)

	t.Run("link-marker keys are dropped", func(t *testing.T) {
		node := n.Normalize(context.Background(), wp.Record{
			"id":        float64(1),
			"_links":    map[string]interface{}{"self": "x"},
			"_embedded": map[string]interface{}{},
		}, false)

		assert.Equal(t, map[string]interface{}{"id": float64(1)}, node)
	})

	t.Run("keys are camel-cased", func(t *testing.T) {
		node := n.Normalize(context.Background(), wp.Record{
			"featured_media": float64(9),
			"comment-status": "open",
		}, false)

		assert.Equal(t, float64(9), node["featuredMedia"])
		assert.Equal(t, "open", node["commentStatus"])
	})

	t.Run("null stays null and sequences map element-wise", func(t *testing.T) {
		node := n.Normalize(context.Background(), wp.Record{
			"excerpt": nil,
			"tags":    []interface{}{float64(1), nil, "x"},
		}, false)

		assert.Nil(t, node["excerpt"])
		assert.Equal(t, []interface{}{float64(1), nil, "x"}, node["tags"])
	})
}

func TestNormalize_Shapes(t *testing.T) {
	n := testNormalizer(t, false)

	t.Run("foreign entity object becomes a typed reference", func(t *testing.T) {
		node := n.Normalize(context.Background(), wp.Record{
			"related": map[string]interface{}{"post_type": "post", "ID": float64(42)},
		}, false)

		assert.Equal(t, graph.Reference{Type: "WordpressPost", ID: float64(42)}, node["related"])
	})

	t.Run("attachment object becomes an attachment reference", func(t *testing.T) {
		node := n.Normalize(context.Background(), wp.Record{
			"file": map[string]interface{}{"filename": "doc.pdf", "id": float64(7)},
		}, false)

		assert.Equal(t, graph.Reference{Type: "WordpressAttachment", ID: float64(7)}, node["file"])
	})

	t.Run("rendered wrapper unwraps to the string", func(t *testing.T) {
		node := n.Normalize(context.Background(), wp.Record{
			"content": map[string]interface{}{"rendered": "<p>Hi</p>", "protected": false},
		}, false)

		assert.Equal(t, "<p>Hi</p>", node["content"])
	})

	t.Run("unrecognized mappings are recursed into", func(t *testing.T) {
		node := n.Normalize(context.Background(), wp.Record{
			"meta": map[string]interface{}{
				"some_key": "v",
				"_private": "dropped",
				"inner":    map[string]interface{}{"rendered": "text"},
			},
		}, false)

		meta := node["meta"].(map[string]interface{})
		assert.Equal(t, "v", meta["someKey"])
		assert.NotContains(t, meta, "_private")
		assert.Equal(t, "text", meta["inner"])
	})
}

func TestNormalize_Purity(t *testing.T) {
	// Outside special field groups normalization is referentially
	// transparent: same input, same output, no side effects.
	n := testNormalizer(t, false)

	record := wp.Record{
		"id":      float64(3),
		"title":   map[string]interface{}{"rendered": "Hello"},
		"acf":     map[string]interface{}{"photo": "https://example.com/p.jpg"},
		"related": map[string]interface{}{"post_type": "page", "id": float64(5)},
	}

	first := n.Normalize(context.Background(), record, false)
	second := n.Normalize(context.Background(), record, false)
	assert.Equal(t, first, second)

	// Downloads disabled: the image URL string passes through untouched.
	acf := first["acf"].(map[string]interface{})
	assert.Equal(t, "https://example.com/p.jpg", acf["photo"])
}

func TestNormalize_SpecialFieldGroup(t *testing.T) {
	n := testNormalizer(t, true)

	t.Run("bare image URL becomes the local path", func(t *testing.T) {
		node := n.Normalize(context.Background(), wp.Record{
			"acf": map[string]interface{}{"hero": "https://127.0.0.1:1/uploads/Hero Shot.png"},
		}, false)

		acf := node["acf"].(map[string]interface{})
		assert.Equal(t, "hero-shot.png", filepath.Base(acf["hero"].(string)))
	})

	t.Run("image object becomes an asset descriptor", func(t *testing.T) {
		node := n.Normalize(context.Background(), wp.Record{
			"acf": map[string]interface{}{
				"banner": map[string]interface{}{
					"type":     "image",
					"filename": "banner.jpg",
					"url":      "https://127.0.0.1:1/banner.jpg",
					"title":    "Banner",
					"alt":      "wide banner",
				},
			},
		}, false)

		banner := node["acf"].(map[string]interface{})["banner"].(map[string]interface{})
		assert.Equal(t, "banner.jpg", filepath.Base(banner["src"].(string)))
		assert.Equal(t, "Banner", banner["title"])
		assert.Equal(t, "wide banner", banner["alt"])
	})

	t.Run("image URL outside the group passes through", func(t *testing.T) {
		node := n.Normalize(context.Background(), wp.Record{
			"guid": "https://example.com/file.png",
		}, false)

		assert.Equal(t, "https://example.com/file.png", node["guid"])
	})

	t.Run("same URL always maps to the same local path", func(t *testing.T) {
		rec := wp.Record{"acf": map[string]interface{}{"hero": "https://127.0.0.1:1/a.png"}}
		first := n.Normalize(context.Background(), rec, false)
		second := n.Normalize(context.Background(), rec, false)
		assert.Equal(t, first, second)
	})
}

func TestClassify(t *testing.T) {
	image := map[string]interface{}{"type": "image", "filename": "a.png", "url": "https://x/a.png"}
	entity := map[string]interface{}{"post_type": "post", "id": float64(1)}
	attachment := map[string]interface{}{"filename": "a.pdf", "id": float64(2)}
	rendered := map[string]interface{}{"rendered": "<p>x</p>"}

	assert.Equal(t, KindImage, Classify(image, true))
	assert.Equal(t, KindEntityRef, Classify(entity, true))
	assert.Equal(t, KindAttachmentRef, Classify(attachment, true))
	assert.Equal(t, KindRendered, Classify(rendered, true))
	assert.Equal(t, KindPlain, Classify(map[string]interface{}{"a": 1}, true))

	// Image recognition is policy-gated; the shape falls through otherwise.
	assert.NotEqual(t, KindImage, Classify(image, false))
}

func TestIsImageURL(t *testing.T) {
	assert.True(t, IsImageURL("https://example.com/a.jpg"))
	assert.True(t, IsImageURL("https://example.com/a.jpeg?w=200"))
	assert.True(t, IsImageURL("https://example.com/a.png"))
	assert.True(t, IsImageURL("https://example.com/a.svg"))
	assert.False(t, IsImageURL("https://example.com/a.gif"))
	assert.False(t, IsImageURL("http://example.com/a.jpg"))
	assert.False(t, IsImageURL("not a url"))
}

func TestCamelCase(t *testing.T) {
	cases := map[string]string{
		"featured_media": "featuredMedia",
		"comment-status": "commentStatus",
		"id":             "id",
		"avatar_urls":    "avatarUrls",
		"a_b_c":          "aBC",
	}
	for in, want := range cases {
		assert.Equal(t, want, CamelCase(in), in)
	}
}
