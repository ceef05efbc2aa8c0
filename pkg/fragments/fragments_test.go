package fragments

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	t.Run("interleaves html and image fragments in order", func(t *testing.T) {
		body := `<p>Intro</p><img src="https://example.com/a.png" alt="first"><p>Middle</p><img src="https://example.com/b.jpg" alt="second"><p>End</p>`

		frags := Split(body)
		require.Len(t, frags, 5)

		assert.Equal(t, KindHTML, frags[0].Kind)
		assert.Equal(t, KindImage, frags[1].Kind)
		assert.Equal(t, "https://example.com/a.png", frags[1].Src)
		assert.Equal(t, "first", frags[1].Alt)
		assert.Equal(t, KindHTML, frags[2].Kind)
		assert.Equal(t, KindImage, frags[3].Kind)
		assert.Equal(t, "second", frags[3].Alt)
		assert.Equal(t, KindHTML, frags[4].Kind)

		for i, frag := range frags {
			assert.Equal(t, i, frag.Index)
		}
	})

	t.Run("round trip reproduces the body byte-for-byte", func(t *testing.T) {
		bodies := []string{
			`<p>Only text, no images at all.</p>`,
			`<img src="https://example.com/solo.png" alt="solo">`,
			`<p>A</p><img src="https://example.com/a.png"><p>B</p>`,
			`leading text<img src="https://example.com/a.png" alt=""><img src="https://example.com/b.svg" alt="b">trailing`,
		}

		for _, body := range bodies {
			frags := Split(body)
			var rebuilt strings.Builder
			for _, frag := range frags {
				rebuilt.WriteString(frag.HTML)
			}
			assert.Equal(t, body, rebuilt.String())
		}
	})

	t.Run("body without images is one html fragment", func(t *testing.T) {
		frags := Split("<p>Hello</p>")
		require.Len(t, frags, 1)
		assert.Equal(t, KindHTML, frags[0].Kind)
		assert.Equal(t, "<p>Hello</p>", frags[0].HTML)
	})

	t.Run("empty body yields nothing", func(t *testing.T) {
		assert.Nil(t, Split(""))
	})

	t.Run("image without alt has empty alt", func(t *testing.T) {
		frags := Split(`<img src="https://example.com/a.png">`)
		require.Len(t, frags, 1)
		assert.Equal(t, KindImage, frags[0].Kind)
		assert.Empty(t, frags[0].Alt)
	})
}

func TestFragment_AsHTML(t *testing.T) {
	frag := Fragment{
		Index: 3,
		Kind:  KindImage,
		HTML:  `<img src="https://example.com/a.png" alt="a">`,
		Src:   "https://example.com/a.png",
		Alt:   "a",
	}

	plain := frag.AsHTML()
	assert.Equal(t, KindHTML, plain.Kind)
	assert.Equal(t, frag.HTML, plain.HTML)
	assert.Equal(t, 3, plain.Index)
	assert.Empty(t, plain.Src)
}
