// Package fragments splits rendered post bodies into an ordered sequence
// of html and image segments. The split is lossless: concatenating the
// fragments' raw markup in order reproduces the original body.
package fragments

import "regexp"

// Kind distinguishes fragment payloads.
type Kind string

const (
	// KindHTML is a plain markup segment.
	KindHTML Kind = "html"
	// KindImage is an inline <img> element.
	KindImage Kind = "image"
)

// Fragment is one ordered segment of a split post body. HTML always
// holds the original markup for the segment, image fragments included,
// so the source body can be reconstructed from the sequence.
type Fragment struct {
	Index     int    `json:"index"`
	Kind      Kind   `json:"kind"`
	HTML      string `json:"html"`
	Src       string `json:"src,omitempty"`
	Alt       string `json:"alt,omitempty"`
	LocalPath string `json:"localPath,omitempty"`
}

var (
	imgPattern = regexp.MustCompile(`<img[^>]*>`)
	srcPattern = regexp.MustCompile(`src="([^"]*)"`)
	altPattern = regexp.MustCompile(`alt="([^"]*)"`)
)

// Split segments a post body around its inline images. A body without
// images yields a single html fragment; an empty body yields nothing.
func Split(body string) []Fragment {
	if body == "" {
		return nil
	}

	matches := imgPattern.FindAllStringIndex(body, -1)
	if len(matches) == 0 {
		return []Fragment{{Index: 0, Kind: KindHTML, HTML: body}}
	}

	var out []Fragment
	cursor := 0
	for _, match := range matches {
		if match[0] > cursor {
			out = append(out, Fragment{
				Index: len(out),
				Kind:  KindHTML,
				HTML:  body[cursor:match[0]],
			})
		}

		markup := body[match[0]:match[1]]
		out = append(out, Fragment{
			Index: len(out),
			Kind:  KindImage,
			HTML:  markup,
			Src:   firstGroup(srcPattern, markup),
			Alt:   firstGroup(altPattern, markup),
		})
		cursor = match[1]
	}

	if cursor < len(body) {
		out = append(out, Fragment{
			Index: len(out),
			Kind:  KindHTML,
			HTML:  body[cursor:],
		})
	}

	return out
}

// AsHTML downgrades a fragment to a plain html segment, keeping its
// original markup. Used when an image cannot be resolved or downloaded.
func (f Fragment) AsHTML() Fragment {
	return Fragment{Index: f.Index, Kind: KindHTML, HTML: f.HTML}
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
