// Package markdown renders summary Markdown into HTML fragments.
package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer converts GitHub flavoured Markdown to HTML. Raw HTML in the
// source is omitted from the output.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer builds a GFM renderer.
func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
}

// Render implements share.Renderer.
func (r *Renderer) Render(source string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
