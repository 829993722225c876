package images

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var scanner = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Ref is one remote image destination and its byte range in the source.
type Ref struct {
	URL   string
	Start int
	Stop  int
}

// Refs returns every remote image destination of markdown in document order,
// with the byte range of the destination text. Images inside code spans or
// fenced blocks are not images to the parser and are ignored.
func Refs(markdown string) []Ref {
	source := []byte(markdown)
	doc := scanner.Parser().Parse(text.NewReader(source))

	var refs []Ref
	cursor := 0
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		img, ok := node.(*ast.Image)
		if !ok || !isRemote(string(img.Destination)) {
			return ast.WalkContinue, nil
		}
		start, ok := locate(source, img.Destination, cursor)
		if !ok {
			return ast.WalkContinue, nil
		}
		stop := start + len(img.Destination)
		refs = append(refs, Ref{URL: string(img.Destination), Start: start, Stop: stop})
		if stop > cursor {
			cursor = stop
		}
		return ast.WalkContinue, nil
	})
	return refs
}

// RemoteImages returns the distinct remote image destinations of markdown in
// document order.
func RemoteImages(markdown string) []string {
	seen := map[string]bool{}
	var urls []string
	for _, ref := range Refs(markdown) {
		if !seen[ref.URL] {
			seen[ref.URL] = true
			urls = append(urls, ref.URL)
		}
	}
	return urls
}

// locate finds the offset of dest in source. The parser hands out
// destinations as subslices of the source buffer, so the capacity difference
// is the offset; a copied destination falls back to a forward search.
func locate(source, dest []byte, from int) (int, bool) {
	if off := cap(source) - cap(dest); off >= 0 && off+len(dest) <= len(source) &&
		bytes.Equal(source[off:off+len(dest)], dest) {
		return off, true
	}
	if from > len(source) {
		return 0, false
	}
	idx := bytes.Index(source[from:], dest)
	if idx < 0 {
		return 0, false
	}
	return from + idx, true
}

func isRemote(dest string) bool {
	lower := strings.ToLower(dest)
	return strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "http://")
}
