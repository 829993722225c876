// Package slugs derives filesystem and URL safe names for exported files.
//
// Segment is the single sanitisation entry point for every derived path
// segment. Rules, applied in order:
//
//   - "/", "\", ":" and "+" become "-"
//   - "(", ")", "[", "]", ",", "?", "!", "'" and `"` are removed
//   - the result goes through the go-slug normalizer (transliteration,
//     whitespace to "-")
//   - the output is lowercased and reduced to [a-z0-9-], with runs of "-"
//     collapsed and leading or trailing "-" trimmed
//
// A value that sanitises to nothing becomes Fallback.
package slugs

import (
	"net/url"
	"path"
	"strings"

	"github.com/goliatone/go-slug"
)

// Fallback names a segment whose source value had no usable characters.
const Fallback = "untitled"

// DefaultExtension is used for image files whose URL carries no extension.
const DefaultExtension = ".png"

// Normalizer matches slug.Normalizer.
type Normalizer interface {
	Normalize(value string) (string, error)
}

// Option customises a Sanitizer.
type Option func(*Sanitizer)

// WithNormalizer swaps the go-slug normalizer. Passing nil leaves only the
// local character rules.
func WithNormalizer(n Normalizer) Option {
	return func(s *Sanitizer) {
		s.normalizer = n
	}
}

// Sanitizer applies the segment rules.
type Sanitizer struct {
	normalizer Normalizer
}

// New returns a Sanitizer backed by slug.Default().
func New(opts ...Option) *Sanitizer {
	s := &Sanitizer{normalizer: slug.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

var replacer = strings.NewReplacer(
	"/", "-",
	`\`, "-",
	":", "-",
	"+", "-",
	"(", "",
	")", "",
	"[", "",
	"]", "",
	",", "",
	"?", "",
	"!", "",
	"'", "",
	`"`, "",
)

// Segment sanitises one path segment.
func (s *Sanitizer) Segment(value string) string {
	out := s.strict(replacer.Replace(strings.TrimSpace(value)))
	if out == "" {
		return Fallback
	}
	return out
}

// Path sanitises every segment and joins them with "/".
func (s *Sanitizer) Path(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, segment := range segments {
		parts = append(parts, s.Segment(segment))
	}
	return strings.Join(parts, "/")
}

// Filename derives a local image filename from a remote URL: the last path
// segment without query, sanitised, keeping a short alphanumeric extension
// or DefaultExtension.
func (s *Sanitizer) Filename(rawURL string) string {
	base := rawURL
	if parsed, err := url.Parse(rawURL); err == nil {
		base = parsed.Path
	} else if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	base = path.Base(base)
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	if base == "." || base == "/" {
		base = ""
	}

	ext := strings.ToLower(path.Ext(base))
	if isExtension(ext) {
		base = strings.TrimSuffix(base, path.Ext(base))
	} else {
		ext = DefaultExtension
	}

	name := s.strict(replacer.Replace(base))
	if name == "" {
		name = "image"
	}
	return name + ext
}

func (s *Sanitizer) strict(value string) string {
	if value == "" {
		return ""
	}
	if s.normalizer != nil {
		if normalized, err := s.normalizer.Normalize(value); err == nil && normalized != "" {
			value = normalized
		}
	}
	return reduce(strings.ToLower(value))
}

// reduce keeps [a-z0-9], maps every other run of characters to a single "-"
// and trims dashes at both ends.
func reduce(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	dash := false
	for _, r := range value {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

func isExtension(ext string) bool {
	if len(ext) < 2 || len(ext) > 6 {
		return false
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

var std = New()

// Segment sanitises value with the default Sanitizer.
func Segment(value string) string { return std.Segment(value) }

// Path sanitises and joins segments with the default Sanitizer.
func Path(segments ...string) string { return std.Path(segments...) }

// Filename derives an image filename with the default Sanitizer.
func Filename(rawURL string) string { return std.Filename(rawURL) }
