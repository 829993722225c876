package slugs_test

import (
	"errors"
	"regexp"
	"testing"

	"github.com/goliatone/go-egress/internal/slugs"
)

var safe = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

func TestSegmentCharacterRules(t *testing.T) {
	s := slugs.New(slugs.WithNormalizer(nil))

	cases := map[string]string{
		"Unit 1: Basics":              "unit-1-basics",
		"HTML/CSS":                    "html-css",
		"C++ (intro)":                 "c-intro",
		"What is it? Why!":            "what-is-it-why",
		"Arrays, Objects & Functions": "arrays-objects-functions",
		"  spaced   out  ":            "spaced-out",
		"React+Redux":                 "react-redux",
		"???":                         slugs.Fallback,
		"":                            slugs.Fallback,
	}
	for input, want := range cases {
		if got := s.Segment(input); got != want {
			t.Fatalf("Segment(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSegmentUsesNormalizerOutput(t *testing.T) {
	s := slugs.New(slugs.WithNormalizer(stubNormalizer{out: "Cafe-Creme"}))
	if got := s.Segment("Café Crème"); got != "cafe-creme" {
		t.Fatalf("expected normalizer output lowercased, got %q", got)
	}
}

func TestSegmentFallsBackWhenNormalizerFails(t *testing.T) {
	s := slugs.New(slugs.WithNormalizer(stubNormalizer{err: errors.New("boom")}))
	if got := s.Segment("Intro Lesson"); got != "intro-lesson" {
		t.Fatalf("expected local rules on normalizer error, got %q", got)
	}
}

func TestDefaultSanitizerProducesSafeSegments(t *testing.T) {
	inputs := []string{"Unit 1: Basics", "HTML/CSS (part 2)", "Déjà vu", "Node.js + Express"}
	for _, input := range inputs {
		got := slugs.Segment(input)
		if !safe.MatchString(got) {
			t.Fatalf("Segment(%q) = %q is not a safe slug", input, got)
		}
		if again := slugs.Segment(got); again != got {
			t.Fatalf("expected Segment to be idempotent, %q became %q", got, again)
		}
	}
}

func TestPathJoinsSanitisedSegments(t *testing.T) {
	s := slugs.New(slugs.WithNormalizer(nil))
	got := s.Path("Unit 1", "Chapter: Loops", "For / While")
	if got != "unit-1/chapter-loops/for-while" {
		t.Fatalf("unexpected path %q", got)
	}
}

func TestFilename(t *testing.T) {
	s := slugs.New(slugs.WithNormalizer(nil))

	cases := map[string]string{
		"https://files.example.com/a/b/Screen%20Shot%202024.PNG?X-Amz-Signature=abc": "screen-shot-2024.png",
		"https://example.com/assets/diagram":                                         "diagram.png",
		"https://example.com/assets/photo.jpeg#frag":                                 "photo.jpeg",
		"https://example.com/":                                                       "image.png",
		"https://example.com/x/file.name.with.dots.gif":                              "file-name-with-dots.gif",
	}
	for input, want := range cases {
		if got := s.Filename(input); got != want {
			t.Fatalf("Filename(%q) = %q, want %q", input, got, want)
		}
	}
}

type stubNormalizer struct {
	out string
	err error
}

func (s stubNormalizer) Normalize(string) (string, error) {
	return s.out, s.err
}
