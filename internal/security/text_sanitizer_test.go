package security

import (
	"regexp"
	"testing"
)

// tagPattern は"<"の直後に英字または"/"が続く、タグとして解釈され得る並び。
var tagPattern = regexp.MustCompile(`<[a-zA-Z/!]`)

func TestTextSanitizer_Sanitize(t *testing.T) {
	s := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain text", input: "Ann Lee", want: "Ann Lee"},
		{name: "empty", input: "", want: ""},
		{name: "bold removed", input: "<b>Ann</b>", want: "Ann"},
		{name: "script removed", input: `hi<script>alert("x")</script>`, want: "hi"},
		{name: "img with onerror", input: `<img src=x onerror=alert(1)>Bio`, want: "Bio"},
		{name: "ampersand kept", input: "Tom & Jerry", want: "Tom & Jerry"},
		{name: "apostrophe kept", input: "I'm a creator", want: "I'm a creator"},
		{name: "japanese", input: "<p>こんにちは</p>", want: "こんにちは"},
		{name: "surrounding space trimmed", input: "  <i>x</i>  ", want: "x"},
		{name: "entity-encoded tags removed", input: "&lt;b&gt;x&lt;/b&gt;", want: "x"},
		{name: "entity-encoded script removed", input: "&lt;script&gt;alert(1)&lt;/script&gt;hi", want: "hi"},
		{name: "double-encoded tags removed", input: "&amp;lt;i&amp;gt;y&amp;lt;/i&amp;gt;", want: "y"},
		{name: "less-than kept", input: "a < b", want: "a < b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTextSanitizer_Idempotent(t *testing.T) {
	s := NewTextSanitizer()
	inputs := []string{
		"<b>Tom</b> & Jerry",
		"plain",
		`<a href="javascript:alert(1)">link</a>`,
		"&lt;b&gt;x&lt;/b&gt;",
		"&lt;script&gt;alert(1)&lt;/script&gt;hi",
		"&amp;lt;img src=x onerror=alert(1)&amp;gt;z",
	}
	for _, in := range inputs {
		first := s.Sanitize(in)
		second := s.Sanitize(first)
		if first != second {
			t.Errorf("not idempotent for %q: %q then %q", in, first, second)
		}
	}
}

func TestTextSanitizer_NoMarkupSurvives(t *testing.T) {
	s := NewTextSanitizer()
	inputs := []string{
		"&lt;img src=x onerror=alert(1)&gt;",
		"&#60;b&#62;bold&#60;/b&#62;",
		"&amp;amp;lt;script&amp;amp;gt;alert(1)&amp;amp;lt;/script&amp;amp;gt;",
	}
	for _, in := range inputs {
		got := s.Sanitize(in)
		if tagPattern.MatchString(got) {
			t.Errorf("Sanitize(%q) = %q still contains markup", in, got)
		}
	}
}
