package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractHTML(t *testing.T) {
	tests := []struct {
		name string
		cell string
		want string
	}{
		{"empty", "", ""},
		{"plain html", "<p>hi</p>", "<p>hi</p>"},
		{"object body", `{"body": "<p>a</p>", "text": "ignored"}`, "<p>a</p>"},
		{"object html key", `{"html": "<b>x</b>"}`, "<b>x</b>"},
		{"object without known keys", `{"x": 1}`, `{"x":1}`},
		{"list", `["<p>a</p>", "<p>b</p>"]`, "<p>a</p>\n<p>b</p>"},
		{"number", `42`, "42"},
		{"null body", `{"body": null}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractHTML(tt.cell))
		})
	}
}

func TestCleanHTML(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"blank", "   ", ""},
		{"text only", "just text", "just text"},
		{"paragraphs", "<p>One</p><p>Two</p>", "One\nTwo"},
		{"script and style removed", "<style>p{}</style><p>Keep</p><script>alert(1)</script>", "Keep"},
		{"entities", "<p>Fish &amp; chips</p>", "Fish & chips"},
		{"blank runs collapsed", "<p>A</p>\n\n\n\n<p>B</p>", "A\n\nB"},
		{"trailing spaces trimmed", "<p>A   </p><p>B</p>", "A\nB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanHTML(tt.src))
		})
	}
}

func TestSafeFilename(t *testing.T) {
	long := make([]rune, 130)
	for i := range long {
		long[i] = 'x'
	}

	assert.Equal(t, "a_b_c_.md", SafeFilename(`a/b:c?`))
	assert.Equal(t, "Notes.MD", SafeFilename("  Notes.MD "))
	assert.Equal(t, "untitled.md", SafeFilename("   "))
	assert.Equal(t, string(long[:120])+".md", SafeFilename(string(long)))
}

func TestDedupeNames(t *testing.T) {
	docs := dedupeNames([]Document{{Name: "a.md"}, {Name: "A.md"}, {Name: "a (2).md"}, {Name: "b.md"}})

	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"a.md", "A (2).md", "a (2) (2).md", "b.md"}, names)
}
