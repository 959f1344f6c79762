package channels

import (
	"strings"
	"testing"
)

func TestMarkdownToTelegramHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bold", "**important**", "<b>important</b>"},
		{"inline code", "use `ctx.Done()` here", "use <code>ctx.Done()</code> here"},
		{"link", "[docs](https://example.com)", `<a href="https://example.com">docs</a>`},
		{"header stripped", "## Setup\ntext", "Setup\ntext"},
		{"bullet", "- first\n- second", "• first\n• second"},
		{"escaping", "a < b && c > d", "a &lt; b &amp;&amp; c &gt; d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := markdownToTelegramHTML(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMarkdownToTelegramHTML_CodeBlock(t *testing.T) {
	in := "Example:\n```go\nif x < 1 {\n\treturn\n}\n```"
	got := markdownToTelegramHTML(in)

	if !strings.Contains(got, "<pre><code>") || !strings.Contains(got, "</code></pre>") {
		t.Fatalf("code block not wrapped: %q", got)
	}
	if !strings.Contains(got, "if x &lt; 1 {") {
		t.Errorf("code content must be escaped verbatim: %q", got)
	}
	if strings.Contains(got, "```") {
		t.Errorf("fence markers leaked: %q", got)
	}
}

func TestMarkdownToTelegramHTML_CodeContentNotFormatted(t *testing.T) {
	// Markdown syntax inside code spans must survive untouched.
	got := markdownToTelegramHTML("`**not bold**`")
	if !strings.Contains(got, "<code>**not bold**</code>") {
		t.Errorf("got %q", got)
	}
}
