package headhunter

import (
	"strings"

	"golang.org/x/net/html"
)

// blockTags end a line in plain text.
var blockTags = map[string]bool{
	"p": true, "br": true, "li": true, "ul": true, "ol": true,
	"div": true, "h1": true, "h2": true, "h3": true, "h4": true,
}

// PlainText strips markup from vacancy HTML. Block elements become line
// breaks and runs of blank space are collapsed.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return collapse(b.String())
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if blockTags[string(name)] {
				b.WriteString("\n")
			}
		}
	}
}

func collapse(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
