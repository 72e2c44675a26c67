package llm

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// htmlTag detects markup in generated text. Some free models wrap their
// answer in HTML even when asked for Markdown.
var htmlTag = regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9]*(?:\s[^<>]*)?/?>`)

// blockTags are elements whose boundaries become line breaks when stripped.
var blockTags = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "tr": true, "table": true,
	"ul": true, "ol": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "section": true, "article": true, "pre": true,
}

// normalizeCompletion trims generated text and strips HTML markup when present.
func normalizeCompletion(s string) string {
	s = strings.TrimSpace(s)
	if !htmlTag.MatchString(s) {
		return s
	}
	return strings.TrimSpace(stripHTML(s))
}

// stripHTML returns the text content of an HTML fragment.
// Script and style contents are dropped; block elements become newlines.
//
// Design decision: We use the golang.org/x/net/html tokenizer rather than a
// regex replacement so entities are decoded and malformed markup degrades to
// plain text instead of eating content.
func stripHTML(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))

	var sb strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return collapseBlankLines(sb.String())
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				skip++
				continue
			}
			if blockTags[tag] {
				sb.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && skip > 0 {
				skip--
				continue
			}
			if blockTags[tag] {
				sb.WriteByte('\n')
			}
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if blockTags[string(name)] {
				sb.WriteByte('\n')
			}
		}
	}
}

// collapseBlankLines reduces runs of blank lines to a single blank line.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
