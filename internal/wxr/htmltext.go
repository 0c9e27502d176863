// Package wxr – HTML-to-text conversion for exported post bodies.
package wxr

import (
	"strings"

	"golang.org/x/net/html"
)

// blockTags are elements that imply a line break around their content.
var blockTags = map[string]struct{}{
	"p": {}, "div": {}, "br": {}, "li": {}, "ul": {}, "ol": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"blockquote": {}, "pre": {}, "tr": {}, "table": {}, "section": {}, "article": {},
}

// HTMLToText strips markup from an HTML fragment and returns plain
// text: script/style contents dropped, entities decoded, block
// boundaries turned into newlines, whitespace collapsed. The tokenizer
// never fails on malformed input; it consumes what it can, which is the
// right behavior for the markup found in real-world exports.
func HTMLToText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}

	tok := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	skipDepth := 0

	for {
		switch tok.Next() {
		case html.ErrorToken:
			// io.EOF or malformed tail; either way we keep what we have.
			return collapseLines(b.String())

		case html.StartTagToken:
			name, _ := tok.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				skipDepth++
				continue
			}
			if _, block := blockTags[tag]; block {
				b.WriteByte('\n')
			}

		case html.SelfClosingTagToken:
			name, _ := tok.TagName()
			if _, block := blockTags[string(name)]; block {
				b.WriteByte('\n')
			}

		case html.EndTagToken:
			name, _ := tok.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				if skipDepth > 0 {
					skipDepth--
				}
				continue
			}
			if _, block := blockTags[tag]; block {
				b.WriteByte('\n')
			}

		case html.TextToken:
			if skipDepth == 0 {
				b.Write(tok.Text())
			}
		}
	}
}

// collapseLines trims each line, collapses internal whitespace to a
// single space, and drops empty lines entirely.
func collapseLines(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	raw := strings.Split(s, "\n")
	out := make([]string, 0, len(raw))
	for _, ln := range raw {
		parts := strings.Fields(ln)
		if len(parts) == 0 {
			continue
		}
		out = append(out, strings.Join(parts, " "))
	}
	return strings.Join(out, "\n")
}
