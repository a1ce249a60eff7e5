package parser

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var reExtraNewlines = regexp.MustCompile(`\n{3,}`)

// HTMLToText renders HTML as plain text on a best-effort basis. Script and style
// content is dropped, <br> becomes a newline, </p> a paragraph break, and every other
// tag is stripped. No table or list layout is reproduced.
func HTMLToText(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}

	z := html.NewTokenizer(strings.NewReader(src))
	var b strings.Builder
	skipDepth := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return collapseNewlines(b.String())
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				if tt == html.StartTagToken {
					skipDepth++
				}
			case "br":
				b.WriteString("\n")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				if skipDepth > 0 {
					skipDepth--
				}
			case "p":
				b.WriteString("\n\n")
			}
		}
	}
}

func collapseNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = reExtraNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
