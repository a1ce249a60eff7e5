package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// Patterns configures the reply-noise stripper.
type Patterns struct {
	// ReplyMarkers introduce quoted history. The body is cut at the earliest match.
	ReplyMarkers []*regexp.Regexp
	// Footers are boilerplate blocks removed wherever they match.
	Footers []*regexp.Regexp
	// QuoteMarker starts a quoted line.
	QuoteMarker string
}

// DefaultPatterns returns the built-in reply markers and footers.
func DefaultPatterns() Patterns {
	return Patterns{
		ReplyMarkers: []*regexp.Regexp{
			// On Tue, 3 Jun 2025 at 10:00, Jane <jane@example.com> wrote:
			regexp.MustCompile(`(?mi)^[ \t]*On[ \t].*wrote:[ \t]*$`),
			// Gmail wraps long attributions before the address.
			regexp.MustCompile(`(?mi)^[ \t]*On[ \t][^\n]*\d[^\n]*\n[^\n]*<[^\n>]+@[^\n>]+>[ \t]*wrote:[ \t]*$`),
			// Outlook header block: From: followed by Sent/Date/To/Cc/Subject lines.
			regexp.MustCompile(`(?mi)^[ \t]*\**From:\**[ \t]*[^\n]*\n(?:[ \t]*\**(?:Sent|Date|To|Cc|Subject):\**[^\n]*(?:\n|$))+`),
			regexp.MustCompile(`(?mi)^[ \t]*-+[ \t]*Original Message[ \t]*-+`),
			regexp.MustCompile(`(?mi)^[ \t]*Begin forwarded message:`),
			regexp.MustCompile(`(?mi)^[ \t]*-+[ \t]*Forwarded message[ \t]*-+`),
		},
		Footers: []*regexp.Regexp{
			// Signature delimiter to the end of the body.
			regexp.MustCompile(`(?s)(?:^|\n)-- ?\n.*$`),
			regexp.MustCompile(`(?mi)^[ \t]*Sent from my [^\n]*$`),
			regexp.MustCompile(`(?mi)^[ \t]*Get Outlook for [^\n]*$`),
			regexp.MustCompile(`(?mi)^[ \t]*Sent from (?:Mail|Yahoo Mail|Outlook) for [^\n]*$`),
			regexp.MustCompile(`(?is)(?:^|\n)[ \t]*(?:CONFIDENTIALITY NOTICE|DISCLAIMER)\b.*$`),
		},
		QuoteMarker: ">",
	}
}

// WithExtraFooters returns a copy of p with additional footer expressions compiled in.
func (p Patterns) WithExtraFooters(exprs []string) (Patterns, error) {
	footers := make([]*regexp.Regexp, 0, len(p.Footers)+len(exprs))
	footers = append(footers, p.Footers...)
	for _, expr := range exprs {
		expr = strings.TrimSpace(expr)
		if expr == "" {
			continue
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return Patterns{}, fmt.Errorf("failed to compile footer pattern %q: %w", expr, err)
		}
		footers = append(footers, re)
	}
	p.Footers = footers
	return p, nil
}

// Stripper removes quoted history and boilerplate footers from message bodies.
type Stripper struct {
	patterns Patterns
}

// NewStripper creates a Stripper with the given patterns.
func NewStripper(patterns Patterns) *Stripper {
	if patterns.QuoteMarker == "" {
		patterns.QuoteMarker = ">"
	}
	return &Stripper{patterns: patterns}
}

// Strip keeps only the newest authored content of body. The steps are order-sensitive:
// cut at the reply marker, drop quoted lines, remove footers, then collapse blank lines.
// Every step only removes text, so the passes are repeated until nothing changes,
// which makes Strip idempotent.
func (s *Stripper) Strip(body string) string {
	current := strings.ReplaceAll(body, "\r\n", "\n")
	for {
		next := s.stripOnce(current)
		if next == current {
			return next
		}
		current = next
	}
}

func (s *Stripper) stripOnce(body string) string {
	body = s.cutAtReplyMarker(body)
	body = s.dropQuotedLines(body)
	body = s.removeFooters(body)
	return collapseNewlines(body)
}

func (s *Stripper) cutAtReplyMarker(body string) string {
	cut := -1
	for _, re := range s.patterns.ReplyMarkers {
		loc := re.FindStringIndex(body)
		if loc != nil && (cut == -1 || loc[0] < cut) {
			cut = loc[0]
		}
	}
	if cut == -1 {
		return body
	}
	return body[:cut]
}

func (s *Stripper) dropQuotedLines(body string) string {
	lines := strings.Split(body, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), s.patterns.QuoteMarker) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func (s *Stripper) removeFooters(body string) string {
	for _, re := range s.patterns.Footers {
		body = re.ReplaceAllString(body, "")
	}
	return body
}
