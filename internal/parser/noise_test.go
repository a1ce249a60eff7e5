package parser

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripper_Strip(t *testing.T) {
	s := NewStripper(DefaultPatterns())

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "cuts at On ... wrote:",
			in:   "Hi, what's the deadline?\n\nOn Tue wrote:\n> old text",
			want: "Hi, what's the deadline?",
		},
		{
			name: "cuts at a full Gmail attribution",
			in:   "Thanks!\n\nOn Tue, 3 Jun 2025 at 10:00, Jane Doe <jane@example.com> wrote:\nold text without marker\n> quoted",
			want: "Thanks!",
		},
		{
			name: "cuts at a wrapped Gmail attribution",
			in:   "Sure.\n\nOn Tue, 3 Jun 2025 at 10:00, Jane Doe\n<jane@example.com> wrote:\nold",
			want: "Sure.",
		},
		{
			name: "cuts at an Outlook header block",
			in:   "See below.\n\nFrom: Registrar <registrar@example.edu>\nSent: Monday, June 2, 2025 9:00 AM\nTo: Student\nSubject: Exams\n\nOld body",
			want: "See below.",
		},
		{
			name: "keeps a lone From: line that is not a header block",
			in:   "From: the library, I borrowed two books.",
			want: "From: the library, I borrowed two books.",
		},
		{
			name: "cuts at Original Message separator",
			in:   "New\n-----Original Message-----\nOld",
			want: "New",
		},
		{
			name: "drops quoted lines",
			in:   "Answer one\n> question one\n  > indented quote\nAnswer two",
			want: "Answer one\nAnswer two",
		},
		{
			name: "removes signature and mobile footers",
			in:   "Body text\n\nSent from my iPhone",
			want: "Body text",
		},
		{
			name: "removes signature block",
			in:   "Body text\n-- \nJane Doe\nBBIT 4.2",
			want: "Body text",
		},
		{
			name: "removes confidentiality disclaimer",
			in:   "Please help.\n\nCONFIDENTIALITY NOTICE: This email is intended only for...",
			want: "Please help.",
		},
		{
			name: "collapses blank lines and normalizes CRLF",
			in:   "a\r\n\r\n\r\n\r\nb  ",
			want: "a\n\nb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Strip(tt.in))
		})
	}
}

func TestStripper_Idempotent(t *testing.T) {
	s := NewStripper(DefaultPatterns())

	inputs := []string{
		"",
		"plain body",
		"Hi\n\nOn Tue wrote:\n> old",
		"On 5 June, 2025\n> interleaved quote\n<jane@example.com> wrote:\nold",
		"a\n\n\n\n> q\n\n\n\nb",
		"Body\n-- \nsig\n\nOn Mon wrote:\nx",
		"> only quotes\n> more",
		"text\nFrom: a@b.com\nTo: c@d.com\n> q\nmore",
	}

	for _, in := range inputs {
		once := s.Strip(in)
		assert.Equal(t, once, s.Strip(once), "input %q", in)
	}
}

func TestPatterns_WithExtraFooters(t *testing.T) {
	t.Run("adds footers from configuration", func(t *testing.T) {
		patterns, err := DefaultPatterns().WithExtraFooters([]string{`(?m)^Strathmore University.*$`, " "})
		require.NoError(t, err)

		s := NewStripper(patterns)
		assert.Equal(t, "Question", s.Strip("Question\nStrathmore University, Nairobi"))
		assert.Len(t, patterns.Footers, len(DefaultPatterns().Footers)+1)
	})

	t.Run("rejects invalid expressions", func(t *testing.T) {
		_, err := DefaultPatterns().WithExtraFooters([]string{"("})
		assert.Error(t, err)
	})

	t.Run("does not modify the receiver", func(t *testing.T) {
		base := DefaultPatterns()
		_, err := base.WithExtraFooters([]string{"x"})
		require.NoError(t, err)
		assert.Len(t, base.Footers, len(DefaultPatterns().Footers))
	})

	t.Run("custom quote marker", func(t *testing.T) {
		s := NewStripper(Patterns{QuoteMarker: "|", ReplyMarkers: []*regexp.Regexp{}})
		assert.Equal(t, "kept", s.Strip("kept\n| quoted"))
	})
}
