package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"drops script and style", "<style>p{color:red}</style><p>Hi</p><script>alert(1)</script>", "Hi"},
		{"converts br to newline", "one<br>two<br/>three", "one\ntwo\nthree"},
		{"paragraph break after p", "<p>first</p><p>second</p>", "first\n\nsecond"},
		{"collapses long blank runs", "a<br><br><br><br>b", "a\n\nb"},
		{"unescapes entities", "<div>Tom &amp; Jerry &lt;3</div>", "Tom & Jerry <3"},
		{"strips unknown tags", "<table><tr><td>cell</td></tr></table>", "cell"},
		{"empty input", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTMLToText(tt.in))
		})
	}
}
