package parser

import (
	"bytes"
	"io"
	"mime/quotedprintable"
)

// newQPReader wraps quotedprintable.Reader. CRLF line endings are converted to LF
// first so decoded text uses one line ending throughout.
func newQPReader(b []byte) io.Reader {
	b = bytes.ReplaceAll(b, []byte("\r\n"), []byte("\n"))
	return quotedprintable.NewReader(bytes.NewReader(b))
}
