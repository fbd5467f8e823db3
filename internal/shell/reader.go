package shell

import (
	"bufio"
	"errors"
	"io"
)

// DefaultMaxLineBytes bounds one operator line.
const DefaultMaxLineBytes = 1024

// LineReader reads newline-terminated operator lines of bounded length.
type LineReader struct {
	r     *bufio.Reader
	limit int
}

// NewLineReader wraps r. A non-positive limit selects DefaultMaxLineBytes.
func NewLineReader(r io.Reader, limit int) *LineReader {
	if limit <= 0 {
		limit = DefaultMaxLineBytes
	}
	return &LineReader{r: bufio.NewReader(r), limit: limit}
}

// ReadLine returns the next line without its terminator or a trailing '\r'.
// Bytes past the bound are discarded up to the newline and truncated is set.
// io.EOF is returned only when the input ends before any byte of a line.
func (l *LineReader) ReadLine() (line string, truncated bool, err error) {
	buf := make([]byte, 0, 64)
	read := false
	for {
		b, err := l.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && read {
				return trimCR(buf), truncated, nil
			}
			return "", false, err
		}
		read = true
		if b == '\n' {
			return trimCR(buf), truncated, nil
		}
		if len(buf) < l.limit {
			buf = append(buf, b)
			continue
		}
		truncated = true
	}
}

func trimCR(b []byte) string {
	if n := len(b); n > 0 && b[n-1] == '\r' {
		b = b[:n-1]
	}
	return string(b)
}
