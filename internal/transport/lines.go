package transport

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// lineReader splits a connection into newline-terminated lines of bounded length.
// A line longer than the limit is consumed up to its newline and reported as
// too long; the stream stays usable for the next line.
type lineReader struct {
	r *bufio.Reader
}

func newLineReader(r io.Reader, maxLength int) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, maxLength)}
}

// next returns the next line without its terminator. tooLong is set when a
// line was discarded; err is set once the stream ends.
func (l *lineReader) next() (line string, tooLong bool, err error) {
	buf, err := l.r.ReadSlice('\n')
	switch {
	case err == nil:
		return trimEOL(buf), false, nil
	case errors.Is(err, bufio.ErrBufferFull):
		return "", true, l.discardRest()
	case errors.Is(err, io.EOF) && len(buf) > 0:
		// unterminated final line; EOF surfaces on the next call
		return trimEOL(buf), false, nil
	default:
		return "", false, err
	}
}

func (l *lineReader) discardRest() error {
	for {
		_, err := l.r.ReadSlice('\n')
		if !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}

func trimEOL(buf []byte) string {
	return strings.TrimSuffix(strings.TrimSuffix(string(buf), "\n"), "\r")
}
