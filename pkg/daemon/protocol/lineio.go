package protocol

import (
	"bufio"
	"errors"
	"io"
	"unicode/utf8"
)

var (
	// ErrLineTooLong is returned once a line exceeds the reader's limit. The
	// stream cannot be resynchronized afterwards.
	ErrLineTooLong = errors.New("line too long")

	// ErrInvalidUTF8 is returned for a complete line that is not UTF-8.
	ErrInvalidUTF8 = errors.New("line is not valid UTF-8")
)

// LineReader reads newline terminated lines up to a fixed size. A partial
// line survives read errors such as deadline timeouts, so callers may retry
// ReadLine after a timeout without losing data.
type LineReader struct {
	r       *bufio.Reader
	max     int
	pending []byte
}

// NewLineReader returns a reader that rejects lines longer than max bytes,
// newline included.
func NewLineReader(r io.Reader, max int) *LineReader {
	return &LineReader{r: bufio.NewReader(r), max: max}
}

// ReadLine returns the next line including its newline. A final line without
// a newline is returned before io.EOF.
func (l *LineReader) ReadLine() ([]byte, error) {
	for {
		chunk, err := l.r.ReadSlice('\n')
		if len(l.pending)+len(chunk) > l.max {
			l.pending = nil
			return nil, ErrLineTooLong
		}
		l.pending = append(l.pending, chunk...)

		switch {
		case err == nil:
			return l.take()
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && len(l.pending) > 0:
			return l.take()
		default:
			return nil, err
		}
	}
}

func (l *LineReader) take() ([]byte, error) {
	line := l.pending
	l.pending = nil
	if !utf8.Valid(line) {
		return nil, ErrInvalidUTF8
	}
	return line, nil
}
