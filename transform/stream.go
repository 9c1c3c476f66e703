package transform

import (
	"fmt"
	"io"
)

// keystreamAt returns n keystream bytes starting at an absolute stream offset.
func keystreamAt(key []byte, offset int64, n int) []byte {
	shift := int(offset % int64(len(key)))
	rotated := make([]byte, 0, len(key))
	rotated = append(rotated, key[shift:]...)
	rotated = append(rotated, key[:shift]...)
	// rotated is never empty here, so ExtendKey cannot fail
	ks, _ := ExtendKey(rotated, n)
	return ks
}

// Reader transforms the bytes read from an underlying reader.
type Reader struct {
	r      io.Reader
	engine *Engine
	dir    Direction
	offset int64
}

// NewReader returns a Reader that applies the transform in direction dir to
// everything read from r. The output equals Transform over the whole stream.
func (e *Engine) NewReader(r io.Reader, dir Direction) (*Reader, error) {
	if !dir.valid() {
		return nil, fmt.Errorf("unknown transform direction %v", dir)
	}
	return &Reader{r: r, engine: e, dir: dir}, nil
}

func (s *Reader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if n > 0 {
		chunk := p[:n]
		applyRounds(chunk, keystreamAt(s.engine.key, s.offset, n), s.engine.rounds, s.dir)
		s.offset += int64(n)
	}
	return n, err
}

// Writer transforms bytes before passing them to an underlying writer.
type Writer struct {
	w      io.Writer
	engine *Engine
	dir    Direction
	offset int64
	buf    []byte
}

// NewWriter returns a Writer that applies the transform in direction dir to
// everything written to it before forwarding it to w.
func (e *Engine) NewWriter(w io.Writer, dir Direction) (*Writer, error) {
	if !dir.valid() {
		return nil, fmt.Errorf("unknown transform direction %v", dir)
	}
	return &Writer{w: w, engine: e, dir: dir}, nil
}

// Write never modifies p. Only the bytes accepted by the underlying writer
// advance the keystream offset, so a short write can be retried.
func (s *Writer) Write(p []byte) (int, error) {
	if cap(s.buf) < len(p) {
		s.buf = make([]byte, len(p))
	}
	chunk := s.buf[:len(p)]
	copy(chunk, p)
	applyRounds(chunk, keystreamAt(s.engine.key, s.offset, len(chunk)), s.engine.rounds, s.dir)

	n, err := s.w.Write(chunk)
	s.offset += int64(n)
	return n, err
}
