/*
 * This file is subject to the terms and conditions defined in
 * file 'LICENSE.md', which is part of this source code package.
 */

package core

import (
	"bytes"
	"io"
)

// ByteSource is the minimal seekable-read contract the resolver needs from
// its underlying storage (spec.md §4.1). A *os.File has no Size method, so it
// does not satisfy it directly; ReadSeekerSource adapts it (or any
// io.ReadSeeker), and NewByteSourceFromBytes wraps an in-memory buffer for
// tests and small documents.
type ByteSource interface {
	io.ReaderAt
	// Size returns the total length of the source in bytes.
	Size() (int64, error)
}

// ReadSeekerSource adapts an io.ReadSeeker (typically *os.File) to
// ByteSource.
type ReadSeekerSource struct {
	rs   io.ReadSeeker
	size int64
}

// NewReadSeekerSource wraps rs, determining its size with one Seek round
// trip to the end and back.
func NewReadSeekerSource(rs io.ReadSeeker) (*ReadSeekerSource, error) {
	cur, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, errf(KindIO, "determine current offset: %v", err)
	}
	end, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, errf(KindIO, "determine size: %v", err)
	}
	if _, err := rs.Seek(cur, io.SeekStart); err != nil {
		return nil, errf(KindIO, "restore offset: %v", err)
	}
	return &ReadSeekerSource{rs: rs, size: end}, nil
}

// Size returns the source's total length in bytes.
func (s *ReadSeekerSource) Size() (int64, error) {
	return s.size, nil
}

// ReadAt implements io.ReaderAt over the wrapped ReadSeeker. It is not safe
// for concurrent use by multiple goroutines, matching the underlying
// io.ReadSeeker's own restriction.
func (s *ReadSeekerSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > s.size {
		return 0, io.EOF
	}
	if _, err := s.rs.Seek(off, io.SeekStart); err != nil {
		return 0, errf(KindIO, "seek to %d: %v", off, err)
	}
	n, err := io.ReadFull(s.rs, p)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return n, err
}

// NewByteSourceFromBytes wraps an in-memory buffer as a ByteSource.
func NewByteSourceFromBytes(data []byte) ByteSource {
	return &bytesSource{r: bytes.NewReader(data)}
}

type bytesSource struct {
	r *bytes.Reader
}

func (b *bytesSource) Size() (int64, error) {
	return b.r.Size(), nil
}

func (b *bytesSource) ReadAt(p []byte, off int64) (int, error) {
	return b.r.ReadAt(p, off)
}

// reader is a small sequential cursor over a ByteSource, used by the
// tokenizer and the ad hoc offset-based scans in xrefloader.go and
// repair.go. It is not an io.Reader - Read always fills p fully or returns
// io.EOF, since PDF parsing never tolerates a short read silently.
type reader struct {
	src ByteSource
	pos int64
	end int64
}

func newReaderAt(src ByteSource, pos int64) (*reader, error) {
	size, err := src.Size()
	if err != nil {
		return nil, errf(KindIO, "determine size: %v", err)
	}
	return &reader{src: src, pos: pos, end: size}, nil
}

// Tell returns the reader's current absolute offset.
func (r *reader) Tell() int64 { return r.pos }

// Seek repositions the reader. whence follows io.Seeker's SeekStart/
// SeekCurrent/SeekEnd constants.
func (r *reader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.pos + offset
	case io.SeekEnd:
		abs = r.end + offset
	default:
		return 0, errf(KindIO, "invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, errf(KindIO, "seek before start: %d", abs)
	}
	r.pos = abs
	return abs, nil
}

// ReadByte reads and returns the next byte, or io.EOF at end of source.
func (r *reader) ReadByte() (byte, error) {
	var buf [1]byte
	n, err := r.src.ReadAt(buf[:], r.pos)
	if n == 1 {
		r.pos++
		return buf[0], nil
	}
	if err == nil {
		err = io.EOF
	}
	return 0, err
}

// Read fills p completely from the current position, advancing pos by
// however many bytes were actually read even on a short read/EOF.
func (r *reader) Read(p []byte) (int, error) {
	n, err := r.src.ReadAt(p, r.pos)
	r.pos += int64(n)
	return n, err
}

// Peek returns up to n bytes starting at the current position without
// advancing it.
func (r *reader) Peek(n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := r.src.ReadAt(buf, r.pos)
	buf = buf[:read]
	if err == io.EOF && read > 0 {
		err = nil
	}
	return buf, err
}

// Discard skips n bytes forward.
func (r *reader) Discard(n int) error {
	r.pos += int64(n)
	return nil
}

// ReadLine reads bytes up to and including the next '\n' (or '\r\n', or a
// bare '\r'), per PDF's tolerance for either EOL convention. The returned
// slice excludes the line terminator itself.
func (r *reader) ReadLine() ([]byte, error) {
	var line []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && len(line) > 0 {
				return line, nil
			}
			return line, err
		}
		if b == '\n' {
			return line, nil
		}
		if b == '\r' {
			peek, perr := r.Peek(1)
			if perr == nil && len(peek) == 1 && peek[0] == '\n' {
				r.pos++
			}
			return line, nil
		}
		line = append(line, b)
	}
}
