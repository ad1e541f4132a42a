package mime

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"
)

// ErrPartConsumed is returned when a part body was streamed without being
// retained and is asked for again.
var ErrPartConsumed = errors.New("mime part content already consumed")

// rawPart is one part of the underlying stream. While the stream sits on the
// part its body is read live; once the stream moves on, whatever was not read
// yet is spooled into buf.
type rawPart struct {
	header    textproto.MIMEHeader
	contentID string

	live     io.Reader
	buf      []byte
	bufStart int64
	retain   bool
	eof      bool
}

func newRawPart(p *multipart.Part) *rawPart {
	rp := &rawPart{
		header:    p.Header,
		contentID: GetContentIDWithoutBrackets(strings.TrimSpace(p.Header.Get("Content-Id"))),
	}
	switch strings.ToLower(strings.TrimSpace(p.Header.Get("Content-Transfer-Encoding"))) {
	case "base64":
		rp.live = base64.NewDecoder(base64.StdEncoding, p)
	case "quoted-printable":
		rp.live = quotedprintable.NewReader(p)
	default:
		rp.live = p
	}
	return rp
}

// open returns a reader positioned at the start of the body. If retain is set,
// bytes read from the live stream are kept so the body can be replayed.
func (p *rawPart) open(retain bool) (io.ReadCloser, error) {
	if p.bufStart > 0 {
		return nil, ErrPartConsumed
	}
	if retain {
		p.retain = true
	}
	return &partReader{part: p}, nil
}

func (p *rawPart) readAt(pos int64, b []byte) (int, error) {
	if pos < p.bufStart {
		return 0, ErrPartConsumed
	}
	if end := p.bufStart + int64(len(p.buf)); pos < end {
		return copy(b, p.buf[pos-p.bufStart:]), nil
	}
	if p.live == nil || p.eof {
		return 0, io.EOF
	}

	n, err := p.live.Read(b)
	if n > 0 {
		if p.retain {
			p.buf = append(p.buf, b[:n]...)
		} else {
			p.bufStart += int64(n)
		}
	}
	if err == io.EOF {
		p.eof = true
		p.live = nil
	}
	return n, err
}

// spool reads the unread remainder of the live body into memory.
func (p *rawPart) spool() error {
	if p.live == nil {
		return nil
	}
	rest, err := io.ReadAll(p.live)
	p.live = nil
	if err != nil {
		return fmt.Errorf("failed to spool part %q: %w", p.contentID, err)
	}
	p.buf = append(p.buf, rest...)
	p.eof = true
	return nil
}

type partReader struct {
	part   *rawPart
	pos    int64
	closed bool
}

func (r *partReader) Read(b []byte) (int, error) {
	if r.closed {
		return 0, io.ErrClosedPipe
	}
	if len(b) == 0 {
		return 0, nil
	}
	n, err := r.part.readAt(r.pos, b)
	r.pos += int64(n)
	return n, err
}

func (r *partReader) Close() error {
	r.closed = true
	return nil
}

// streamParser walks the multipart body one part at a time.
type streamParser struct {
	reader  *multipart.Reader
	parts   []*rawPart
	byID    map[string]*rawPart
	current *rawPart
	done    bool
}

func newStreamParser(r io.Reader, boundary string) *streamParser {
	return &streamParser{
		reader: multipart.NewReader(r, boundary),
		byID:   make(map[string]*rawPart),
	}
}

// next reads the next part header. It returns nil when the stream is exhausted.
func (s *streamParser) next() (*rawPart, error) {
	if s.done {
		return nil, nil
	}
	if s.current != nil {
		if err := s.current.spool(); err != nil {
			return nil, err
		}
		s.current = nil
	}

	p, err := s.reader.NextRawPart()
	if err == io.EOF {
		s.done = true
		return nil, nil
	}
	if err != nil {
		s.done = true
		return nil, fmt.Errorf("%w: failed to read part: %v", ErrFraming, err)
	}

	rp := newRawPart(p)
	s.parts = append(s.parts, rp)
	if rp.contentID != "" {
		if _, ok := s.byID[rp.contentID]; !ok {
			s.byID[rp.contentID] = rp
		}
	}
	s.current = rp
	return rp, nil
}

// partAt returns the i-th part, reading ahead as needed.
func (s *streamParser) partAt(i int) (*rawPart, error) {
	for len(s.parts) <= i {
		rp, err := s.next()
		if err != nil {
			return nil, err
		}
		if rp == nil {
			return nil, nil
		}
	}
	return s.parts[i], nil
}

// partByID returns the part with the given content-id, reading ahead as needed.
func (s *streamParser) partByID(contentID string) (*rawPart, error) {
	for {
		if rp, ok := s.byID[contentID]; ok {
			return rp, nil
		}
		rp, err := s.next()
		if err != nil {
			return nil, err
		}
		if rp == nil {
			return nil, nil
		}
	}
}

// all reads every remaining part header.
func (s *streamParser) all() ([]*rawPart, error) {
	for !s.done {
		if _, err := s.next(); err != nil {
			return nil, err
		}
	}
	return s.parts, nil
}
