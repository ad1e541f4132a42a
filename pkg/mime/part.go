package mime

import (
	"bytes"
	"io"
	"iter"

	"github.com/sirosfoundation/go-mtom/pkg/attachment"
)

const copyBufferSize = 8 * 1024

// Part is a lazily materialized MIME part. It implements attachment.Attachment.
type Part struct {
	raw         *rawPart
	contentID   string
	contentType string

	data    []byte
	loaded  bool
	handler *partHandler
}

func newPart(raw *rawPart) *Part {
	ct := raw.header.Get("Content-Type")
	if ct == "" {
		ct = attachment.DefaultContentType
	}
	return &Part{raw: raw, contentID: raw.contentID, contentType: ct}
}

// ContentID returns the content-id without angle brackets.
func (p *Part) ContentID() string { return p.contentID }

// ContentType returns the part's Content-Type header.
func (p *Part) ContentType() string { return p.contentType }

// Bytes reads the part body once and caches it.
func (p *Part) Bytes() ([]byte, error) {
	if p.loaded {
		return p.data, nil
	}
	rc, err := p.raw.open(false)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var buf bytes.Buffer
	buf.Grow(copyBufferSize)
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, err
	}
	p.data, p.loaded = buf.Bytes(), true
	return p.data, nil
}

// DataHandler returns a streaming handle on the part. It serves cached bytes
// when the body was already read, otherwise it pulls from the stream.
func (p *Part) DataHandler() (attachment.DataHandler, error) {
	if p.handler == nil {
		p.handler = &partHandler{part: p}
	}
	return p.handler, nil
}

// Source returns the body as an XML source.
func (p *Part) Source() (io.ReadCloser, error) {
	return p.Reader()
}

// Reader returns the raw part body.
func (p *Part) Reader() (io.ReadCloser, error) {
	if p.loaded {
		return io.NopCloser(bytes.NewReader(p.data)), nil
	}
	return p.raw.open(true)
}

// WriteTo copies the body to w without buffering it, then closes the source.
func (p *Part) WriteTo(w io.Writer) (int64, error) {
	if p.loaded {
		n, err := w.Write(p.data)
		return int64(n), err
	}
	rc, err := p.raw.open(false)
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	return io.CopyBuffer(w, rc, make([]byte, copyBufferSize))
}

// Headers iterates the part's MIME headers.
func (p *Part) Headers() iter.Seq2[string, string] {
	return attachment.HeaderSeq(p.raw.header)
}

// Header returns the first value of a MIME header.
func (p *Part) Header(name string) string {
	return p.raw.header.Get(name)
}

type partHandler struct {
	part    *Part
	hrefCID string
}

func (h *partHandler) ContentType() string { return h.part.contentType }

func (h *partHandler) Open() (io.ReadCloser, error) {
	if h.part.loaded {
		return io.NopCloser(bytes.NewReader(h.part.data)), nil
	}
	return h.part.raw.open(true)
}

func (h *partHandler) HrefCID() string { return h.hrefCID }

func (h *partHandler) SetHrefCID(cid string) { h.hrefCID = cid }
