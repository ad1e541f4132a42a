package attachment

import (
	"bytes"
	"io"
	"iter"
	"net/textproto"
)

// DefaultContentType is used when a part does not declare a Content-Type
const DefaultContentType = "application/octet-stream"

// DataHandler is an opaque source of bytes with a MIME type.
type DataHandler interface {
	ContentType() string
	Open() (io.ReadCloser, error)
}

// XOPReferenced is implemented by data handlers that were resolved from an
// xop:Include reference. HrefCID returns the referenced content-id.
type XOPReferenced interface {
	HrefCID() string
}

// XOPTagger is implemented by data handlers that can record the content-id of
// the xop:Include they were resolved from.
type XOPTagger interface {
	SetHrefCID(cid string)
}

// Attachment is a MIME part travelling alongside the SOAP envelope.
type Attachment interface {
	// ContentID returns the content-id without angle brackets.
	ContentID() string
	ContentType() string
	Bytes() ([]byte, error)
	DataHandler() (DataHandler, error)
	// Source returns the part as an XML document stream.
	Source() (io.ReadCloser, error)
	// Reader returns the raw part body.
	Reader() (io.ReadCloser, error)
	WriteTo(w io.Writer) (int64, error)
	// Headers iterates the part's MIME headers.
	Headers() iter.Seq2[string, string]
}

// HrefCID returns the xop:Include content-id a handler carries, if any.
func HrefCID(h DataHandler) string {
	if x, ok := h.(XOPReferenced); ok {
		return x.HrefCID()
	}
	return ""
}

// BytesHandler is a memory backed DataHandler.
type BytesHandler struct {
	data        []byte
	contentType string
	hrefCID     string
}

// NewBytesHandler wraps data in a DataHandler.
func NewBytesHandler(data []byte, contentType string) *BytesHandler {
	if contentType == "" {
		contentType = DefaultContentType
	}
	return &BytesHandler{data: data, contentType: contentType}
}

func (h *BytesHandler) ContentType() string { return h.contentType }

func (h *BytesHandler) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(h.data)), nil
}

// Bytes returns the wrapped slice.
func (h *BytesHandler) Bytes() []byte { return h.data }

// Len returns the number of bytes held.
func (h *BytesHandler) Len() int { return len(h.data) }

func (h *BytesHandler) HrefCID() string { return h.hrefCID }

func (h *BytesHandler) SetHrefCID(cid string) { h.hrefCID = cid }

// ReadAll drains a DataHandler and closes it.
func ReadAll(h DataHandler) ([]byte, error) {
	if bh, ok := h.(*BytesHandler); ok {
		return bh.data, nil
	}
	rc, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// HeaderSeq exposes a MIME header as a read-only sequence of name/value pairs.
func HeaderSeq(h textproto.MIMEHeader) iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for name, values := range h {
			for _, v := range values {
				if !yield(name, v) {
					return
				}
			}
		}
	}
}

