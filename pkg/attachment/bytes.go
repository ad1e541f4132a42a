package attachment

import (
	"bytes"
	"io"
	"iter"
	"net/textproto"
)

// ByteArray is an in-memory attachment.
type ByteArray struct {
	contentID   string
	contentType string
	data        []byte
	handler     *BytesHandler
}

// NewBytes creates an attachment from a byte slice.
func NewBytes(contentID, contentType string, data []byte) *ByteArray {
	if contentType == "" {
		contentType = DefaultContentType
	}
	return &ByteArray{
		contentID:   trimBrackets(contentID),
		contentType: contentType,
		data:        data,
	}
}

func (a *ByteArray) ContentID() string   { return a.contentID }
func (a *ByteArray) ContentType() string { return a.contentType }

func (a *ByteArray) Bytes() ([]byte, error) { return a.data, nil }

func (a *ByteArray) DataHandler() (DataHandler, error) {
	if a.handler == nil {
		a.handler = NewBytesHandler(a.data, a.contentType)
	}
	return a.handler, nil
}

func (a *ByteArray) Source() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(a.data)), nil
}

func (a *ByteArray) Reader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(a.data)), nil
}

func (a *ByteArray) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(a.data)
	return int64(n), err
}

func (a *ByteArray) Headers() iter.Seq2[string, string] {
	h := textproto.MIMEHeader{}
	h.Set("Content-Id", "<"+a.contentID+">")
	h.Set("Content-Type", a.contentType)
	return HeaderSeq(h)
}

// Handler is an attachment backed by an arbitrary DataHandler.
type Handler struct {
	contentID string
	handler   DataHandler
	data      []byte
	loaded    bool
}

// FromDataHandler creates an attachment that reads from h on demand.
func FromDataHandler(contentID string, h DataHandler) *Handler {
	return &Handler{contentID: trimBrackets(contentID), handler: h}
}

func (a *Handler) ContentID() string   { return a.contentID }
func (a *Handler) ContentType() string { return a.handler.ContentType() }

func (a *Handler) Bytes() ([]byte, error) {
	if a.loaded {
		return a.data, nil
	}
	data, err := ReadAll(a.handler)
	if err != nil {
		return nil, err
	}
	a.data, a.loaded = data, true
	return data, nil
}

func (a *Handler) DataHandler() (DataHandler, error) {
	if a.loaded {
		return NewBytesHandler(a.data, a.handler.ContentType()), nil
	}
	return a.handler, nil
}

func (a *Handler) Source() (io.ReadCloser, error) { return a.Reader() }

func (a *Handler) Reader() (io.ReadCloser, error) {
	if a.loaded {
		return io.NopCloser(bytes.NewReader(a.data)), nil
	}
	return a.handler.Open()
}

func (a *Handler) WriteTo(w io.Writer) (int64, error) {
	if a.loaded {
		n, err := w.Write(a.data)
		return int64(n), err
	}
	rc, err := a.handler.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	return io.Copy(w, rc)
}

func (a *Handler) Headers() iter.Seq2[string, string] {
	h := textproto.MIMEHeader{}
	h.Set("Content-Id", "<"+a.contentID+">")
	h.Set("Content-Type", a.ContentType())
	return HeaderSeq(h)
}

func trimBrackets(cid string) string {
	if len(cid) >= 2 && cid[0] == '<' && cid[len(cid)-1] == '>' {
		return cid[1 : len(cid)-1]
	}
	return cid
}
