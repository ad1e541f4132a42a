package codec

import (
	"encoding/base64"
	"io"

	"github.com/sirosfoundation/go-mtom/pkg/attachment"
	"github.com/sirosfoundation/go-mtom/pkg/mime"
	"github.com/sirosfoundation/go-mtom/pkg/xmlstream"
)

// xopFrame is a binary value moved out of the root part.
type xopFrame struct {
	contentID string
	handler   attachment.DataHandler
}

func (f *xopFrame) WriteTo(w io.Writer) (int64, error) {
	if bh, ok := f.handler.(*attachment.BytesHandler); ok {
		n, err := w.Write(bh.Bytes())
		return int64(n), err
	}
	rc, err := f.handler.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	return io.Copy(w, rc)
}

// xopWriter replaces binary content with xop:Include references and queues
// the bytes as frames written after the root part.
type xopWriter struct {
	xmlstream.Writer
	threshold int
	frames    []*xopFrame
}

func newXOPWriter(w xmlstream.Writer, threshold int) *xopWriter {
	return &xopWriter{Writer: w, threshold: threshold}
}

// WriteBinary inlines data shorter than the threshold as base64.
func (x *xopWriter) WriteBinary(data []byte, contentType string) error {
	if len(data) < x.threshold {
		return x.Writer.Characters(base64.StdEncoding.EncodeToString(data))
	}
	return x.include(attachment.NewBytesHandler(data, contentType))
}

// WriteDataHandler always externalizes: the length of a handler is unknown
// until it is read.
func (x *xopWriter) WriteDataHandler(h attachment.DataHandler) error {
	return x.include(h)
}

func (x *xopWriter) include(h attachment.DataHandler) error {
	cid := attachment.HrefCID(h)
	if cid == "" {
		cid = mime.NewContentID()
	}
	x.frames = append(x.frames, &xopFrame{contentID: cid, handler: h})

	if err := x.Writer.StartElement(xopIncludeName); err != nil {
		return err
	}
	if err := x.Writer.Namespace(xopIncludeName.Prefix, XOPNamespace); err != nil {
		return err
	}
	if err := x.Writer.Attribute(xmlstream.Name{Local: "href"}, "cid:"+cid); err != nil {
		return err
	}
	return x.Writer.EndElement()
}

// flushFrames writes the queued frames as MIME parts and returns their
// content-ids.
func (x *xopWriter) flushFrames(w io.Writer, boundary string) (map[string]bool, error) {
	written := make(map[string]bool, len(x.frames))
	for _, f := range x.frames {
		if err := mime.WritePart(w, boundary, f.contentID, f.handler.ContentType(), f); err != nil {
			return nil, err
		}
		written[f.contentID] = true
	}
	x.frames = nil
	return written, nil
}
