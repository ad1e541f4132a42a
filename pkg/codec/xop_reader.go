package codec

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirosfoundation/go-mtom/pkg/attachment"
	"github.com/sirosfoundation/go-mtom/pkg/mime"
	"github.com/sirosfoundation/go-mtom/pkg/xmlstream"
)

// xopReader resolves xop:Include elements against the parts of a multipart
// package. An Include is reported as a single Characters event whose text is
// the base64 form of the referenced part.
type xopReader struct {
	xmlstream.Reader
	parser *mime.Parser

	handler attachment.DataHandler
	encoded []byte
	loaded  bool

	// err is a failed read of a substituted part. It sticks: CopyText and
	// every later Next return it.
	err error
}

func newXOPReader(r xmlstream.Reader, parser *mime.Parser) *xopReader {
	return &xopReader{Reader: r, parser: parser}
}

func (x *xopReader) Next() (xmlstream.EventType, error) {
	if x.err != nil {
		return x.Event(), x.err
	}
	x.handler, x.encoded, x.loaded = nil, nil, false

	ev, err := x.Reader.Next()
	if err != nil || ev != xmlstream.StartElement || !x.Reader.Name().Is(XOPNamespace, XOPInclude) {
		return ev, err
	}

	href, ok := x.Reader.AttrValue("", "href")
	if !ok {
		return ev, fmt.Errorf("xop:Include without href")
	}
	h, err := x.resolve(href)
	if err != nil {
		return ev, err
	}

	// move to the matching </xop:Include>
	for depth := 1; depth > 0; {
		next, err := x.Reader.Next()
		if err != nil {
			return next, err
		}
		switch next {
		case xmlstream.StartElement:
			depth++
		case xmlstream.EndElement:
			depth--
		case xmlstream.EndDocument:
			return next, fmt.Errorf("unterminated xop:Include")
		}
	}

	x.handler = h
	return xmlstream.Characters, nil
}

func (x *xopReader) resolve(href string) (attachment.DataHandler, error) {
	cid := strings.TrimPrefix(strings.TrimSpace(href), "cid:")

	part, err := x.parser.AttachmentPart(cid)
	if err != nil {
		return nil, err
	}
	if part == nil && strings.Contains(cid, "%") {
		decoded, derr := url.PathUnescape(cid)
		if derr == nil {
			part, err = x.parser.AttachmentPart(mime.NormalizeContentID(decoded))
			if err != nil {
				return nil, err
			}
		}
	}
	if part == nil {
		return nil, fmt.Errorf("%w: %q", ErrAttachmentNotFound, href)
	}

	h, err := part.DataHandler()
	if err != nil {
		return nil, err
	}
	if t, ok := h.(attachment.XOPTagger); ok {
		t.SetHrefCID(part.ContentID())
	}
	return h, nil
}

func (x *xopReader) Event() xmlstream.EventType {
	if x.handler != nil {
		return xmlstream.Characters
	}
	return x.Reader.Event()
}

func (x *xopReader) Name() xmlstream.Name {
	if x.handler != nil {
		return xmlstream.Name{}
	}
	return x.Reader.Name()
}

func (x *xopReader) Attrs() []xmlstream.Attr {
	if x.handler != nil {
		return nil
	}
	return x.Reader.Attrs()
}

func (x *xopReader) Namespaces() []xmlstream.NamespaceDecl {
	if x.handler != nil {
		return nil
	}
	return x.Reader.Namespaces()
}

// BinaryText returns the part an Include was resolved to.
func (x *xopReader) BinaryText() (attachment.DataHandler, bool) {
	return x.handler, x.handler != nil
}

// base64Text materializes the substituted text once per Include. A part
// that cannot be read yields empty text and records the error.
func (x *xopReader) base64Text() []byte {
	if !x.loaded {
		x.loaded = true
		data, err := attachment.ReadAll(x.handler)
		if err != nil {
			x.err = fmt.Errorf("reading xop part %s: %w", attachment.HrefCID(x.handler), err)
			return nil
		}
		x.encoded = make([]byte, base64.StdEncoding.EncodedLen(len(data)))
		base64.StdEncoding.Encode(x.encoded, data)
	}
	return x.encoded
}

// Err returns the error of a substituted part that could not be read.
func (x *xopReader) Err() error {
	return x.err
}

func (x *xopReader) Text() string {
	if x.handler != nil {
		return string(x.base64Text())
	}
	return x.Reader.Text()
}

func (x *xopReader) TextBytes() []byte {
	if x.handler != nil {
		return x.base64Text()
	}
	return x.Reader.TextBytes()
}

func (x *xopReader) TextLen() int {
	if x.handler != nil {
		return len(x.base64Text())
	}
	return x.Reader.TextLen()
}

func (x *xopReader) CopyText(srcStart int, dst []byte) (int, error) {
	if x.handler != nil {
		text := x.base64Text()
		if x.err != nil {
			return 0, x.err
		}
		return xmlstream.CopyText(text, srcStart, dst)
	}
	return x.Reader.CopyText(srcStart, dst)
}
