package codec

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/sirosfoundation/go-mtom/pkg/attachment"
	"github.com/sirosfoundation/go-mtom/pkg/contenttype"
	"github.com/sirosfoundation/go-mtom/pkg/message"
	"github.com/sirosfoundation/go-mtom/pkg/mime"
)

// SwACodec frames the output of a root codec followed by the message's
// attachments.
type SwACodec struct {
	version message.SOAPVersion
	root    Codec
	logger  *slog.Logger
}

// NewSwACodec creates a SwA codec around root.
func NewSwACodec(version message.SOAPVersion, root Codec, logger *slog.Logger) *SwACodec {
	if logger == nil {
		logger = slog.Default()
	}
	return &SwACodec{version: version, root: root, logger: logger}
}

func (c *SwACodec) MimeType() string {
	return mimeMultipartRelated
}

// propSwAContentType prefixes the packet property caching the outbound
// content type. The root codec's MIME type completes the key.
const propSwAContentType = "swa.staticContentType:"

// StaticContentType returns the multipart/related content type for p. Like
// MTOM it is cached on the packet, so Encode frames the message with the
// boundary and root content-id announced here.
func (c *SwACodec) StaticContentType(p *message.Packet) *contenttype.ContentType {
	key := propSwAContentType + c.root.MimeType()
	if v, ok := p.Property(key); ok {
		if ct, ok := v.(*contenttype.ContentType); ok && ct.Boundary() != "" && ct.RootID() != "" {
			return ct
		}
	}

	ids := newFrameIDs()
	header := mimeMultipartRelated +
		`;start="` + mime.AddContentIDBrackets(ids.rootID) + `"` +
		`;type="` + c.root.MimeType() + `"` +
		`;boundary="` + ids.boundary + `"`

	rootCT := c.root.StaticContentType(p)
	b := contenttype.Builder{
		ContentType: header,
		SOAPAction:  rootCT.SOAPAction(),
		Accept:      rootCT.Accept(),
		Boundary:    ids.boundary,
		RootID:      mime.AddContentIDBrackets(ids.rootID),
	}
	ct := b.Build()
	p.SetProperty(key, ct)
	p.ContentType = ct
	return ct
}

func (c *SwACodec) Encode(p *message.Packet, w io.Writer) (*contenttype.ContentType, error) {
	if err := checkMessage(p); err != nil {
		return nil, exchangeError("encode", err)
	}
	ct, err := c.encode(p, w)
	return ct, exchangeError("encode", err)
}

func (c *SwACodec) encode(p *message.Packet, w io.Writer) (*contenttype.ContentType, error) {
	ct := c.StaticContentType(p)
	boundary := ct.Boundary()

	if err := mime.WriteBoundary(w, boundary); err != nil {
		return nil, err
	}
	if err := mime.WritePartHeaders(w, ct.RootID(), c.root.StaticContentType(p).String()); err != nil {
		return nil, err
	}
	if _, err := c.root.Encode(p, w); err != nil {
		return nil, fmt.Errorf("failed to write root part: %w", err)
	}
	if err := mime.WritePartEnd(w); err != nil {
		return nil, err
	}
	if err := writeAttachments(w, boundary, p.Message.Attachments(), nil); err != nil {
		return nil, err
	}
	if err := mime.WriteClose(w, boundary); err != nil {
		return nil, err
	}
	c.logger.Debug("encoded SwA message", slog.String("boundary", boundary))
	return ct, nil
}

// EncodeChannel is not supported for multipart messages.
func (c *SwACodec) EncodeChannel(*message.Packet, chan<- []byte) (*contenttype.ContentType, error) {
	return nil, exchangeError("encode", fmt.Errorf("%w: SwA encode to a byte channel", ErrUnsupportedOperation))
}

func (c *SwACodec) Decode(r io.Reader, contentType string, p *message.Packet) error {
	ct, err := parseContentType(contentType)
	if err != nil {
		return exchangeError("decode", err)
	}
	parser, err := mime.NewParser(r, ct)
	if err != nil {
		return exchangeError("decode", err)
	}
	return exchangeError("decode", c.decode(parser, p))
}

func (c *SwACodec) decode(parser *mime.Parser, p *message.Packet) error {
	root, err := parser.RootPart()
	if err != nil {
		return err
	}
	rc, err := root.Reader()
	if err != nil {
		return err
	}
	defer rc.Close()

	if ad, ok := c.root.(attachmentDecoder); ok {
		err = ad.decodeWithAttachments(rc, root.ContentType(), attachment.NewLazySet(parser), p)
		if err != nil {
			return err
		}
	} else {
		if err := c.root.Decode(rc, root.ContentType(), p); err != nil {
			return err
		}
		atts, err := parser.Attachments()
		if err != nil {
			return err
		}
		for _, a := range atts {
			p.Message.Attachments().Add(a)
		}
	}
	p.ContentType = parser.ContentType()
	return nil
}

func (c *SwACodec) Copy() Codec {
	return &SwACodec{version: c.version, root: c.root.Copy(), logger: c.logger}
}
