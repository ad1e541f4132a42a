package codec

import (
	"fmt"
	"io"

	"github.com/sirosfoundation/go-mtom/internal/charset"
	"github.com/sirosfoundation/go-mtom/pkg/attachment"
	"github.com/sirosfoundation/go-mtom/pkg/contenttype"
	"github.com/sirosfoundation/go-mtom/pkg/message"
	"github.com/sirosfoundation/go-mtom/pkg/xmlstream"
)

const mimeMultipartRelated = "multipart/related"

// XMLCodec reads and writes a plain SOAP envelope.
type XMLCodec struct {
	version message.SOAPVersion
}

// NewXMLCodec creates an XML codec for the given SOAP version.
func NewXMLCodec(version message.SOAPVersion) *XMLCodec {
	return &XMLCodec{version: version}
}

func (c *XMLCodec) MimeType() string {
	return c.version.ContentType()
}

// Accept returns the Accept value a client sends with this codec.
func (c *XMLCodec) Accept() string {
	return c.version.ContentType() + ", " + mimeMultipartRelated
}

func (c *XMLCodec) StaticContentType(p *message.Packet) *contenttype.ContentType {
	cs := encodeCharset(p)
	header := c.version.ContentType() + "; charset=" + cs
	action := p.SOAPAction
	if c.version == message.SOAP12 {
		if v := soapActionValue(action); v != "" {
			header += `;action="` + v + `"`
		}
		// SOAP 1.2 carries the action in the Content-Type only
		action = ""
	}
	b := contenttype.Builder{
		ContentType: header,
		SOAPAction:  action,
		Accept:      c.Accept(),
		Charset:     cs,
	}
	return b.Build()
}

func (c *XMLCodec) Encode(p *message.Packet, w io.Writer) (*contenttype.ContentType, error) {
	if err := checkMessage(p); err != nil {
		return nil, exchangeError("encode", err)
	}
	ct := c.StaticContentType(p)
	xw, err := xmlstream.NewWriter(w, ct.Charset())
	if err != nil {
		return nil, exchangeError("encode", err)
	}
	if err := p.Message.WriteXML(xw); err != nil {
		return nil, exchangeError("encode", fmt.Errorf("failed to write envelope: %w", err))
	}
	return ct, nil
}

func (c *XMLCodec) EncodeChannel(p *message.Packet, ch chan<- []byte) (*contenttype.ContentType, error) {
	return c.Encode(p, chanWriter{ch: ch})
}

func (c *XMLCodec) Decode(r io.Reader, contentType string, p *message.Packet) error {
	return exchangeError("decode", c.decodeWithAttachments(r, contentType, nil, p))
}

func (c *XMLCodec) decodeWithAttachments(r io.Reader, contentType string, atts *attachment.Set, p *message.Packet) error {
	var cs string
	if contentType != "" {
		ct, err := parseContentType(contentType)
		if err != nil {
			return err
		}
		cs = ct.Charset()
		p.ContentType = ct
		setDecodedAction(c.version, ct, p)
	}
	msg, err := readEnvelope(r, cs)
	if err != nil {
		return err
	}
	if atts != nil {
		msg.SetAttachments(atts)
	}
	p.Message = msg
	p.SetDecodedCharset(cs)
	return nil
}

func (c *XMLCodec) Copy() Codec {
	cp := *c
	return &cp
}

// readEnvelope parses an XML envelope encoded in charset cs.
func readEnvelope(r io.Reader, cs string) (*message.Message, error) {
	if cs != "" && !charset.Supported(cs) {
		return nil, fmt.Errorf("%w: charset %q", ErrUnsupportedMedia, cs)
	}
	xr, err := xmlstream.NewReader(r, xmlstream.WithCharset(cs))
	if err != nil {
		return nil, err
	}
	defer xr.Close()
	return message.Read(xr)
}
