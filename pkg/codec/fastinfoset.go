package codec

import (
	"fmt"
	"io"

	"github.com/sirosfoundation/go-mtom/pkg/attachment"
	"github.com/sirosfoundation/go-mtom/pkg/contenttype"
	"github.com/sirosfoundation/go-mtom/pkg/message"
	"github.com/sirosfoundation/go-mtom/pkg/xmlstream"
)

// FastInfosetProvider turns Fast Infoset documents into XML event streams
// and back.
type FastInfosetProvider interface {
	NewReader(r io.Reader) (xmlstream.Reader, error)
	NewWriter(w io.Writer) (xmlstream.Writer, error)
}

// FastInfosetCodec reads and writes Fast Infoset envelopes through a provider.
type FastInfosetCodec struct {
	version  message.SOAPVersion
	provider FastInfosetProvider
}

// NewFastInfosetCodec returns nil when provider is nil.
func NewFastInfosetCodec(version message.SOAPVersion, provider FastInfosetProvider) *FastInfosetCodec {
	if provider == nil {
		return nil
	}
	return &FastInfosetCodec{version: version, provider: provider}
}

func (c *FastInfosetCodec) MimeType() string {
	return c.version.FastInfosetContentType()
}

func (c *FastInfosetCodec) StaticContentType(p *message.Packet) *contenttype.ContentType {
	header := c.version.FastInfosetContentType()
	action := p.SOAPAction
	if c.version == message.SOAP12 {
		if v := soapActionValue(action); v != "" {
			header += `;action="` + v + `"`
		}
		action = ""
	}
	b := contenttype.Builder{ContentType: header, SOAPAction: action}
	return b.Build()
}

func (c *FastInfosetCodec) Encode(p *message.Packet, w io.Writer) (*contenttype.ContentType, error) {
	if err := checkMessage(p); err != nil {
		return nil, exchangeError("encode", err)
	}
	ct := c.StaticContentType(p)
	fw, err := c.provider.NewWriter(w)
	if err != nil {
		return nil, exchangeError("encode", fmt.Errorf("failed to create fast infoset writer: %w", err))
	}
	if err := p.Message.WriteXML(fw); err != nil {
		return nil, exchangeError("encode", err)
	}
	return ct, nil
}

func (c *FastInfosetCodec) EncodeChannel(p *message.Packet, ch chan<- []byte) (*contenttype.ContentType, error) {
	return c.Encode(p, chanWriter{ch: ch})
}

func (c *FastInfosetCodec) Decode(r io.Reader, contentType string, p *message.Packet) error {
	return exchangeError("decode", c.decodeWithAttachments(r, contentType, nil, p))
}

func (c *FastInfosetCodec) decodeWithAttachments(r io.Reader, contentType string, atts *attachment.Set, p *message.Packet) error {
	if contentType != "" {
		ct, err := parseContentType(contentType)
		if err != nil {
			return err
		}
		p.ContentType = ct
		setDecodedAction(c.version, ct, p)
	}
	fr, err := c.provider.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to create fast infoset reader: %w", err)
	}
	defer fr.Close()

	msg, err := message.Read(fr)
	if err != nil {
		return err
	}
	if atts != nil {
		msg.SetAttachments(atts)
	}
	p.Message = msg
	return nil
}

func (c *FastInfosetCodec) Copy() Codec {
	cp := *c
	return &cp
}
