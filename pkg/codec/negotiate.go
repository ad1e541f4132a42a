package codec

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sirosfoundation/go-mtom/pkg/contenttype"
	"github.com/sirosfoundation/go-mtom/pkg/message"
)

// Config configures a NegotiatingCodec.
type Config struct {
	Version message.SOAPVersion

	// MTOM enables MTOM encoding. Nil disables it.
	MTOM *message.MTOMFeature

	// FastInfoset is optional. Without it Fast Infoset is never used and
	// inbound Fast Infoset messages are rejected.
	FastInfoset FastInfosetProvider

	// Negotiation applies to packets that do not set their own.
	Negotiation message.ContentNegotiation

	Logger *slog.Logger
}

// NegotiatingCodec chooses between the XML, MTOM, SwA and Fast Infoset codecs.
//
// Decode selects a codec from the inbound Content-Type. Encode selects one
// from the configured features, the packet's attachments and what the
// previous decode saw. An instance that decodes before it encodes acts as a
// server, otherwise as a client.
type NegotiatingCodec struct {
	cfg    Config
	logger *slog.Logger

	xml   *XMLCodec
	mtom  *MTOMCodec
	swa   *SwACodec
	fi    *FastInfosetCodec
	fiSwA *SwACodec

	decodedBefore  bool
	encodedFirst   bool
	mtomRequest    bool
	useFastInfoset bool
}

// NewNegotiatingCodec creates a dispatcher for cfg.
func NewNegotiatingCodec(cfg Config) *NegotiatingCodec {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MTOM != nil {
		feature := *cfg.MTOM
		cfg.MTOM = &feature
	}

	c := &NegotiatingCodec{cfg: cfg, logger: logger}
	c.xml = NewXMLCodec(cfg.Version)
	c.mtom = NewMTOMCodec(cfg.Version, cfg.MTOM, logger)
	c.swa = NewSwACodec(cfg.Version, c.xml, logger)
	if fi := NewFastInfosetCodec(cfg.Version, cfg.FastInfoset); fi != nil {
		c.fi = fi
		c.fiSwA = NewSwACodec(cfg.Version, fi, logger)
	}
	return c
}

func (c *NegotiatingCodec) MimeType() string {
	return c.xml.MimeType()
}

func (c *NegotiatingCodec) negotiation(p *message.Packet) message.ContentNegotiation {
	if p.ContentNegotiation != message.NegotiationNone {
		return p.ContentNegotiation
	}
	return c.cfg.Negotiation
}

func (c *NegotiatingCodec) isClient() bool {
	return !c.decodedBefore
}

func (c *NegotiatingCodec) mtomEnabled() bool {
	return c.cfg.MTOM != nil && c.cfg.MTOM.Enabled
}

// acceptsMTOM reports whether the peer's Accept header allows an XOP reply.
func acceptsMTOM(accept string) bool {
	return strings.Contains(strings.ToLower(accept), XOPMimeType)
}

func (c *NegotiatingCodec) acceptsFastInfoset(accept string) bool {
	accept = strings.ToLower(accept)
	return strings.Contains(accept, message.SOAP11.FastInfosetContentType()) ||
		strings.Contains(accept, message.SOAP12.FastInfosetContentType())
}

// encoder picks the codec for the next encode of p.
func (c *NegotiatingCodec) encoder(p *message.Packet) Codec {
	client := c.isClient()
	neg := c.negotiation(p)

	useFI := c.useFastInfoset || (client && neg == message.NegotiationOptimistic)
	if c.fi != nil && useFI && neg != message.NegotiationNone {
		if p.HasAttachments() {
			return c.fiSwA
		}
		return c.fi
	}

	if c.mtomEnabled() {
		mtomRequest := c.mtomRequest || (p.MTOMRequest != nil && *p.MTOMRequest)
		if client || mtomRequest || acceptsMTOM(p.AcceptableMimeTypes) {
			return c.mtom
		}
	}

	if p.HasAttachments() {
		return c.swa
	}
	return c.xml
}

// accept is the Accept header a client sends.
func (c *NegotiatingCodec) accept(p *message.Packet) string {
	accept := c.xml.Accept()
	if c.fi != nil && c.negotiation(p) != message.NegotiationNone {
		accept = c.cfg.Version.FastInfosetContentType() + ", " + accept
	}
	if c.mtomEnabled() {
		accept += ", " + XOPMimeType
	}
	return accept
}

func (c *NegotiatingCodec) StaticContentType(p *message.Packet) *contenttype.ContentType {
	ct := c.encoder(p).StaticContentType(p)
	if c.isClient() {
		ct = ct.WithAccept(c.accept(p))
	}
	return ct
}

func (c *NegotiatingCodec) Encode(p *message.Packet, w io.Writer) (*contenttype.ContentType, error) {
	return c.encode(p, func(enc Codec) (*contenttype.ContentType, error) {
		return enc.Encode(p, w)
	})
}

func (c *NegotiatingCodec) EncodeChannel(p *message.Packet, ch chan<- []byte) (*contenttype.ContentType, error) {
	return c.encode(p, func(enc Codec) (*contenttype.ContentType, error) {
		return enc.EncodeChannel(p, ch)
	})
}

func (c *NegotiatingCodec) encode(p *message.Packet, write func(Codec) (*contenttype.ContentType, error)) (*contenttype.ContentType, error) {
	if !c.decodedBefore {
		c.encodedFirst = true
	}
	// encoder selection counts the attachments
	if p.Message != nil && p.Message.Attachments() != nil {
		if err := p.Message.Attachments().Load(); err != nil {
			return nil, exchangeError("encode", fmt.Errorf("failed to load attachments: %w", err))
		}
	}
	client := c.isClient()
	enc := c.encoder(p)
	defer c.resetAfterEncode()

	c.logger.Debug("selected encoder",
		slog.String("mime_type", enc.MimeType()),
		slog.Bool("client", client),
		slog.Bool("attachments", p.HasAttachments()))

	ct, err := write(enc)
	if err != nil {
		return nil, err
	}
	if client {
		ct = ct.WithAccept(c.accept(p))
	}
	return ct, nil
}

// resetAfterEncode clears the state of the finished exchange. A client
// keeps a Fast Infoset upgrade for later requests.
func (c *NegotiatingCodec) resetAfterEncode() {
	c.mtomRequest = false
	if c.decodedBefore {
		c.useFastInfoset = false
	}
	c.decodedBefore = false
}

func (c *NegotiatingCodec) Decode(r io.Reader, contentType string, p *message.Packet) error {
	if !c.encodedFirst {
		c.decodedBefore = true
	}
	return exchangeError("decode", c.decode(r, contentType, p))
}

func (c *NegotiatingCodec) decode(r io.Reader, contentType string, p *message.Packet) error {
	ct, err := parseContentType(contentType)
	if err != nil {
		return err
	}
	neg := c.negotiation(p)
	fiAllowed := c.fi != nil && neg != message.NegotiationNone
	server := c.decodedBefore

	switch {
	case contenttype.HasPrefixFold(contentType, mimeMultipartRelated):
		codecs := multipartCodecs{mtom: c.mtom, swa: c.swa}
		if fiAllowed {
			codecs.fiSwA = c.fiSwA
		}
		if err := codecs.decode(r, ct, p); err != nil {
			return err
		}
		if p.MTOMRequest != nil && *p.MTOMRequest {
			c.mtomRequest = true
		}
		if rootType, _ := ct.Parameter(contenttype.ParamType); isFastInfoset(rootType) {
			c.fastInfosetReceived(neg, server)
		}

	case isFastInfoset(contentType):
		if !fiAllowed {
			return fmt.Errorf("%w: fast infoset is not negotiated", ErrUnsupportedMedia)
		}
		if err := c.fi.Decode(r, contentType, p); err != nil {
			return err
		}
		c.fastInfosetReceived(neg, server)

	default:
		if err := c.xml.Decode(r, contentType, p); err != nil {
			return err
		}
		if server {
			c.useFastInfoset = fiAllowed && c.acceptsFastInfoset(p.AcceptableMimeTypes)
		}
	}
	return nil
}

// fastInfosetReceived records that the peer sent Fast Infoset. A server
// answers in kind; a pessimistic client switches for the rest of the session.
func (c *NegotiatingCodec) fastInfosetReceived(neg message.ContentNegotiation, server bool) {
	if server || neg == message.NegotiationPessimistic {
		c.useFastInfoset = true
	}
}

// FastInfosetNegotiated reports whether the next encode will use Fast Infoset.
func (c *NegotiatingCodec) FastInfosetNegotiated() bool {
	return c.fi != nil && c.useFastInfoset
}

// Copy returns a codec with the same configuration and fresh negotiation state.
func (c *NegotiatingCodec) Copy() Codec {
	return NewNegotiatingCodec(c.cfg)
}
