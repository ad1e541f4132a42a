package codec

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/sirosfoundation/go-mtom/internal/charset"
	"github.com/sirosfoundation/go-mtom/pkg/attachment"
	"github.com/sirosfoundation/go-mtom/pkg/contenttype"
	"github.com/sirosfoundation/go-mtom/pkg/message"
	"github.com/sirosfoundation/go-mtom/pkg/mime"
	"github.com/sirosfoundation/go-mtom/pkg/xmlstream"
)

// XOP constants
const (
	XOPNamespace = "http://www.w3.org/2004/08/xop/include"
	XOPInclude   = "Include"
	XOPMimeType  = "application/xop+xml"
)

// propMTOMContentType holds the outbound content type cached on a packet.
const propMTOMContentType = "mtom.staticContentType"

var xopIncludeName = xmlstream.Name{Prefix: "xop", Space: XOPNamespace, Local: XOPInclude}

// MTOMCodec reads and writes XOP packages.
type MTOMCodec struct {
	version message.SOAPVersion
	feature message.MTOMFeature
	logger  *slog.Logger
}

// NewMTOMCodec creates an MTOM codec. A nil feature enables MTOM with a
// threshold of zero, so every binary value is externalized.
func NewMTOMCodec(version message.SOAPVersion, feature *message.MTOMFeature, logger *slog.Logger) *MTOMCodec {
	c := &MTOMCodec{version: version, feature: message.MTOMFeature{Enabled: true}, logger: logger}
	if feature != nil {
		c.feature = *feature
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

func (c *MTOMCodec) MimeType() string {
	return XOPMimeType
}

// StaticContentType returns the multipart/related content type for p. The
// result is cached on the packet so a repeated encode of the same packet
// reuses its boundary and root content-id.
func (c *MTOMCodec) StaticContentType(p *message.Packet) *contenttype.ContentType {
	if v, ok := p.Property(propMTOMContentType); ok {
		if ct, ok := v.(*contenttype.ContentType); ok && ct.Boundary() != "" && ct.RootID() != "" {
			return ct
		}
	}

	ids := newFrameIDs()
	startInfo := c.version.ContentType() + c.actionParameter(p)
	header := mimeMultipartRelated +
		`;start="` + mime.AddContentIDBrackets(ids.rootID) + `"` +
		`;type="` + XOPMimeType + `"` +
		`;boundary="` + ids.boundary + `"` +
		`;start-info="` + startInfo + `"`

	action := p.SOAPAction
	if c.version == message.SOAP12 {
		action = ""
	}
	b := contenttype.Builder{
		ContentType: header,
		SOAPAction:  action,
		Boundary:    ids.boundary,
		RootID:      mime.AddContentIDBrackets(ids.rootID),
	}
	ct := b.Build()
	p.SetProperty(propMTOMContentType, ct)
	p.ContentType = ct
	return ct
}

// actionParameter is the escaped action parameter carried inside the quoted
// type and start-info values, SOAP 1.2 only.
func (c *MTOMCodec) actionParameter(p *message.Packet) string {
	if c.version != message.SOAP12 {
		return ""
	}
	v := soapActionValue(p.SOAPAction)
	if v == "" {
		return ""
	}
	return `;action=\"` + v + `\"`
}

// rootContentType is the Content-Type of the root part.
func (c *MTOMCodec) rootContentType(p *message.Packet, cs string) string {
	return XOPMimeType + ";charset=" + cs + `;type="` + c.version.ContentType() + c.actionParameter(p) + `"`
}

func (c *MTOMCodec) threshold(p *message.Packet) int {
	if p.MTOM != nil {
		return p.MTOM.Threshold
	}
	return c.feature.Threshold
}

func (c *MTOMCodec) Encode(p *message.Packet, w io.Writer) (*contenttype.ContentType, error) {
	if err := checkMessage(p); err != nil {
		return nil, exchangeError("encode", err)
	}
	ct, err := c.encode(p, w)
	return ct, exchangeError("encode", err)
}

func (c *MTOMCodec) encode(p *message.Packet, w io.Writer) (*contenttype.ContentType, error) {
	ct := c.StaticContentType(p)
	boundary := ct.Boundary()
	cs := encodeCharset(p)

	if err := mime.WriteBoundary(w, boundary); err != nil {
		return nil, err
	}
	if err := mime.WritePartHeaders(w, ct.RootID(), c.rootContentType(p, cs)); err != nil {
		return nil, err
	}

	tw, err := xmlstream.NewWriter(w, cs)
	if err != nil {
		return nil, err
	}
	xw := newXOPWriter(tw, c.threshold(p))
	if err := p.Message.WriteXML(xw); err != nil {
		return nil, fmt.Errorf("failed to write root part: %w", err)
	}
	if err := mime.WritePartEnd(w); err != nil {
		return nil, err
	}

	frames := len(xw.frames)
	written, err := xw.flushFrames(w, boundary)
	if err != nil {
		return nil, fmt.Errorf("failed to write xop part: %w", err)
	}
	if err := writeAttachments(w, boundary, p.Message.Attachments(), written); err != nil {
		return nil, err
	}
	if err := mime.WriteClose(w, boundary); err != nil {
		return nil, err
	}

	c.logger.Debug("encoded MTOM message",
		slog.String("boundary", boundary),
		slog.Int("xop_parts", frames))
	return ct, nil
}

// EncodeChannel is not supported for multipart messages.
func (c *MTOMCodec) EncodeChannel(*message.Packet, chan<- []byte) (*contenttype.ContentType, error) {
	return nil, exchangeError("encode", fmt.Errorf("%w: MTOM encode to a byte channel", ErrUnsupportedOperation))
}

func (c *MTOMCodec) Decode(r io.Reader, contentType string, p *message.Packet) error {
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

func (c *MTOMCodec) decode(parser *mime.Parser, p *message.Packet) error {
	root, err := parser.RootPart()
	if err != nil {
		return err
	}
	if !contenttype.HasPrefixFold(root.ContentType(), XOPMimeType) {
		return fmt.Errorf("%w: root part is %q, not %s", ErrUnsupportedMedia, root.ContentType(), XOPMimeType)
	}

	rootCT, err := parseContentType(root.ContentType())
	if err != nil {
		return err
	}
	cs := rootCT.Charset()

	rc, err := root.Reader()
	if err != nil {
		return err
	}
	msg, err := readXOP(rc, cs, parser)
	if err != nil {
		return err
	}
	msg.SetAttachments(attachment.NewLazySet(parser))

	feature := c.feature
	feature.Enabled = true
	mtomRequest := true

	p.Message = msg
	p.MTOM = &feature
	p.MTOMRequest = &mtomRequest
	p.ContentType = parser.ContentType()
	p.SetDecodedCharset(cs)
	setDecodedAction(c.version, envelopeType(rootCT, parser.ContentType()), p)

	c.logger.Debug("decoded MTOM message",
		slog.String("root", root.ContentID()),
		slog.Int("xop_parts", msg.BinaryElements()))
	return nil
}

// envelopeType returns the Content-Type of the XOP-packaged envelope: the
// type parameter of the root part, or start-info of the package.
func envelopeType(rootCT, packageCT *contenttype.ContentType) *contenttype.ContentType {
	value, ok := rootCT.Parameter(contenttype.ParamType)
	if !ok || value == "" {
		value, _ = packageCT.Parameter(contenttype.ParamStartInfo)
	}
	ct, err := contenttype.Parse(value)
	if err != nil {
		return nil
	}
	return ct
}

func readXOP(rc io.ReadCloser, cs string, parser *mime.Parser) (*message.Message, error) {
	if cs != "" && !charset.Supported(cs) {
		rc.Close()
		return nil, fmt.Errorf("%w: charset %q", ErrUnsupportedMedia, cs)
	}
	xr, err := xmlstream.NewReader(rc, xmlstream.WithCharset(cs), xmlstream.WithCloser(rc))
	if err != nil {
		rc.Close()
		return nil, err
	}
	defer xr.Close()
	return message.Read(newXOPReader(xr, parser))
}

func (c *MTOMCodec) Copy() Codec {
	cp := *c
	return &cp
}
