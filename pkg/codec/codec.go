package codec

import (
	"io"
	"strings"

	"github.com/sirosfoundation/go-mtom/internal/charset"
	"github.com/sirosfoundation/go-mtom/pkg/attachment"
	"github.com/sirosfoundation/go-mtom/pkg/contenttype"
	"github.com/sirosfoundation/go-mtom/pkg/message"
)

// Codec converts between packets and their wire representation.
type Codec interface {
	// MimeType returns the base MIME type this codec produces.
	MimeType() string

	// StaticContentType returns the Content-Type Encode will use for p.
	StaticContentType(p *message.Packet) *contenttype.ContentType

	// Encode writes p to w and returns the Content-Type of what was written.
	// On error w may hold a partial message.
	Encode(p *message.Packet, w io.Writer) (*contenttype.ContentType, error)

	// EncodeChannel writes p as a sequence of byte chunks sent on ch. The
	// channel is not closed.
	EncodeChannel(p *message.Packet, ch chan<- []byte) (*contenttype.ContentType, error)

	// Decode reads a message with the given Content-Type header into p.
	Decode(r io.Reader, contentType string, p *message.Packet) error

	// Copy returns an independent codec with the same configuration.
	Copy() Codec
}

// attachmentDecoder is implemented by root codecs that take the attachment
// set of a multipart package along with the root part.
type attachmentDecoder interface {
	decodeWithAttachments(r io.Reader, contentType string, atts *attachment.Set, p *message.Packet) error
}

// encodeCharset mirrors the charset of the last decoded message, falling
// back to UTF-8.
func encodeCharset(p *message.Packet) string {
	if cs := p.DecodedCharset(); cs != "" && charset.Supported(cs) {
		return strings.ToLower(strings.Trim(cs, `"`))
	}
	return charset.UTF8
}

// soapActionValue strips the quotes of a SOAPAction so it can be embedded
// in a Content-Type parameter.
func soapActionValue(action string) string {
	if len(action) >= 2 && action[0] == '"' && action[len(action)-1] == '"' {
		return action[1 : len(action)-1]
	}
	return action
}

// setDecodedAction copies the action parameter of a SOAP 1.2 envelope's
// Content-Type to the packet. SOAP 1.1 carries it in the SOAPAction header.
func setDecodedAction(version message.SOAPVersion, envelopeType *contenttype.ContentType, p *message.Packet) {
	if version != message.SOAP12 || envelopeType == nil {
		return
	}
	if action, ok := envelopeType.Parameter(contenttype.ParamAction); ok {
		p.SOAPAction = contenttype.QuoteSOAPAction(action)
	}
}

func checkMessage(p *message.Packet) error {
	if p == nil || p.Message == nil {
		return errNoMessage
	}
	return nil
}

// chanWriter forwards each write to a channel as an owned chunk.
type chanWriter struct {
	ch chan<- []byte
}

func (c chanWriter) Write(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	c.ch <- append([]byte(nil), b...)
	return len(b), nil
}
