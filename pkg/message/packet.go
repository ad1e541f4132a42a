package message

import (
	"fmt"
	"strings"

	"github.com/sirosfoundation/go-mtom/pkg/contenttype"
)

// PropDecodedCharset records the charset of the last decoded message so the
// response on the same exchange can use it.
const PropDecodedCharset = "mtom.decodedCharset"

// ContentNegotiation controls Fast Infoset negotiation.
type ContentNegotiation int

const (
	// NegotiationNone never uses Fast Infoset.
	NegotiationNone ContentNegotiation = iota
	// NegotiationPessimistic advertises Fast Infoset and switches once the peer answers with it.
	NegotiationPessimistic
	// NegotiationOptimistic sends Fast Infoset from the first request.
	NegotiationOptimistic
)

// ParseContentNegotiation accepts "none", "pessimistic" and "optimistic".
func ParseContentNegotiation(s string) (ContentNegotiation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return NegotiationNone, nil
	case "pessimistic":
		return NegotiationPessimistic, nil
	case "optimistic":
		return NegotiationOptimistic, nil
	}
	return NegotiationNone, fmt.Errorf("unknown content negotiation %q", s)
}

func (c ContentNegotiation) String() string {
	switch c {
	case NegotiationPessimistic:
		return "pessimistic"
	case NegotiationOptimistic:
		return "optimistic"
	}
	return "none"
}

// MTOMFeature enables MTOM. Binary values shorter than Threshold bytes are
// inlined as base64.
type MTOMFeature struct {
	Enabled   bool
	Threshold int
}

// Packet carries a message through one encode or decode call.
type Packet struct {
	Message    *Message
	SOAPAction string

	// ContentType is the content type negotiated for this packet. MTOM
	// caches its outbound content type here so retries reuse the boundary.
	ContentType *contenttype.ContentType

	// AcceptableMimeTypes is the peer's Accept header.
	AcceptableMimeTypes string
	ContentNegotiation  ContentNegotiation

	// MTOMRequest is set when the inbound request was MTOM encoded.
	MTOMRequest *bool
	MTOM        *MTOMFeature

	Properties map[string]any
}

// NewPacket creates a packet for msg.
func NewPacket(msg *Message) *Packet {
	return &Packet{Message: msg, Properties: make(map[string]any)}
}

// SetProperty stores an invocation property.
func (p *Packet) SetProperty(key string, value any) {
	if p.Properties == nil {
		p.Properties = make(map[string]any)
	}
	p.Properties[key] = value
}

// Property returns an invocation property.
func (p *Packet) Property(key string) (any, bool) {
	v, ok := p.Properties[key]
	return v, ok
}

// DecodedCharset returns the charset recorded by the last decode, if any.
func (p *Packet) DecodedCharset() string {
	v, _ := p.Properties[PropDecodedCharset].(string)
	return v
}

// SetDecodedCharset records the charset of a decoded message. An empty
// charset clears the property.
func (p *Packet) SetDecodedCharset(cs string) {
	if cs == "" {
		delete(p.Properties, PropDecodedCharset)
		return
	}
	p.SetProperty(PropDecodedCharset, cs)
}

// HasAttachments reports whether the packet's message carries attachments.
func (p *Packet) HasAttachments() bool {
	return p.Message != nil && p.Message.HasAttachments()
}
