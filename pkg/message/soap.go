package message

import (
	"fmt"
	"strings"
)

// SOAP envelope namespaces
const (
	NsSOAP11Env = "http://schemas.xmlsoap.org/soap/envelope/"
	NsSOAP12Env = "http://www.w3.org/2003/05/soap-envelope"
)

// SOAPVersion selects the SOAP binding of a codec.
type SOAPVersion int

const (
	SOAP11 SOAPVersion = iota
	SOAP12
)

// ParseSOAPVersion accepts "1.1" and "1.2".
func ParseSOAPVersion(s string) (SOAPVersion, error) {
	switch strings.TrimSpace(s) {
	case "", "1.1", "soap11":
		return SOAP11, nil
	case "1.2", "soap12":
		return SOAP12, nil
	}
	return SOAP11, fmt.Errorf("unknown SOAP version %q", s)
}

func (v SOAPVersion) String() string {
	if v == SOAP12 {
		return "1.2"
	}
	return "1.1"
}

// ContentType returns the MIME type of a plain XML envelope.
func (v SOAPVersion) ContentType() string {
	if v == SOAP12 {
		return "application/soap+xml"
	}
	return "text/xml"
}

// FastInfosetContentType returns the MIME type of a Fast Infoset envelope.
func (v SOAPVersion) FastInfosetContentType() string {
	if v == SOAP12 {
		return "application/soap+fastinfoset"
	}
	return "application/fastinfoset"
}

// EnvelopeNamespace returns the envelope namespace URI.
func (v SOAPVersion) EnvelopeNamespace() string {
	if v == SOAP12 {
		return NsSOAP12Env
	}
	return NsSOAP11Env
}
