package contenttype

import (
	"strings"

	"github.com/zostay/go-email/v2/message/header/param"
)

// Builder collects the pieces of an outbound Content-Type.
type Builder struct {
	ContentType       string
	SOAPAction        string
	Accept            string
	Charset           string
	Boundary          string
	RootID            string
	BoundaryParameter string
}

// Build produces an immutable ContentType. The SOAPAction is quoted.
func (b *Builder) Build() *ContentType {
	ct := &ContentType{
		header:            b.ContentType,
		soapAction:        QuoteSOAPAction(b.SOAPAction),
		accept:            b.Accept,
		charset:           b.Charset,
		boundary:          b.Boundary,
		rootID:            b.RootID,
		boundaryParameter: b.BoundaryParameter,
	}

	// Outbound headers are produced by the codecs themselves; a parse failure
	// only means the parameter view stays empty.
	if pv, err := param.Parse(b.ContentType); err == nil {
		params := pv.Parameters()
		ct.baseType = pv.MediaType()
		ct.params = params
		if ct.charset == "" {
			ct.charset = params[ParamCharset]
		}
		if ct.boundary == "" {
			ct.boundary = params[ParamBoundary]
		}
		if ct.rootID == "" {
			ct.rootID = params[ParamStart]
		}
	} else {
		base, _, _ := strings.Cut(b.ContentType, ";")
		ct.baseType = strings.ToLower(strings.TrimSpace(base))
	}

	if ct.boundaryParameter == "" && ct.boundary != "" {
		ct.boundaryParameter = "boundary=\"" + ct.boundary + "\""
	}
	return ct
}
