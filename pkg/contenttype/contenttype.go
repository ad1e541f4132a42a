package contenttype

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zostay/go-email/v2/message/header/param"
)

// ErrMalformed is returned when a Content-Type header cannot be tokenized.
var ErrMalformed = errors.New("malformed content type")

// Well-known parameter names
const (
	ParamCharset   = "charset"
	ParamBoundary  = "boundary"
	ParamStart     = "start"
	ParamStartInfo = "start-info"
	ParamType      = "type"
	ParamAction    = "action"
)

// ContentType is an immutable Content-Type description.
type ContentType struct {
	header            string
	baseType          string
	params            map[string]string
	soapAction        string
	accept            string
	charset           string
	boundary          string
	rootID            string
	boundaryParameter string
}

// Parse parses a received Content-Type header value.
func Parse(header string) (*ContentType, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, fmt.Errorf("%w: empty header", ErrMalformed)
	}

	pv, err := param.Parse(header)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformed, header, err)
	}
	baseType, params := pv.MediaType(), pv.Parameters()

	ct := &ContentType{
		header:   header,
		baseType: baseType,
		params:   params,
		charset:  params[ParamCharset],
		boundary: params[ParamBoundary],
		rootID:   params[ParamStart],
	}
	if ct.boundary != "" {
		ct.boundaryParameter = "boundary=\"" + ct.boundary + "\""
	}
	if action, ok := params[ParamAction]; ok {
		ct.soapAction = QuoteSOAPAction(action)
	} else {
		ct.soapAction = QuoteSOAPAction("")
	}
	return ct, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(header string) *ContentType {
	ct, err := Parse(header)
	if err != nil {
		panic(err)
	}
	return ct
}

// QuoteSOAPAction wraps a SOAPAction value in double quotes unless it already has them.
func QuoteSOAPAction(raw string) string {
	if raw == "" {
		return `""`
	}
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		return raw
	}
	return `"` + raw + `"`
}

// String returns the full header value.
func (c *ContentType) String() string {
	return c.header
}

// BaseType returns the lower-case "primary/sub" media type.
func (c *ContentType) BaseType() string {
	return c.baseType
}

// PrimaryType returns the part of the base type before the slash.
func (c *ContentType) PrimaryType() string {
	primary, _, _ := strings.Cut(c.baseType, "/")
	return primary
}

// SubType returns the part of the base type after the slash.
func (c *ContentType) SubType() string {
	_, sub, _ := strings.Cut(c.baseType, "/")
	return sub
}

// Parameter returns a header parameter. Names are matched case-insensitively.
func (c *ContentType) Parameter(name string) (string, bool) {
	if c.params == nil {
		return "", false
	}
	v, ok := c.params[strings.ToLower(strings.TrimSpace(name))]
	return v, ok
}

// SOAPAction returns the quoted SOAPAction value.
func (c *ContentType) SOAPAction() string {
	return c.soapAction
}

// Accept returns the Accept header value to send alongside this content type.
func (c *ContentType) Accept() string {
	return c.accept
}

// Charset returns the charset parameter, if any.
func (c *ContentType) Charset() string {
	return c.charset
}

// Boundary returns the multipart boundary, if any.
func (c *ContentType) Boundary() string {
	return c.boundary
}

// RootID returns the start parameter exactly as it appears in the header.
func (c *ContentType) RootID() string {
	return c.rootID
}

// BoundaryParameter returns the `boundary="..."` fragment, if a boundary is set.
func (c *ContentType) BoundaryParameter() string {
	return c.boundaryParameter
}

// IsMultipart reports whether the base type is multipart/*.
func (c *ContentType) IsMultipart() bool {
	return c.PrimaryType() == "multipart"
}

// WithAccept returns a copy of c carrying the given Accept value.
func (c *ContentType) WithAccept(accept string) *ContentType {
	cp := *c
	cp.accept = accept
	return &cp
}

// HasPrefixFold reports whether value starts with expected, ignoring case.
//
// Only len(expected) characters of value are compared, so
// "application/xop+xmlish" matches "application/xop+xml".
func HasPrefixFold(value, expected string) bool {
	if len(value) < len(expected) {
		return false
	}
	return strings.EqualFold(value[:len(expected)], expected)
}
