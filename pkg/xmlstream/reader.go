package xmlstream

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/sirosfoundation/go-mtom/internal/charset"
)

// ReaderOption configures NewReader.
type ReaderOption func(*decoderReader) error

// WithCharset decodes the input from the given MIME charset before parsing.
func WithCharset(name string) ReaderOption {
	return func(r *decoderReader) error {
		r.charset = name
		return nil
	}
}

// WithCloser closes c when the reader is closed.
func WithCloser(c io.Closer) ReaderOption {
	return func(r *decoderReader) error {
		r.closer = c
		return nil
	}
}

type decoderReader struct {
	dec     *xml.Decoder
	closer  io.Closer
	charset string

	event  EventType
	name   Name
	attrs  []Attr
	nsDecl []NamespaceDecl
	text   []byte

	scopes []map[string]string
	open   []xml.Name
	ended  bool
}

// NewReader returns a Reader over r using encoding/xml raw tokens.
func NewReader(r io.Reader, opts ...ReaderOption) (Reader, error) {
	dr := &decoderReader{event: StartDocument}
	for _, opt := range opts {
		if err := opt(dr); err != nil {
			return nil, err
		}
	}

	if dr.charset != "" && !charset.IsUTF8(dr.charset) {
		decoded, err := charset.NewReader(dr.charset, r)
		if err != nil {
			return nil, err
		}
		dr.dec = xml.NewDecoder(decoded)
		// already transcoded; ignore the declaration's encoding
		dr.dec.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) { return in, nil }
	} else {
		dr.dec = xml.NewDecoder(r)
		dr.dec.CharsetReader = charset.NewReader
	}
	return dr, nil
}

func (r *decoderReader) Next() (EventType, error) {
	if r.ended {
		return EndDocument, io.EOF
	}
	r.attrs, r.nsDecl, r.text = nil, nil, nil

	for {
		tok, err := r.dec.RawToken()
		if err == io.EOF {
			if len(r.open) > 0 {
				return r.event, fmt.Errorf("failed to read XML token: unexpected EOF inside <%s>", r.open[len(r.open)-1].Local)
			}
			r.ended = true
			r.event = EndDocument
			r.name = Name{}
			return EndDocument, nil
		}
		if err != nil {
			return r.event, fmt.Errorf("failed to read XML token: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			r.startElement(t)
			return r.event, nil
		case xml.EndElement:
			if len(r.open) == 0 || r.open[len(r.open)-1] != t.Name {
				return r.event, fmt.Errorf("failed to read XML token: unexpected end element </%s>", t.Name.Local)
			}
			r.event = EndElement
			r.name = r.resolve(t.Name)
			r.scopes = r.scopes[:len(r.scopes)-1]
			r.open = r.open[:len(r.open)-1]
			return r.event, nil
		case xml.CharData:
			r.event = Characters
			r.text = append([]byte(nil), t...)
			return r.event, nil
		case xml.Comment:
			r.event = Comment
			r.text = append([]byte(nil), t...)
			return r.event, nil
		case xml.ProcInst:
			if t.Target == "xml" {
				continue
			}
			r.event = ProcessingInstruction
			r.name = Name{Local: t.Target}
			r.text = append([]byte(nil), t.Inst...)
			return r.event, nil
		case xml.Directive:
			r.event = Directive
			r.text = append([]byte(nil), t...)
			return r.event, nil
		}
	}
}

func (r *decoderReader) startElement(t xml.StartElement) {
	scope := map[string]string{}
	var attrs []Attr
	for _, a := range t.Attr {
		switch {
		case a.Name.Space == "xmlns":
			scope[a.Name.Local] = a.Value
			r.nsDecl = append(r.nsDecl, NamespaceDecl{Prefix: a.Name.Local, URI: a.Value})
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			scope[""] = a.Value
			r.nsDecl = append(r.nsDecl, NamespaceDecl{URI: a.Value})
		default:
			attrs = append(attrs, Attr{Value: a.Value, Name: Name{Prefix: a.Name.Space, Local: a.Name.Local}})
		}
	}
	r.scopes = append(r.scopes, scope)
	r.open = append(r.open, t.Name)

	for i := range attrs {
		if attrs[i].Name.Prefix != "" {
			attrs[i].Name.Space = r.lookup(attrs[i].Name.Prefix)
		}
	}
	r.attrs = attrs
	r.event = StartElement
	r.name = r.resolve(t.Name)
}

// resolve maps an element name to its namespace; unprefixed names take the
// default namespace.
func (r *decoderReader) resolve(n xml.Name) Name {
	return Name{Prefix: n.Space, Local: n.Local, Space: r.lookup(n.Space)}
}

func (r *decoderReader) lookup(prefix string) string {
	if prefix == "xml" {
		return NamespaceXML
	}
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if uri, ok := r.scopes[i][prefix]; ok {
			return uri
		}
	}
	return ""
}

func (r *decoderReader) Event() EventType { return r.event }

func (r *decoderReader) Name() Name { return r.name }

func (r *decoderReader) Attrs() []Attr { return r.attrs }

func (r *decoderReader) Namespaces() []NamespaceDecl { return r.nsDecl }

func (r *decoderReader) AttrValue(space, local string) (string, bool) {
	for _, a := range r.attrs {
		if a.Name.Space == space && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

func (r *decoderReader) Text() string { return string(r.text) }

func (r *decoderReader) TextBytes() []byte { return r.text }

func (r *decoderReader) TextLen() int { return len(r.text) }

func (r *decoderReader) CopyText(srcStart int, dst []byte) (int, error) {
	return CopyText(r.text, srcStart, dst)
}

func (r *decoderReader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
