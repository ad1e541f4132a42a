package message

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/beevik/etree"

	"github.com/sirosfoundation/go-mtom/pkg/attachment"
	"github.com/sirosfoundation/go-mtom/pkg/xmlstream"
)

// ErrNoRoot is returned by Read for documents without a root element.
var ErrNoRoot = errors.New("message has no root element")

// Message is a SOAP message: an XML document plus its attachments.
//
// Elements registered with SetBinary carry binary content. They are written
// through xmlstream.BinaryWriter when the target writer supports it, which
// lets MTOM move the bytes into a separate MIME part.
type Message struct {
	doc         *etree.Document
	binary      map[*etree.Element]attachment.DataHandler
	attachments *attachment.Set
}

// New wraps an XML document.
func New(doc *etree.Document) *Message {
	return &Message{
		doc:         doc,
		binary:      make(map[*etree.Element]attachment.DataHandler),
		attachments: attachment.NewSet(),
	}
}

// NewEnvelope builds a message whose body holds payload.
func NewEnvelope(version SOAPVersion, payload *etree.Element) *Message {
	doc := etree.NewDocument()
	env := doc.CreateElement("S:Envelope")
	env.CreateAttr("xmlns:S", version.EnvelopeNamespace())
	body := env.CreateElement("S:Body")
	if payload != nil {
		body.AddChild(payload)
	}
	return New(doc)
}

// Document returns the underlying XML document.
func (m *Message) Document() *etree.Document {
	return m.doc
}

// Body returns the SOAP Body element, or nil.
func (m *Message) Body() *etree.Element {
	root := m.doc.Root()
	if root == nil {
		return nil
	}
	for _, child := range root.ChildElements() {
		if child.Tag == "Body" {
			return child
		}
	}
	return nil
}

// Payload returns the first element inside the SOAP Body, or nil.
func (m *Message) Payload() *etree.Element {
	body := m.Body()
	if body == nil {
		return nil
	}
	children := body.ChildElements()
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

// SetBinary marks el as carrying binary content supplied by h. Any text
// children of el are ignored when the message is written.
func (m *Message) SetBinary(el *etree.Element, h attachment.DataHandler) {
	m.binary[el] = h
}

// SetBinaryBytes is a shorthand for SetBinary with an in-memory handler.
func (m *Message) SetBinaryBytes(el *etree.Element, data []byte, contentType string) {
	m.SetBinary(el, attachment.NewBytesHandler(data, contentType))
}

// Binary returns the binary content registered for el.
func (m *Message) Binary(el *etree.Element) (attachment.DataHandler, bool) {
	h, ok := m.binary[el]
	return h, ok
}

// BinaryElements returns the number of elements carrying binary content.
func (m *Message) BinaryElements() int {
	return len(m.binary)
}

// Attachments returns the message's attachment set.
func (m *Message) Attachments() *attachment.Set {
	return m.attachments
}

// SetAttachments replaces the attachment set.
func (m *Message) SetAttachments(set *attachment.Set) {
	m.attachments = set
}

// HasAttachments reports whether the message carries attachments.
func (m *Message) HasAttachments() bool {
	return m.attachments != nil && !m.attachments.IsEmpty()
}

// Buffer reads every attachment and binary value into memory. A decoded
// message reads its parts lazily from the input stream; after Buffer it no
// longer needs that stream.
func (m *Message) Buffer() error {
	if m.attachments != nil {
		list, err := m.attachments.List()
		if err != nil {
			return err
		}
		for _, a := range list {
			if _, err := a.Bytes(); err != nil {
				return fmt.Errorf("reading attachment %s: %w", a.ContentID(), err)
			}
		}
	}
	for el, h := range m.binary {
		if _, ok := h.(*attachment.BytesHandler); ok {
			continue
		}
		data, err := attachment.ReadAll(h)
		if err != nil {
			return fmt.Errorf("reading binary content of <%s>: %w", el.FullTag(), err)
		}
		buffered := attachment.NewBytesHandler(data, h.ContentType())
		buffered.SetHrefCID(attachment.HrefCID(h))
		m.binary[el] = buffered
	}
	return nil
}

// WriteXML serializes the document to w.
func (m *Message) WriteXML(w xmlstream.Writer) error {
	root := m.doc.Root()
	if root == nil {
		return ErrNoRoot
	}
	if err := w.StartDocument(); err != nil {
		return err
	}
	if err := m.writeElement(w, root); err != nil {
		return err
	}
	return w.EndDocument()
}

func (m *Message) writeElement(w xmlstream.Writer, el *etree.Element) error {
	name := xmlstream.Name{Prefix: el.Space, Space: el.NamespaceURI(), Local: el.Tag}
	if err := w.StartElement(name); err != nil {
		return err
	}

	for _, a := range el.Attr {
		var err error
		switch {
		case a.Space == "xmlns":
			err = w.Namespace(a.Key, a.Value)
		case a.Space == "" && a.Key == "xmlns":
			err = w.Namespace("", a.Value)
		default:
			err = w.Attribute(xmlstream.Name{Prefix: a.Space, Space: a.NamespaceURI(), Local: a.Key}, a.Value)
		}
		if err != nil {
			return err
		}
	}

	if h, ok := m.binary[el]; ok {
		if err := writeBinary(w, h); err != nil {
			return fmt.Errorf("failed to write binary content of <%s>: %w", el.Tag, err)
		}
		return w.EndElement()
	}

	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.Element:
			if err := m.writeElement(w, t); err != nil {
				return err
			}
		case *etree.CharData:
			if err := w.Characters(t.Data); err != nil {
				return err
			}
		}
	}
	return w.EndElement()
}

func writeBinary(w xmlstream.Writer, h attachment.DataHandler) error {
	bw, ok := w.(xmlstream.BinaryWriter)
	if !ok {
		data, err := attachment.ReadAll(h)
		if err != nil {
			return err
		}
		return w.Characters(base64.StdEncoding.EncodeToString(data))
	}

	// In-memory content that was never part of an XOP package is subject to
	// the writer's size threshold.
	if bh, ok := h.(*attachment.BytesHandler); ok && bh.HrefCID() == "" {
		return bw.WriteBinary(bh.Bytes(), bh.ContentType())
	}
	return bw.WriteDataHandler(h)
}

// Read builds a message from an XML event stream. Character events that the
// reader reports as binary are registered with SetBinary without being
// decoded.
func Read(r xmlstream.Reader) (*Message, error) {
	m := New(etree.NewDocument())
	br, canBinary := r.(xmlstream.BinaryTextReader)

	var stack []*etree.Element
	for {
		ev, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if ev == xmlstream.EndDocument {
			break
		}

		switch ev {
		case xmlstream.StartElement:
			n := r.Name()
			el := etree.NewElement(n.Local)
			el.Space = n.Prefix
			for _, ns := range r.Namespaces() {
				if ns.Prefix == "" {
					el.CreateAttr("xmlns", ns.URI)
				} else {
					el.CreateAttr("xmlns:"+ns.Prefix, ns.URI)
				}
			}
			for _, a := range r.Attrs() {
				el.CreateAttr(a.Name.Qualified(), a.Value)
			}
			if len(stack) == 0 {
				if m.doc.Root() != nil {
					return nil, fmt.Errorf("multiple root elements")
				}
				m.doc.SetRoot(el)
			} else {
				stack[len(stack)-1].AddChild(el)
			}
			stack = append(stack, el)

		case xmlstream.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}

		case xmlstream.Characters:
			if len(stack) == 0 {
				continue
			}
			parent := stack[len(stack)-1]
			if canBinary {
				if h, ok := br.BinaryText(); ok {
					m.binary[parent] = h
					continue
				}
			}
			parent.CreateText(r.Text())

		case xmlstream.Comment:
			if len(stack) > 0 {
				stack[len(stack)-1].CreateComment(r.Text())
			}
		}
	}

	if m.doc.Root() == nil {
		return nil, ErrNoRoot
	}
	return m, nil
}
