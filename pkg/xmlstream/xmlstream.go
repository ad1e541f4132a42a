package xmlstream

import (
	"errors"

	"github.com/sirosfoundation/go-mtom/pkg/attachment"
)

// EventType identifies the token a Reader is positioned on.
type EventType int

const (
	StartDocument EventType = iota
	EndDocument
	StartElement
	EndElement
	Characters
	Comment
	ProcessingInstruction
	Directive
)

var eventNames = [...]string{
	StartDocument:         "START_DOCUMENT",
	EndDocument:           "END_DOCUMENT",
	StartElement:          "START_ELEMENT",
	EndElement:            "END_ELEMENT",
	Characters:            "CHARACTERS",
	Comment:               "COMMENT",
	ProcessingInstruction: "PROCESSING_INSTRUCTION",
	Directive:             "DTD",
}

func (e EventType) String() string {
	if int(e) < len(eventNames) {
		return eventNames[e]
	}
	return "UNKNOWN"
}

// NamespaceXML is bound to the reserved xml prefix
const NamespaceXML = "http://www.w3.org/XML/1998/namespace"

// ErrRange is returned by CopyText for out of bounds requests.
var ErrRange = errors.New("text range out of bounds")

// ErrNoText is returned by text accessors when the reader is not positioned on text.
var ErrNoText = errors.New("current event has no text")

// Name is a qualified XML name.
type Name struct {
	Prefix string
	Space  string
	Local  string
}

// Is reports whether the name has the given namespace URI and local part.
func (n Name) Is(space, local string) bool {
	return n.Space == space && n.Local == local
}

// Qualified returns prefix:local, or local when there is no prefix.
func (n Name) Qualified() string {
	if n.Prefix == "" {
		return n.Local
	}
	return n.Prefix + ":" + n.Local
}

// Attr is an attribute of a start element.
type Attr struct {
	Name  Name
	Value string
}

// NamespaceDecl is an xmlns declaration on a start element.
type NamespaceDecl struct {
	Prefix string
	URI    string
}

// Reader is a pull parser positioned on one event at a time.
type Reader interface {
	// Next advances to the next event. It returns io.EOF after EndDocument.
	Next() (EventType, error)
	Event() EventType
	Name() Name
	Attrs() []Attr
	Namespaces() []NamespaceDecl
	AttrValue(space, local string) (string, bool)
	Text() string
	// TextBytes returns the UTF-8 text of the current event. The slice is
	// only valid until the next call to Next.
	TextBytes() []byte
	TextLen() int
	// CopyText copies text starting at srcStart into dst.
	CopyText(srcStart int, dst []byte) (int, error)
	Close() error
}

// BinaryTextReader is implemented by readers that can expose the current
// character event as binary content without base64 decoding it.
type BinaryTextReader interface {
	BinaryText() (attachment.DataHandler, bool)
}

// Writer serializes XML events.
type Writer interface {
	StartDocument() error
	StartElement(name Name) error
	Namespace(prefix, uri string) error
	Attribute(name Name, value string) error
	Characters(text string) error
	EndElement() error
	EndDocument() error
	Flush() error
}

// BinaryWriter is implemented by writers that accept binary element content.
// Plain writers inline it as base64; the MTOM writer may move it out of band.
type BinaryWriter interface {
	WriteBinary(data []byte, contentType string) error
	WriteDataHandler(h attachment.DataHandler) error
}

// CopyText implements the ranged copy shared by Reader implementations.
func CopyText(text []byte, srcStart int, dst []byte) (int, error) {
	if srcStart < 0 || srcStart > len(text) {
		return 0, ErrRange
	}
	return copy(dst, text[srcStart:]), nil
}
