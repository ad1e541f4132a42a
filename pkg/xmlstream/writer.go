package xmlstream

import (
	"bufio"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/sirosfoundation/go-mtom/internal/charset"
	"github.com/sirosfoundation/go-mtom/pkg/attachment"
)

var errNoOpenElement = errors.New("no open element")

type textWriter struct {
	out     io.WriteCloser
	w       *bufio.Writer
	charset string
	stack   []Name
	open    bool
}

// NewWriter returns a Writer producing XML text in the given charset.
// Binary content is inlined as base64.
func NewWriter(w io.Writer, charsetName string) (Writer, error) {
	if charsetName == "" {
		charsetName = charset.UTF8
	}
	out, err := charset.NewWriter(charsetName, w)
	if err != nil {
		return nil, err
	}
	return &textWriter{out: out, w: bufio.NewWriter(out), charset: charsetName}, nil
}

func (t *textWriter) StartDocument() error {
	_, err := t.w.WriteString(`<?xml version="1.0" encoding="` + strings.ToLower(t.charset) + `"?>`)
	return err
}

func (t *textWriter) closeStart() error {
	if !t.open {
		return nil
	}
	t.open = false
	return t.w.WriteByte('>')
}

func (t *textWriter) StartElement(name Name) error {
	if err := t.closeStart(); err != nil {
		return err
	}
	t.stack = append(t.stack, name)
	t.open = true
	_, err := t.w.WriteString("<" + name.Qualified())
	return err
}

func (t *textWriter) Namespace(prefix, uri string) error {
	if !t.open {
		return errNoOpenElement
	}
	attr := "xmlns"
	if prefix != "" {
		attr += ":" + prefix
	}
	return t.attr(attr, uri)
}

func (t *textWriter) Attribute(name Name, value string) error {
	if !t.open {
		return errNoOpenElement
	}
	return t.attr(name.Qualified(), value)
}

func (t *textWriter) attr(qname, value string) error {
	if _, err := t.w.WriteString(" " + qname + `="`); err != nil {
		return err
	}
	if err := xml.EscapeText(t.w, []byte(value)); err != nil {
		return err
	}
	return t.w.WriteByte('"')
}

func (t *textWriter) Characters(text string) error {
	if err := t.closeStart(); err != nil {
		return err
	}
	return xml.EscapeText(t.w, []byte(text))
}

func (t *textWriter) EndElement() error {
	if len(t.stack) == 0 {
		return errNoOpenElement
	}
	name := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]
	if t.open {
		t.open = false
		_, err := t.w.WriteString("/>")
		return err
	}
	_, err := t.w.WriteString("</" + name.Qualified() + ">")
	return err
}

func (t *textWriter) EndDocument() error {
	for len(t.stack) > 0 {
		if err := t.EndElement(); err != nil {
			return err
		}
	}
	if err := t.w.Flush(); err != nil {
		return err
	}
	return t.out.Close()
}

func (t *textWriter) Flush() error {
	return t.w.Flush()
}

func (t *textWriter) WriteBinary(data []byte, _ string) error {
	if err := t.closeStart(); err != nil {
		return err
	}
	_, err := t.w.WriteString(base64.StdEncoding.EncodeToString(data))
	return err
}

func (t *textWriter) WriteDataHandler(h attachment.DataHandler) error {
	if err := t.closeStart(); err != nil {
		return err
	}
	rc, err := h.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	enc := base64.NewEncoder(base64.StdEncoding, t.w)
	if _, err := io.Copy(enc, rc); err != nil {
		return err
	}
	return enc.Close()
}
