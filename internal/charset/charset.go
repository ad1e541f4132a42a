// Package charset resolves MIME charset names for the XML reader and writer.
//
// Names are looked up in the IANA index from golang.org/x/text, so any
// registered alias ("utf-8", "UTF8", "iso-8859-1", "latin1", ...) is accepted.
package charset

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// UTF8 is the default charset of SOAP messages
const UTF8 = "utf-8"

// ErrUnsupported is returned for charset names with no known encoding.
var ErrUnsupported = errors.New("unsupported charset")

// Lookup returns the encoding registered for name.
func Lookup(name string) (encoding.Encoding, error) {
	name = strings.Trim(strings.TrimSpace(name), `"`)
	if name == "" || IsUTF8(name) {
		return unicode.UTF8, nil
	}
	enc, err := ianaindex.MIME.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, name)
	}
	return enc, nil
}

// Supported reports whether name resolves to an encoding.
func Supported(name string) bool {
	_, err := Lookup(name)
	return err == nil
}

// IsUTF8 reports whether name denotes UTF-8.
func IsUTF8(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8", "utf8":
		return true
	}
	return false
}

// NewReader returns a reader that decodes r from charset name into UTF-8.
func NewReader(name string, r io.Reader) (io.Reader, error) {
	if IsUTF8(name) || name == "" {
		return r, nil
	}
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// NewWriter returns a writer that encodes UTF-8 input into charset name.
// The returned writer must be closed to flush buffered output.
func NewWriter(name string, w io.Writer) (io.WriteCloser, error) {
	if IsUTF8(name) || name == "" {
		return nopWriteCloser{w}, nil
	}
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return transform.NewWriter(w, enc.NewEncoder()), nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
