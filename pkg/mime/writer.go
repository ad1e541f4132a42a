package mime

import (
	"io"
)

// TransferEncodingBinary is the only transfer encoding written by the codecs
const TransferEncodingBinary = "binary"

// WriteBoundary writes the opening delimiter of a part.
func WriteBoundary(w io.Writer, boundary string) error {
	_, err := io.WriteString(w, "--"+boundary+"\r\n")
	return err
}

// WritePartHeaders writes the header block of a part, including the blank line.
func WritePartHeaders(w io.Writer, contentID, contentType string) error {
	_, err := io.WriteString(w,
		"Content-Id: "+AddContentIDBrackets(contentID)+"\r\n"+
			"Content-Type: "+contentType+"\r\n"+
			"Content-Transfer-Encoding: "+TransferEncodingBinary+"\r\n\r\n")
	return err
}

// WritePartEnd terminates a part body.
func WritePartEnd(w io.Writer) error {
	_, err := io.WriteString(w, "\r\n")
	return err
}

// WriteClose writes the closing delimiter of the multipart body.
func WriteClose(w io.Writer, boundary string) error {
	_, err := io.WriteString(w, "--"+boundary+"--")
	return err
}

// WritePart frames a complete part whose body is copied from body.
func WritePart(w io.Writer, boundary, contentID, contentType string, body io.WriterTo) error {
	if err := WriteBoundary(w, boundary); err != nil {
		return err
	}
	if err := WritePartHeaders(w, contentID, contentType); err != nil {
		return err
	}
	if _, err := body.WriteTo(w); err != nil {
		return err
	}
	return WritePartEnd(w)
}
