package codec

import (
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/sirosfoundation/go-mtom/pkg/attachment"
	"github.com/sirosfoundation/go-mtom/pkg/contenttype"
	"github.com/sirosfoundation/go-mtom/pkg/message"
	"github.com/sirosfoundation/go-mtom/pkg/mime"
)

// package frame identifiers of one multipart message
type frameIDs struct {
	boundary string
	rootID   string
}

func newFrameIDs() frameIDs {
	id := uuid.NewString()
	return frameIDs{
		boundary: "uuid:" + id,
		rootID:   "rootpart*" + id + "@" + mime.ContentIDDomain,
	}
}

// writeAttachments frames every attachment of set as a MIME part, skipping
// content-ids listed in skip and attachments already referenced from XOP.
func writeAttachments(w io.Writer, boundary string, set *attachment.Set, skip map[string]bool) error {
	if set == nil {
		return nil
	}
	list, err := set.List()
	if err != nil {
		return fmt.Errorf("failed to list attachments: %w", err)
	}
	for _, a := range list {
		if skip[a.ContentID()] {
			continue
		}
		if h, err := a.DataHandler(); err == nil && attachment.HrefCID(h) != "" {
			continue
		}
		if err := mime.WritePart(w, boundary, a.ContentID(), a.ContentType(), a); err != nil {
			return fmt.Errorf("failed to write attachment %q: %w", a.ContentID(), err)
		}
	}
	return nil
}

// multipartCodecs are the codecs a multipart/related body can be routed to.
// fiSwA is nil when Fast Infoset is unavailable or not negotiable.
type multipartCodecs struct {
	mtom  *MTOMCodec
	swa   *SwACodec
	fiSwA *SwACodec
}

// decodeMultipart parses a multipart/related body and hands it to the codec
// matching the root part's Content-Type.
func (m multipartCodecs) decode(r io.Reader, ct *contenttype.ContentType, p *message.Packet) error {
	parser, err := mime.NewParser(r, ct)
	if err != nil {
		return err
	}
	root, err := parser.RootPart()
	if err != nil {
		return err
	}

	rootType := root.ContentType()
	switch {
	case contenttype.HasPrefixFold(rootType, XOPMimeType):
		return m.mtom.decode(parser, p)
	case isFastInfoset(rootType):
		if m.fiSwA == nil {
			return fmt.Errorf("%w: fast infoset root part not accepted", ErrUnsupportedMedia)
		}
		return m.fiSwA.decode(parser, p)
	case isXML(rootType):
		return m.swa.decode(parser, p)
	}
	return fmt.Errorf("%w: root part type %q", ErrUnsupportedMedia, rootType)
}

func isXML(ct string) bool {
	return contenttype.HasPrefixFold(ct, message.SOAP11.ContentType()) ||
		contenttype.HasPrefixFold(ct, message.SOAP12.ContentType()) ||
		contenttype.HasPrefixFold(ct, "application/xml")
}

func isFastInfoset(ct string) bool {
	return contenttype.HasPrefixFold(ct, message.SOAP11.FastInfosetContentType()) ||
		contenttype.HasPrefixFold(ct, message.SOAP12.FastInfosetContentType())
}
