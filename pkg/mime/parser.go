package mime

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirosfoundation/go-mtom/pkg/attachment"
	"github.com/sirosfoundation/go-mtom/pkg/contenttype"
)

// ErrFraming marks messages whose multipart framing cannot be decoded.
var ErrFraming = errors.New("mime framing error")

// ErrMissingBoundary is returned when the Content-Type carries no boundary.
var ErrMissingBoundary = fmt.Errorf("%w: boundary not found in content type", ErrFraming)

// Parser exposes a multipart/related body as a root part plus attachments
// indexed by content-id. The stream is read incrementally and each part is
// materialized at most once. A Parser is not safe for concurrent use.
type Parser struct {
	contentType *contenttype.ContentType
	boundary    string
	rootID      string

	stream      *streamParser
	root        *Part
	attachments map[string]*Part
	order       []string
	allLoaded   bool
}

// NewParser creates a parser for body, framed as described by ct.
func NewParser(body io.Reader, ct *contenttype.ContentType) (*Parser, error) {
	if ct == nil {
		return nil, ErrMissingBoundary
	}
	boundary, _ := ct.Parameter(contenttype.ParamBoundary)
	if boundary == "" {
		return nil, ErrMissingBoundary
	}
	start, _ := ct.Parameter(contenttype.ParamStart)

	return &Parser{
		contentType: ct,
		boundary:    boundary,
		rootID:      GetContentIDWithoutBrackets(start),
		stream:      newStreamParser(body, boundary),
		attachments: make(map[string]*Part),
	}, nil
}

// ContentType returns the Content-Type the parser was created with.
func (p *Parser) ContentType() *contenttype.ContentType {
	return p.contentType
}

// Boundary returns the multipart boundary.
func (p *Parser) Boundary() string {
	return p.boundary
}

// RootPart returns the part named by the start parameter, or the first part
// when there is none. The result is cached.
func (p *Parser) RootPart() (*Part, error) {
	if p.root != nil {
		return p.root, nil
	}

	var (
		raw *rawPart
		err error
	)
	if p.rootID != "" {
		raw, err = p.stream.partByID(p.rootID)
		if err == nil && raw == nil {
			err = fmt.Errorf("%w: root part <%s> not found", ErrFraming, p.rootID)
		}
	} else {
		raw, err = p.stream.partAt(0)
		if err == nil && raw == nil {
			err = fmt.Errorf("%w: multipart body has no parts", ErrFraming)
		}
	}
	if err != nil {
		return nil, err
	}

	p.root = newPart(raw)
	return p.root, nil
}

// AttachmentParts reads the rest of the stream and returns every non-root
// part keyed by content-id.
func (p *Parser) AttachmentParts() (map[string]*Part, error) {
	if err := p.loadAll(); err != nil {
		return nil, err
	}
	out := make(map[string]*Part, len(p.attachments))
	for id, part := range p.attachments {
		out[id] = part
	}
	return out, nil
}

// AttachmentPart returns the attachment with the given content-id. A missing
// part is not an error: nil is returned.
func (p *Parser) AttachmentPart(contentID string) (*Part, error) {
	contentID = GetContentIDWithoutBrackets(contentID)
	if part, ok := p.attachments[contentID]; ok {
		return part, nil
	}
	if p.allLoaded {
		return nil, nil
	}
	if _, err := p.RootPart(); err != nil {
		return nil, err
	}

	raw, err := p.stream.partByID(contentID)
	if err != nil || raw == nil {
		return nil, err
	}
	if raw == p.root.raw {
		return nil, nil
	}
	return p.index(raw), nil
}

// Attachment implements attachment.Source.
func (p *Parser) Attachment(contentID string) (attachment.Attachment, error) {
	part, err := p.AttachmentPart(contentID)
	if err != nil || part == nil {
		return nil, err
	}
	return part, nil
}

// Attachments implements attachment.Source. Parts are returned in stream order.
func (p *Parser) Attachments() ([]attachment.Attachment, error) {
	if err := p.loadAll(); err != nil {
		return nil, err
	}
	out := make([]attachment.Attachment, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.attachments[id])
	}
	return out, nil
}

func (p *Parser) loadAll() error {
	if p.allLoaded {
		return nil
	}
	root, err := p.RootPart()
	if err != nil {
		return err
	}
	raws, err := p.stream.all()
	if err != nil {
		return err
	}
	for _, raw := range raws {
		if raw == root.raw {
			continue
		}
		if _, ok := p.attachments[raw.contentID]; !ok {
			p.index(raw)
		}
	}
	p.allLoaded = true
	return nil
}

func (p *Parser) index(raw *rawPart) *Part {
	if part, ok := p.attachments[raw.contentID]; ok {
		return part
	}
	part := newPart(raw)
	p.attachments[raw.contentID] = part
	p.order = append(p.order, raw.contentID)
	return part
}
