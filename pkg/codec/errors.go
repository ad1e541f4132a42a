package codec

import (
	"errors"
	"fmt"

	"github.com/sirosfoundation/go-mtom/pkg/contenttype"
	"github.com/sirosfoundation/go-mtom/pkg/mime"
)

var (
	// ErrFraming marks a message whose MIME framing or Content-Type cannot be read.
	ErrFraming = mime.ErrFraming

	// ErrUnsupportedMedia marks a charset, root part type or encoding this
	// codec does not handle.
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// ErrUnsupportedOperation is returned when a codec is asked for an
	// operation it does not implement.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrAttachmentNotFound is returned when an xop:Include refers to a part
	// that is not in the package.
	ErrAttachmentNotFound = errors.New("xop attachment not found")
)

var errNoMessage = errors.New("packet has no message")

// ExchangeError wraps any failure of an encode or decode call.
type ExchangeError struct {
	Op  string
	Err error
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

func exchangeError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ee *ExchangeError
	if errors.As(err, &ee) {
		return err
	}
	return &ExchangeError{Op: op, Err: err}
}

// parseContentType parses an inbound header. Malformed parameter lists are
// framing errors.
func parseContentType(header string) (*contenttype.ContentType, error) {
	ct, err := contenttype.Parse(header)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFraming, err)
	}
	return ct, nil
}
