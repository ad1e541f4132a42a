package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sirosfoundation/go-mtom/pkg/codec"
	"github.com/sirosfoundation/go-mtom/pkg/compression"
	"github.com/sirosfoundation/go-mtom/pkg/contenttype"
	"github.com/sirosfoundation/go-mtom/pkg/message"
)

// Endpoint processes one decoded request and returns the response packet.
type Endpoint interface {
	Serve(ctx context.Context, req *message.Packet) (*message.Packet, error)
}

// EndpointFunc adapts a function to Endpoint.
type EndpointFunc func(ctx context.Context, req *message.Packet) (*message.Packet, error)

func (f EndpointFunc) Serve(ctx context.Context, req *message.Packet) (*message.Packet, error) {
	return f(ctx, req)
}

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	Codec codec.Config

	// Compress gzips responses for clients that accept it.
	Compress bool

	// MaxRequestBytes limits request bodies. Zero means no limit.
	MaxRequestBytes int64
}

// Handler is an http.Handler that decodes SOAP requests, passes them to an
// Endpoint and encodes the response with the negotiated codec.
type Handler struct {
	config     HandlerConfig
	codec      *codec.NegotiatingCodec
	endpoint   Endpoint
	compressor *compression.Compressor
	logger     *slog.Logger
}

// NewHandler creates a Handler for endpoint.
func NewHandler(config HandlerConfig, endpoint Endpoint) *Handler {
	logger := config.Codec.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		config:     config,
		codec:      codec.NewNegotiatingCodec(config.Codec),
		endpoint:   endpoint,
		compressor: compression.NewCompressor(),
		logger:     logger,
	}
}

// ErrRequestTooLarge is reported when a request body, after decompression,
// exceeds HandlerConfig.MaxRequestBytes.
var ErrRequestTooLarge = errors.New("request body too large")

// limitedBody caps the bytes read from a decompressed request body. Unlike
// io.LimitReader it fails instead of reporting a clean EOF at the limit.
type limitedBody struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func (l *limitedBody) Read(p []byte) (int, error) {
	if l.exceeded {
		return 0, ErrRequestTooLarge
	}
	if l.remaining <= 0 {
		var one [1]byte
		n, err := l.r.Read(one[:])
		if n > 0 {
			l.exceeded = true
			return 0, ErrRequestTooLarge
		}
		return 0, err
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	return n, err
}

// decodeStatus maps a decode failure to an HTTP status.
func decodeStatus(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, ErrRequestTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, codec.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusBadRequest
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	var body io.Reader = r.Body
	if h.config.MaxRequestBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.config.MaxRequestBytes)
	}
	var limited *limitedBody
	if compression.IsGzip(r.Header.Get("Content-Encoding")) {
		gz, err := compression.NewReader(body)
		if err != nil {
			http.Error(w, "Invalid gzip body", http.StatusBadRequest)
			return
		}
		defer gz.Close()
		body = gz
		if h.config.MaxRequestBytes > 0 {
			limited = &limitedBody{r: gz, remaining: h.config.MaxRequestBytes}
			body = limited
		}
	}
	tooLarge := func() bool { return limited != nil && limited.exceeded }

	cd := h.codec.Copy().(*codec.NegotiatingCodec)

	req := message.NewPacket(nil)
	req.AcceptableMimeTypes = r.Header.Get("Accept")
	// SOAP 1.2 decoding fills the action from the envelope's Content-Type
	if h.config.Codec.Version == message.SOAP12 {
		req.SOAPAction = contenttype.QuoteSOAPAction("")
	} else {
		req.SOAPAction = r.Header.Get("SOAPAction")
	}
	if err := cd.Decode(body, r.Header.Get("Content-Type"), req); err != nil {
		status := decodeStatus(err)
		if tooLarge() {
			status = http.StatusRequestEntityTooLarge
		}
		h.logger.Warn("rejected request",
			slog.String("content_type", r.Header.Get("Content-Type")),
			slog.Int("status", status),
			slog.String("error", err.Error()))
		http.Error(w, fmt.Sprintf("Failed to decode message: %v", err), status)
		return
	}
	resp, err := h.endpoint.Serve(r.Context(), req)
	if err != nil && tooLarge() {
		// attachments are read lazily, so the limit can trip inside the endpoint
		h.logger.Warn("rejected request", slog.Int("status", http.StatusRequestEntityTooLarge))
		http.Error(w, ErrRequestTooLarge.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	if err != nil {
		h.logger.Error("endpoint failed", slog.String("error", err.Error()))
		http.Error(w, fmt.Sprintf("Failed to process message: %v", err), http.StatusInternalServerError)
		return
	}
	resp.AcceptableMimeTypes = req.AcceptableMimeTypes
	resp.SetDecodedCharset(req.DecodedCharset())

	var out bytes.Buffer
	ct, err := cd.Encode(resp, &out)
	if err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	payload := out.Bytes()
	if h.config.Compress && compression.IsGzip(r.Header.Get("Accept-Encoding")) && compression.ShouldCompress(ct.String()) {
		compressed, err := h.compressor.Compress(payload)
		if err != nil {
			http.Error(w, "Failed to compress response", http.StatusInternalServerError)
			return
		}
		payload = compressed
		w.Header().Set("Content-Encoding", compression.ContentEncodingGzip)
	}

	w.Header().Set("Content-Type", ct.String())
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}
