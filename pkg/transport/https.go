package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sirosfoundation/go-mtom/pkg/codec"
	"github.com/sirosfoundation/go-mtom/pkg/compression"
	"github.com/sirosfoundation/go-mtom/pkg/message"
)

// TLS version constants
const (
	TLS12 = tls.VersionTLS12
	TLS13 = tls.VersionTLS13
)

// Recommended TLS 1.2 cipher suites
var RecommendedTLS12CipherSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
}

const userAgent = "go-mtom/1.0"

// HTTPSConfig contains HTTPS client/server configuration
type HTTPSConfig struct {
	MinTLSVersion   uint16
	MaxTLSVersion   uint16
	CipherSuites    []uint16
	ClientAuth      tls.ClientAuthType
	Certificates    []tls.Certificate
	RootCAs         *x509.CertPool
	ClientCAs       *x509.CertPool
	Timeout         time.Duration
	IdleConnTimeout time.Duration

	// Compress gzips outbound bodies whose content type allows it.
	Compress bool
}

// DefaultHTTPSConfig returns a default HTTPS configuration
func DefaultHTTPSConfig() *HTTPSConfig {
	return &HTTPSConfig{
		MinTLSVersion:   TLS12,
		MaxTLSVersion:   TLS13,
		CipherSuites:    RecommendedTLS12CipherSuites,
		ClientAuth:      tls.NoClientCert,
		Timeout:         30 * time.Second,
		IdleConnTimeout: 90 * time.Second,
	}
}

// HTTPSClient sends SOAP packets over HTTP(S) and decodes the responses.
// It is safe for concurrent use: every call runs on its own codec copy.
type HTTPSClient struct {
	client      *http.Client
	config      *HTTPSConfig
	version     message.SOAPVersion
	negotiation message.ContentNegotiation
	codec       *codec.NegotiatingCodec
	compressor  *compression.Compressor
	logger      *slog.Logger

	// set once a pessimistic peer answered with Fast Infoset
	fastInfoset atomic.Bool
}

// NewHTTPSClient creates a new HTTPS client
func NewHTTPSClient(config *HTTPSConfig, codecConfig codec.Config) *HTTPSClient {
	if config == nil {
		config = DefaultHTTPSConfig()
	}
	logger := codecConfig.Logger
	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{
		TLSClientConfig:     config.ClientTLSConfig(),
		IdleConnTimeout:     config.IdleConnTimeout,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
	}

	return &HTTPSClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		config:      config,
		version:     codecConfig.Version,
		negotiation: codecConfig.Negotiation,
		codec:       codec.NewNegotiatingCodec(codecConfig),
		compressor:  compression.NewCompressor(),
		logger:      logger,
	}
}

// Call encodes p, posts it to endpoint and returns the decoded response.
func (c *HTTPSClient) Call(ctx context.Context, endpoint string, p *message.Packet) (*message.Packet, error) {
	cd := c.codec.Copy().(*codec.NegotiatingCodec)
	negotiation := p.ContentNegotiation
	if negotiation == message.NegotiationNone {
		negotiation = c.negotiation
	}
	if c.fastInfoset.Load() && negotiation == message.NegotiationPessimistic {
		p.ContentNegotiation = message.NegotiationOptimistic
	}

	var body bytes.Buffer
	ct, err := cd.Encode(p, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	payload := body.Bytes()
	compressed := c.config.Compress && compression.ShouldCompress(ct.String())
	if compressed {
		if payload, err = c.compressor.Compress(payload); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", ct.String())
	req.Header.Set("User-Agent", userAgent)
	if accept := ct.Accept(); accept != "" {
		req.Header.Set("Accept", accept)
	}
	if c.version == message.SOAP11 {
		req.Header.Set("SOAPAction", ct.SOAPAction())
	}
	if compressed {
		req.Header.Set("Content-Encoding", compression.ContentEncodingGzip)
	}
	req.Header.Set("Accept-Encoding", compression.ContentEncodingGzip)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusInternalServerError {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(msg))
	}

	in, err := responseBody(resp)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	out := message.NewPacket(nil)
	out.ContentNegotiation = p.ContentNegotiation
	if err := cd.Decode(in, resp.Header.Get("Content-Type"), out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	// the body is closed on return
	if err := out.Message.Buffer(); err != nil {
		return nil, fmt.Errorf("failed to read response attachments: %w", err)
	}
	if cd.FastInfosetNegotiated() && !c.fastInfoset.Swap(true) {
		c.logger.Info("peer switched to fast infoset", slog.String("endpoint", endpoint))
	}

	if resp.StatusCode == http.StatusInternalServerError {
		return out, &FaultError{Packet: out}
	}
	return out, nil
}

// FaultError is returned by Call when the peer answers with HTTP 500. The
// decoded fault is in Packet.
type FaultError struct {
	Packet *message.Packet
}

func (e *FaultError) Error() string {
	return "peer returned a SOAP fault"
}

func responseBody(resp *http.Response) (io.ReadCloser, error) {
	if compression.IsGzip(resp.Header.Get("Content-Encoding")) {
		return compression.NewReader(resp.Body)
	}
	return io.NopCloser(resp.Body), nil
}

// ServerTLSConfig returns the tls.Config a server listening with c uses.
func (c *HTTPSConfig) ServerTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:   c.MinTLSVersion,
		MaxVersion:   c.MaxTLSVersion,
		CipherSuites: c.CipherSuites,
		Certificates: c.Certificates,
		ClientCAs:    c.ClientCAs,
		ClientAuth:   c.ClientAuth,
	}
}

// ClientTLSConfig returns the tls.Config a client dialing with c uses.
func (c *HTTPSConfig) ClientTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:   c.MinTLSVersion,
		MaxVersion:   c.MaxTLSVersion,
		CipherSuites: c.CipherSuites,
		Certificates: c.Certificates,
		RootCAs:      c.RootCAs,
	}
}
