package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-mtom/pkg/attachment"
	"github.com/sirosfoundation/go-mtom/pkg/codec"
	"github.com/sirosfoundation/go-mtom/pkg/compression"
	"github.com/sirosfoundation/go-mtom/pkg/message"
	"github.com/sirosfoundation/go-mtom/pkg/xmlstream"
)

func echoPacket(version message.SOAPVersion, text string) *message.Packet {
	payload := etree.NewElement("m:echo")
	payload.CreateAttr("xmlns:m", "urn:echo")
	payload.CreateElement("m:text").SetText(text)
	return message.NewPacket(message.NewEnvelope(version, payload))
}

func echoEndpoint() Endpoint {
	return EndpointFunc(func(_ context.Context, req *message.Packet) (*message.Packet, error) {
		return message.NewPacket(req.Message), nil
	})
}

func payloadText(t *testing.T, p *message.Packet) string {
	t.Helper()
	require.NotNil(t, p.Message)
	el := p.Message.Payload().FindElement("m:text")
	require.NotNil(t, el)
	return el.Text()
}

// recorder keeps the headers of the requests a handler saw.
type recorder struct {
	mu      sync.Mutex
	headers []http.Header
	next    http.Handler
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	r.headers = append(r.headers, req.Header.Clone())
	r.mu.Unlock()
	r.next.ServeHTTP(w, req)
}

func (r *recorder) last() http.Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.headers[len(r.headers)-1]
}

func newEchoServer(t *testing.T, config HandlerConfig, endpoint Endpoint) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{next: NewHandler(config, endpoint)}
	server := httptest.NewServer(rec)
	t.Cleanup(server.Close)
	return server, rec
}

func TestCall_SOAP11(t *testing.T) {
	var action string
	server, rec := newEchoServer(t, HandlerConfig{}, EndpointFunc(func(ctx context.Context, req *message.Packet) (*message.Packet, error) {
		action = req.SOAPAction
		return echoEndpoint().Serve(ctx, req)
	}))

	client := NewHTTPSClient(nil, codec.Config{Version: message.SOAP11})
	p := echoPacket(message.SOAP11, "hello")
	p.SOAPAction = "foo"

	resp, err := client.Call(context.Background(), server.URL, p)
	require.NoError(t, err)
	assert.Equal(t, "hello", payloadText(t, resp))

	h := rec.last()
	assert.Equal(t, `"foo"`, h.Get("SOAPAction"))
	assert.Equal(t, `"foo"`, action)
	assert.Equal(t, "text/xml; charset=utf-8", h.Get("Content-Type"))
	assert.Equal(t, "text/xml, multipart/related", h.Get("Accept"))
	assert.Equal(t, "go-mtom/1.0", h.Get("User-Agent"))
}

func TestCall_SOAP12Action(t *testing.T) {
	mtom := &message.MTOMFeature{Enabled: true}
	tests := []struct {
		name       string
		mtom       *message.MTOMFeature
		attachment bool
		wantType   string
	}{
		{"xml", nil, false, "application/soap+xml"},
		{"mtom", mtom, false, "multipart/related"},
		{"swa", nil, true, "multipart/related"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var action string
			cfg := codec.Config{Version: message.SOAP12, MTOM: tt.mtom}
			server, rec := newEchoServer(t, HandlerConfig{Codec: cfg}, EndpointFunc(func(ctx context.Context, req *message.Packet) (*message.Packet, error) {
				action = req.SOAPAction
				return echoEndpoint().Serve(ctx, req)
			}))

			client := NewHTTPSClient(nil, cfg)
			p := echoPacket(message.SOAP12, "hello")
			p.SOAPAction = "foo"
			if tt.attachment {
				p.Message.Attachments().Add(attachment.NewBytes("doc@example.com", "text/plain", []byte("doc")))
			}

			_, err := client.Call(context.Background(), server.URL, p)
			require.NoError(t, err)

			h := rec.last()
			assert.Empty(t, h.Values("SOAPAction"))
			assert.True(t, strings.HasPrefix(h.Get("Content-Type"), tt.wantType), h.Get("Content-Type"))
			assert.Equal(t, `"foo"`, action)
		})
	}
}

func TestCall_SOAP12WithoutAction(t *testing.T) {
	var action string
	cfg := codec.Config{Version: message.SOAP12}
	server, _ := newEchoServer(t, HandlerConfig{Codec: cfg}, EndpointFunc(func(ctx context.Context, req *message.Packet) (*message.Packet, error) {
		action = req.SOAPAction
		return echoEndpoint().Serve(ctx, req)
	}))

	req, err := http.NewRequest(http.MethodPost, server.URL, strings.NewReader(
		`<S:Envelope xmlns:S="`+message.NsSOAP12Env+`"><S:Body><m:echo xmlns:m="urn:echo"><m:text>x</m:text></m:echo></S:Body></S:Envelope>`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")
	req.Header.Set("SOAPAction", `"ignored"`)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `""`, action)
}

func TestCall_MTOM(t *testing.T) {
	mtom := &message.MTOMFeature{Enabled: true}
	server, rec := newEchoServer(t, HandlerConfig{Codec: codec.Config{MTOM: mtom}}, echoEndpoint())

	client := NewHTTPSClient(nil, codec.Config{MTOM: mtom})
	p := echoPacket(message.SOAP11, "binary")
	el := p.Message.Payload().CreateElement("m:data")
	image := bytes.Repeat([]byte{0xca, 0xfe}, 4096)
	p.Message.SetBinaryBytes(el, image, "image/png")

	resp, err := client.Call(context.Background(), server.URL, p)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rec.last().Get("Content-Type"), "multipart/related;"))

	require.NotNil(t, resp.MTOMRequest)
	got := resp.Message.Payload().FindElement("m:data")
	require.NotNil(t, got)
	h, ok := resp.Message.Binary(got)
	require.True(t, ok)
	data, err := attachment.ReadAll(h)
	require.NoError(t, err)
	assert.Equal(t, image, data)
	assert.Equal(t, "image/png", h.ContentType())
}

func TestCall_LargePartsOutliveResponse(t *testing.T) {
	mtom := &message.MTOMFeature{Enabled: true}
	server, _ := newEchoServer(t, HandlerConfig{Codec: codec.Config{MTOM: mtom}}, echoEndpoint())
	client := NewHTTPSClient(nil, codec.Config{MTOM: mtom})

	p := echoPacket(message.SOAP11, "large")
	first := bytes.Repeat([]byte{0xca, 0xfe}, 128*1024)
	second := bytes.Repeat([]byte{0xbe, 0xef}, 96*1024)
	p.Message.SetBinaryBytes(p.Message.Payload().CreateElement("m:first"), first, "image/png")
	p.Message.SetBinaryBytes(p.Message.Payload().CreateElement("m:second"), second, "image/png")

	resp, err := client.Call(context.Background(), server.URL, p)
	require.NoError(t, err)
	server.Close()

	// read in reverse order, after the response body is gone
	for _, tc := range []struct {
		path string
		want []byte
	}{{"m:second", second}, {"m:first", first}} {
		el := resp.Message.Payload().FindElement(tc.path)
		require.NotNil(t, el, tc.path)
		h, ok := resp.Message.Binary(el)
		require.True(t, ok, tc.path)
		data, err := attachment.ReadAll(h)
		require.NoError(t, err, tc.path)
		assert.Equal(t, tc.want, data, tc.path)
	}
	atts, err := resp.Message.Attachments().List()
	require.NoError(t, err)
	assert.Len(t, atts, 2)
}

func TestCall_SwA(t *testing.T) {
	server, _ := newEchoServer(t, HandlerConfig{}, echoEndpoint())
	client := NewHTTPSClient(nil, codec.Config{})

	p := echoPacket(message.SOAP11, "with attachment")
	p.Message.Attachments().Add(attachment.NewBytes("doc@example.com", "application/pdf", []byte("%PDF-1.7")))

	resp, err := client.Call(context.Background(), server.URL, p)
	require.NoError(t, err)
	a, err := resp.Message.Attachments().Get("doc@example.com")
	require.NoError(t, err)
	require.NotNil(t, a)
	data, err := a.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7"), data)
}

func TestCall_Gzip(t *testing.T) {
	server, rec := newEchoServer(t, HandlerConfig{Compress: true}, echoEndpoint())
	client := NewHTTPSClient(&HTTPSConfig{Compress: true}, codec.Config{})

	resp, err := client.Call(context.Background(), server.URL, echoPacket(message.SOAP11, strings.Repeat("zip ", 100)))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("zip ", 100), payloadText(t, resp))
	assert.Equal(t, "gzip", rec.last().Get("Content-Encoding"))
}

func TestCall_Fault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `<S:Envelope xmlns:S="`+message.NsSOAP11Env+`"><S:Body><S:Fault><faultcode>S:Server</faultcode></S:Fault></S:Body></S:Envelope>`)
	}))
	defer server.Close()

	client := NewHTTPSClient(nil, codec.Config{})
	resp, err := client.Call(context.Background(), server.URL, echoPacket(message.SOAP11, "x"))
	var fault *FaultError
	require.True(t, errors.As(err, &fault))
	assert.Same(t, resp, fault.Packet)
	assert.Equal(t, "Fault", resp.Message.Payload().Tag)
}

// fakeFastInfoset frames plain XML behind the Fast Infoset header.
type fakeFastInfoset struct{}

var fiMagic = []byte{0xe0, 0x00, 0x00, 0x01}

func (fakeFastInfoset) NewReader(r io.Reader) (xmlstream.Reader, error) {
	head := make([]byte, len(fiMagic))
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, err
	}
	if !bytes.Equal(head, fiMagic) {
		return nil, fmt.Errorf("not a fast infoset document")
	}
	return xmlstream.NewReader(r)
}

func (fakeFastInfoset) NewWriter(w io.Writer) (xmlstream.Writer, error) {
	if _, err := w.Write(fiMagic); err != nil {
		return nil, err
	}
	return xmlstream.NewWriter(w, "utf-8")
}

func TestCall_PessimisticFastInfosetUpgrade(t *testing.T) {
	cfg := codec.Config{FastInfoset: fakeFastInfoset{}, Negotiation: message.NegotiationPessimistic}
	server, rec := newEchoServer(t, HandlerConfig{Codec: cfg}, echoEndpoint())
	client := NewHTTPSClient(nil, cfg)

	resp, err := client.Call(context.Background(), server.URL, echoPacket(message.SOAP11, "first"))
	require.NoError(t, err)
	assert.Equal(t, "first", payloadText(t, resp))
	assert.Equal(t, "text/xml; charset=utf-8", rec.last().Get("Content-Type"))
	assert.Contains(t, rec.last().Get("Accept"), "application/fastinfoset")

	resp, err = client.Call(context.Background(), server.URL, echoPacket(message.SOAP11, "second"))
	require.NoError(t, err)
	assert.Equal(t, "second", payloadText(t, resp))
	assert.Equal(t, "application/fastinfoset", rec.last().Get("Content-Type"))
}

func TestHandler_Errors(t *testing.T) {
	failing := EndpointFunc(func(context.Context, *message.Packet) (*message.Packet, error) {
		return nil, errors.New("boom")
	})

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		endpoint    Endpoint
		status      int
	}{
		{"method", http.MethodGet, "text/xml", "", echoEndpoint(), http.StatusMethodNotAllowed},
		{"missing boundary", http.MethodPost, `multipart/related; type="application/xop+xml"`, "--x--", echoEndpoint(), http.StatusBadRequest},
		{"malformed content type", http.MethodPost, `text/xml; charset="utf-8`, "<a/>", echoEndpoint(), http.StatusBadRequest},
		{"unsupported charset", http.MethodPost, "text/xml; charset=x-bogus", "<a/>", echoEndpoint(), http.StatusUnsupportedMediaType},
		{"fast infoset not negotiated", http.MethodPost, "application/fastinfoset", "\xe0\x00\x00\x01<a/>", echoEndpoint(), http.StatusUnsupportedMediaType},
		{"malformed xml", http.MethodPost, "text/xml", "<a><b></a>", echoEndpoint(), http.StatusBadRequest},
		{"endpoint error", http.MethodPost, "text/xml", "<a/>", failing, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(HandlerConfig{}, tt.endpoint)
			req := httptest.NewRequest(tt.method, "/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestHandler_MirrorsRequestCharset(t *testing.T) {
	h := NewHandler(HandlerConfig{}, echoEndpoint())
	body := `<?xml version="1.0" encoding="iso-8859-1"?>` +
		`<S:Envelope xmlns:S="` + message.NsSOAP11Env + `"><S:Body><m:echo xmlns:m="urn:echo"><m:text>` + "\xe9t\xe9" + `</m:text></m:echo></S:Body></S:Envelope>`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/xml; charset=iso-8859-1")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/xml; charset=iso-8859-1", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "\xe9t\xe9")
}

func TestHandler_GzipBodyLimit(t *testing.T) {
	const limit = 64 << 10
	mtom := &message.MTOMFeature{Enabled: true}

	mtomBody := func() ([]byte, string) {
		p := echoPacket(message.SOAP11, "mtom")
		el := p.Message.Payload().CreateElement("m:data")
		p.Message.SetBinaryBytes(el, make([]byte, 4<<20), "application/octet-stream")
		var buf bytes.Buffer
		ct, err := codec.NewNegotiatingCodec(codec.Config{MTOM: mtom}).Encode(p, &buf)
		require.NoError(t, err)
		return buf.Bytes(), ct.String()
	}
	xmlBody := func(text string) ([]byte, string) {
		var buf bytes.Buffer
		ct, err := codec.NewNegotiatingCodec(codec.Config{}).Encode(echoPacket(message.SOAP11, text), &buf)
		require.NoError(t, err)
		return buf.Bytes(), ct.String()
	}
	buffering := EndpointFunc(func(_ context.Context, req *message.Packet) (*message.Packet, error) {
		if err := req.Message.Buffer(); err != nil {
			return nil, err
		}
		return message.NewPacket(req.Message), nil
	})

	tests := []struct {
		name     string
		body     func() ([]byte, string)
		codec    codec.Config
		endpoint Endpoint
		status   int
	}{
		{"small envelope", func() ([]byte, string) { return xmlBody("fits") }, codec.Config{}, echoEndpoint(), http.StatusOK},
		{"inflated envelope", func() ([]byte, string) { return xmlBody(strings.Repeat("A", 4<<20)) }, codec.Config{}, echoEndpoint(), http.StatusRequestEntityTooLarge},
		{"inflated attachment", mtomBody, codec.Config{MTOM: mtom}, buffering, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, ct := tt.body()
			compressed, err := compression.NewCompressor().Compress(raw)
			require.NoError(t, err)
			require.Less(t, len(compressed), limit)

			h := NewHandler(HandlerConfig{Codec: tt.codec, MaxRequestBytes: limit}, tt.endpoint)
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(compressed))
			req.Header.Set("Content-Type", ct)
			req.Header.Set("Content-Encoding", "gzip")
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestLimitedBody(t *testing.T) {
	l := &limitedBody{r: strings.NewReader("abcdef"), remaining: 6}
	data, err := io.ReadAll(l)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(data))

	l = &limitedBody{r: strings.NewReader("abcdefg"), remaining: 6}
	_, err = io.ReadAll(l)
	assert.ErrorIs(t, err, ErrRequestTooLarge)
	assert.True(t, l.exceeded)
}
