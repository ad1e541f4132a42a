package mime

import (
	"bytes"
	"encoding/base64"
	"io"
	"strings"
	"testing"

	"github.com/sirosfoundation/go-mtom/pkg/contenttype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPart struct {
	cid      string
	ctype    string
	encoding string
	body     string
}

func buildBody(boundary string, parts ...testPart) string {
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString("--" + boundary + "\r\n")
		if p.cid != "" {
			sb.WriteString("Content-Id: <" + p.cid + ">\r\n")
		}
		sb.WriteString("Content-Type: " + p.ctype + "\r\n")
		if p.encoding != "" {
			sb.WriteString("Content-Transfer-Encoding: " + p.encoding + "\r\n")
		}
		sb.WriteString("\r\n")
		sb.WriteString(p.body)
		sb.WriteString("\r\n")
	}
	sb.WriteString("--" + boundary + "--")
	return sb.String()
}

// countingReader counts the bytes pulled from the underlying stream.
type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	c.n += n
	return n, err
}

const rootXML = `<S:Envelope xmlns:S="http://schemas.xmlsoap.org/soap/envelope/"><S:Body/></S:Envelope>`

func newTestParser(t *testing.T, header string, body string) (*Parser, *countingReader) {
	t.Helper()
	ct, err := contenttype.Parse(header)
	require.NoError(t, err)
	cr := &countingReader{r: strings.NewReader(body)}
	p, err := NewParser(cr, ct)
	require.NoError(t, err)
	return p, cr
}

func TestNewParser_MissingBoundary(t *testing.T) {
	tests := []string{
		`multipart/related`,
		`multipart/related; boundary=""`,
		`multipart/related; start="<root@x>"`,
	}

	for _, header := range tests {
		t.Run(header, func(t *testing.T) {
			ct, err := contenttype.Parse(header)
			require.NoError(t, err)

			_, err = NewParser(strings.NewReader("irrelevant"), ct)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissingBoundary)
			assert.ErrorIs(t, err, ErrFraming)
		})
	}
}

func TestParser_RootByStart(t *testing.T) {
	body := buildBody("b1",
		testPart{cid: "att1@x", ctype: "application/octet-stream", body: "0123456789"},
		testPart{cid: "root@x", ctype: "text/xml", body: rootXML},
	)
	p, _ := newTestParser(t, `multipart/related;boundary="b1";start="<root@x>"`, body)

	root, err := p.RootPart()
	require.NoError(t, err)
	assert.Equal(t, "root@x", root.ContentID())
	assert.Equal(t, "text/xml", root.ContentType())

	data, err := root.Bytes()
	require.NoError(t, err)
	assert.Equal(t, rootXML, string(data))

	again, err := p.RootPart()
	require.NoError(t, err)
	assert.Same(t, root, again)

	// the attachment read past on the way to the root was spooled
	att, err := p.AttachmentPart("att1@x")
	require.NoError(t, err)
	require.NotNil(t, att)
	attData, err := att.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(attData))
}

func TestParser_RootDefaultsToFirstPart(t *testing.T) {
	body := buildBody("b1",
		testPart{cid: "first@x", ctype: "text/xml", body: rootXML},
		testPart{cid: "second@x", ctype: "text/plain", body: "two"},
	)
	p, _ := newTestParser(t, `multipart/related; boundary=b1`, body)

	root, err := p.RootPart()
	require.NoError(t, err)
	assert.Equal(t, "first@x", root.ContentID())
}

func TestParser_RootNotFound(t *testing.T) {
	body := buildBody("b1", testPart{cid: "a@x", ctype: "text/xml", body: rootXML})
	p, _ := newTestParser(t, `multipart/related;boundary=b1;start="<missing@x>"`, body)

	_, err := p.RootPart()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFraming)
}

func TestParser_AttachmentParts(t *testing.T) {
	body := buildBody("b1",
		testPart{cid: "root@x", ctype: "text/xml", body: rootXML},
		testPart{cid: "a@x", ctype: "text/plain", body: "alpha"},
		testPart{cid: "b@x", ctype: "text/plain", body: "beta"},
	)
	p, _ := newTestParser(t, `multipart/related;boundary=b1;start="<root@x>"`, body)

	// fetch one individually first
	b, err := p.AttachmentPart("<b@x>")
	require.NoError(t, err)
	require.NotNil(t, b)

	all, err := p.AttachmentParts()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Same(t, b, all["b@x"])
	assert.NotContains(t, all, "root@x")

	list, err := p.Attachments()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b@x", list[0].ContentID())
	assert.Equal(t, "a@x", list[1].ContentID())

	missing, err := p.AttachmentPart("nope@x")
	require.NoError(t, err)
	assert.Nil(t, missing)

	src, err := p.Attachment("nope@x")
	require.NoError(t, err)
	assert.Nil(t, src)
}

func TestParser_NoRereadAfterLoad(t *testing.T) {
	body := buildBody("b1",
		testPart{cid: "root@x", ctype: "text/xml", body: rootXML},
		testPart{cid: "a@x", ctype: "text/plain", body: strings.Repeat("a", 1000)},
	)
	p, cr := newTestParser(t, `multipart/related;boundary=b1`, body)

	all, err := p.AttachmentParts()
	require.NoError(t, err)
	consumed := cr.n

	a, err := p.AttachmentPart("a@x")
	require.NoError(t, err)
	assert.Same(t, all["a@x"], a)

	data, err := a.Bytes()
	require.NoError(t, err)
	assert.Len(t, data, 1000)
	assert.Equal(t, consumed, cr.n)

	again, err := a.Bytes()
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestPart_WriteToStreamsWithoutCaching(t *testing.T) {
	payload := strings.Repeat("x", 20000)
	body := buildBody("b1",
		testPart{cid: "root@x", ctype: "text/xml", body: rootXML},
		testPart{cid: "big@x", ctype: "application/octet-stream", body: payload},
	)
	p, _ := newTestParser(t, `multipart/related;boundary=b1`, body)

	big, err := p.AttachmentPart("big@x")
	require.NoError(t, err)

	var out bytes.Buffer
	n, err := big.WriteTo(&out)
	require.NoError(t, err)
	assert.EqualValues(t, len(payload), n)
	assert.Equal(t, payload, out.String())
	assert.False(t, big.loaded)
	assert.Empty(t, big.raw.buf)

	// streamed once without retention
	_, err = big.Reader()
	assert.ErrorIs(t, err, ErrPartConsumed)
}

func TestPart_DataHandlerThenBytes(t *testing.T) {
	body := buildBody("b1",
		testPart{cid: "root@x", ctype: "text/xml", body: rootXML},
		testPart{cid: "img@x", ctype: "image/png", body: "PNGDATA"},
	)
	p, _ := newTestParser(t, `multipart/related;boundary=b1`, body)

	img, err := p.AttachmentPart("img@x")
	require.NoError(t, err)

	dh, err := img.DataHandler()
	require.NoError(t, err)
	assert.Equal(t, "image/png", dh.ContentType())

	rc, err := dh.Open()
	require.NoError(t, err)
	streamed, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "PNGDATA", string(streamed))

	data, err := img.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "PNGDATA", string(data))

	dh2, err := img.DataHandler()
	require.NoError(t, err)
	assert.Same(t, dh, dh2)
}

func TestPart_LiveReaderSurvivesSpool(t *testing.T) {
	body := buildBody("b1",
		testPart{cid: "root@x", ctype: "text/xml", body: rootXML},
		testPart{cid: "a@x", ctype: "text/plain", body: "alpha"},
	)
	p, _ := newTestParser(t, `multipart/related;boundary=b1`, body)

	root, err := p.RootPart()
	require.NoError(t, err)
	rc, err := root.Reader()
	require.NoError(t, err)

	head := make([]byte, 4)
	_, err = io.ReadFull(rc, head)
	require.NoError(t, err)

	// moves the stream past the root part
	_, err = p.AttachmentPart("a@x")
	require.NoError(t, err)

	rest, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, rootXML, string(head)+string(rest))
}

func TestPart_TransferEncodings(t *testing.T) {
	body := buildBody("b1",
		testPart{cid: "root@x", ctype: "text/xml", body: rootXML},
		testPart{cid: "b64@x", ctype: "application/octet-stream", encoding: "base64",
			body: base64.StdEncoding.EncodeToString([]byte("decoded bytes"))},
		testPart{cid: "qp@x", ctype: "text/plain", encoding: "quoted-printable", body: "caf=C3=A9"},
	)
	p, _ := newTestParser(t, `multipart/related;boundary=b1`, body)

	b64, err := p.AttachmentPart("b64@x")
	require.NoError(t, err)
	data, err := b64.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "decoded bytes", string(data))

	qp, err := p.AttachmentPart("qp@x")
	require.NoError(t, err)
	data, err = qp.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "café", string(data))
}

func TestPart_Headers(t *testing.T) {
	body := buildBody("b1",
		testPart{cid: "root@x", ctype: "text/xml", encoding: "binary", body: rootXML},
	)
	p, _ := newTestParser(t, `multipart/related;boundary=b1`, body)

	root, err := p.RootPart()
	require.NoError(t, err)

	headers := map[string]string{}
	for k, v := range root.Headers() {
		headers[k] = v
	}
	assert.Equal(t, "<root@x>", headers["Content-Id"])
	assert.Equal(t, "binary", headers["Content-Transfer-Encoding"])
	assert.Equal(t, "text/xml", root.Header("content-type"))
}

func TestWriterFraming(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBoundary(&buf, "b1"))
	require.NoError(t, WritePartHeaders(&buf, "root@x", "text/xml"))
	buf.WriteString(rootXML)
	require.NoError(t, WritePartEnd(&buf))
	require.NoError(t, WritePart(&buf, "b1", "<a@x>", "text/plain", strings.NewReader("alpha")))
	require.NoError(t, WriteClose(&buf, "b1"))

	expected := "--b1\r\n" +
		"Content-Id: <root@x>\r\n" +
		"Content-Type: text/xml\r\n" +
		"Content-Transfer-Encoding: binary\r\n\r\n" +
		rootXML + "\r\n" +
		"--b1\r\n" +
		"Content-Id: <a@x>\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Transfer-Encoding: binary\r\n\r\n" +
		"alpha\r\n" +
		"--b1--"
	assert.Equal(t, expected, buf.String())

	p, _ := newTestParser(t, `multipart/related;boundary=b1`, buf.String())
	all, err := p.AttachmentParts()
	require.NoError(t, err)
	require.Contains(t, all, "a@x")
	data, err := all["a@x"].Bytes()
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(data))
}

func TestContentIDHelpers(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"<id-123>", "id-123"},
		{"id-456", "id-456"},
		{"cid:<some@example.com>", "some@example.com"},
		{"cid:plain@example.com", "plain@example.com"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeContentID(tt.input))
		})
	}

	assert.Equal(t, "<id-123>", AddContentIDBrackets("id-123"))
	assert.Equal(t, "<id-456>", AddContentIDBrackets("<id-456>"))
	assert.True(t, strings.HasSuffix(NewContentID(), "@"+ContentIDDomain))
	assert.NotEqual(t, NewContentID(), NewContentID())
}
