package attachment

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHandler struct {
	data  []byte
	opens int
}

func (h *countingHandler) ContentType() string { return "image/png" }

func (h *countingHandler) Open() (io.ReadCloser, error) {
	h.opens++
	return io.NopCloser(bytes.NewReader(h.data)), nil
}

type fakeSource struct {
	atts    map[string]Attachment
	order   []string
	lookups int
	loads   int
	loadErr error
}

func newFakeSource(atts ...Attachment) *fakeSource {
	src := &fakeSource{atts: map[string]Attachment{}}
	for _, a := range atts {
		src.atts[a.ContentID()] = a
		src.order = append(src.order, a.ContentID())
	}
	return src
}

func (s *fakeSource) Attachment(cid string) (Attachment, error) {
	s.lookups++
	a, ok := s.atts[cid]
	if !ok {
		return nil, nil
	}
	return a, nil
}

func (s *fakeSource) Attachments() ([]Attachment, error) {
	s.loads++
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	var out []Attachment
	for _, id := range s.order {
		out = append(out, s.atts[id])
	}
	return out, nil
}

func TestNewBytes(t *testing.T) {
	a := NewBytes("<a@x>", "", []byte("hello"))

	assert.Equal(t, "a@x", a.ContentID())
	assert.Equal(t, DefaultContentType, a.ContentType())

	data, err := a.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	var buf bytes.Buffer
	n, err := a.WriteTo(&buf)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
	assert.Equal(t, "hello", buf.String())

	headers := map[string]string{}
	for k, v := range a.Headers() {
		headers[k] = v
	}
	assert.Equal(t, "<a@x>", headers["Content-Id"])
}

func TestHandler_CachesBytes(t *testing.T) {
	h := &countingHandler{data: []byte("binary")}
	a := FromDataHandler("img@x", h)

	first, err := a.Bytes()
	require.NoError(t, err)
	second, err := a.Bytes()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, h.opens)

	dh, err := a.DataHandler()
	require.NoError(t, err)
	data, err := ReadAll(dh)
	require.NoError(t, err)
	assert.Equal(t, []byte("binary"), data)
	assert.Equal(t, 1, h.opens, "data handler view must reuse cached bytes")
}

func TestHandler_WriteToDoesNotBuffer(t *testing.T) {
	h := &countingHandler{data: []byte("stream me")}
	a := FromDataHandler("s@x", h)

	var buf bytes.Buffer
	_, err := a.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, "stream me", buf.String())
	assert.False(t, a.loaded)
}

func TestBytesHandler_HrefCID(t *testing.T) {
	h := NewBytesHandler([]byte{1, 2, 3}, "")
	assert.Equal(t, "", HrefCID(h))

	h.SetHrefCID("part@x")
	assert.Equal(t, "part@x", HrefCID(h))
	assert.Equal(t, 3, h.Len())
}

func TestSet_AddGet(t *testing.T) {
	s := NewSet()
	s.Add(NewBytes("a@x", "text/plain", []byte("a")))
	s.Add(NewBytes("b@x", "text/plain", []byte("b")))
	s.Add(NewBytes("a@x", "text/plain", []byte("A")))

	assert.Equal(t, 2, s.Len())

	a, err := s.Get("<a@x>")
	require.NoError(t, err)
	require.NotNil(t, a)
	data, _ := a.Bytes()
	assert.Equal(t, []byte("A"), data)

	missing, err := s.Get("nope@x")
	require.NoError(t, err)
	assert.Nil(t, missing)

	var ids []string
	for att := range s.All() {
		ids = append(ids, att.ContentID())
	}
	assert.Equal(t, []string{"a@x", "b@x"}, ids)
}

func TestLazySet(t *testing.T) {
	src := newFakeSource(
		NewBytes("one@x", "", []byte("1")),
		NewBytes("two@x", "", []byte("2")),
	)
	s := NewLazySet(src)

	a, err := s.Get("two@x")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, 1, src.lookups)
	assert.Equal(t, 0, src.loads)

	// cached after the first lookup
	_, err = s.Get("two@x")
	require.NoError(t, err)
	assert.Equal(t, 1, src.lookups)

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "two@x", list[0].ContentID())
	assert.Equal(t, "one@x", list[1].ContentID())

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 1, src.loads)

	missing, err := s.Get("three@x")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.Equal(t, 1, src.lookups, "a loaded set does not consult the source again")
}

func TestLazySet_LoadError(t *testing.T) {
	src := newFakeSource(NewBytes("one@x", "", []byte("1")))
	src.loadErr = errors.New("truncated multipart body")
	s := NewLazySet(src)

	assert.Equal(t, 0, s.Len())
	assert.ErrorIs(t, s.Err(), src.loadErr)

	_, err := s.List()
	assert.ErrorIs(t, err, src.loadErr)
	assert.Equal(t, 1, src.loads, "a failed load is not retried")
}

func TestSet_NoSource(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Load())
	assert.NoError(t, s.Err())
	assert.True(t, s.IsEmpty())
}
