package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikistore/cosbackend/config"
	"github.com/wikistore/cosbackend/internal/signer"
)

type capturedRequest struct {
	method string
	path   string
	host   string
	header http.Header
	body   []byte
	length int64
}

func newTestCOSClient(t *testing.T, status int) (*COSClient, *capturedRequest) {
	t.Helper()

	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*captured = capturedRequest{
			method: r.Method,
			path:   r.URL.Path,
			host:   r.Host,
			header: r.Header.Clone(),
			body:   body,
			length: r.ContentLength,
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	sig, err := signer.New("AKID", "SECRET")
	require.NoError(t, err)
	sig.Now = func() time.Time { return time.Unix(1700000000, 0) }

	return &COSClient{
		signer:     sig,
		httpClient: srv.Client(),
		bucket:     "example",
		region:     "ap-guangzhou",
		host:       u.Host,
		scheme:     "http",
	}, captured
}

func TestUploadWithMetadataFromFile(t *testing.T) {
	client, got := newTestCOSClient(t, http.StatusOK)

	src := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello world\n"), 0o644))

	ok, err := client.UploadWithMetadata(context.Background(), FileSource(src), "thumb/note.txt", map[string]string{
		"sha1": "40g0z1tr7208oa50au6cb9s15umpl3l",
		"size": "12",
	})
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/thumb/note.txt", got.path)
	assert.Equal(t, "hello world\n", string(got.body))
	assert.Equal(t, int64(12), got.length)
	assert.Equal(t, "40g0z1tr7208oa50au6cb9s15umpl3l", got.header.Get("X-Cos-Meta-Sha1"))
	assert.Equal(t, "12", got.header.Get("X-Cos-Meta-Size"))
	assert.Contains(t, got.header.Get("Content-Type"), "text/plain")

	auth := got.header.Get("Authorization")
	assert.Contains(t, auth, "q-sign-algorithm=sha1&q-ak=AKID&")
	assert.Contains(t, auth, "&q-header-list=host;x-cos-meta-sha1;x-cos-meta-size&")
}

func TestUploadWithMetadataFromBytes(t *testing.T) {
	client, got := newTestCOSClient(t, http.StatusOK)

	data := []byte("\x89PNG\r\n\x1a\n0000")
	ok, err := client.UploadWithMetadata(context.Background(), BytesSource(data), "a.png", nil)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, "/a.png", got.path)
	assert.Equal(t, data, got.body)
	assert.Equal(t, int64(len(data)), got.length)
	assert.Equal(t, "image/png", got.header.Get("Content-Type"))
	assert.Contains(t, got.header.Get("Authorization"), "&q-header-list=host&")
}

func TestUploadWithMetadataRequiresExactly200(t *testing.T) {
	for _, status := range []int{http.StatusCreated, http.StatusNoContent, http.StatusForbidden} {
		client, _ := newTestCOSClient(t, status)
		ok, err := client.UploadWithMetadata(context.Background(), BytesSource([]byte("x")), "k", nil)
		require.NoError(t, err)
		assert.False(t, ok, "status %d", status)
	}
}

func TestUploadWithMetadataMissingFile(t *testing.T) {
	client, _ := newTestCOSClient(t, http.StatusOK)
	ok, err := client.UploadWithMetadata(context.Background(), FileSource(filepath.Join(t.TempDir(), "gone")), "k", nil)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNewCOSClientValidatesConfig(t *testing.T) {
	full := config.COSConfig{Region: "ap-guangzhou", SecretID: "AKID", SecretKey: "SECRET", Bucket: "example-1250000000"}

	cases := map[string]func(c *config.COSConfig){
		"region":     func(c *config.COSConfig) { c.Region = "" },
		"secret id":  func(c *config.COSConfig) { c.SecretID = "" },
		"secret key": func(c *config.COSConfig) { c.SecretKey = " " },
		"bucket":     func(c *config.COSConfig) { c.Bucket = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := full
			mutate(&cfg)
			_, err := NewCOSClient(cfg)
			assert.ErrorContains(t, err, name)
		})
	}

	client, err := NewCOSClient(full)
	require.NoError(t, err)
	assert.Equal(t, "example-1250000000.cos.ap-guangzhou.myqcloud.com", client.Host())
	assert.Equal(t, "example-1250000000", client.Bucket())
}

func TestCOSMetadata(t *testing.T) {
	header := http.Header{}
	header.Set("X-Cos-Meta-Sha1", "abc")
	header.Set("X-Cos-Meta-Size", "12")
	header.Set("Content-Length", "12")

	assert.Equal(t, map[string]string{"sha1": "abc", "size": "12"}, cosMetadata(header))
}

func TestFromMinio(t *testing.T) {
	err := fromMinio(minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist.", StatusCode: 404})
	assert.True(t, IsNoSuchKey(err))
	assert.Equal(t, "The specified key does not exist.", ErrorMessage(err))

	err = fromMinio(minio.ErrorResponse{StatusCode: 404})
	assert.True(t, IsNoSuchKey(err))

	err = fromMinio(minio.ErrorResponse{Code: "AccessDenied", Message: "denied", StatusCode: 403})
	assert.False(t, IsNoSuchKey(err))
	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, 403, svcErr.StatusCode)

	plain := errors.New("connection reset")
	assert.Equal(t, "connection reset", ErrorMessage(fromMinio(plain)))
	assert.ErrorIs(t, fromMinio(plain), plain)
	assert.NoError(t, fromMinio(nil))
}
