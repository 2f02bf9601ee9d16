package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wikistore/cosbackend/config"
	"github.com/wikistore/cosbackend/internal/signer"
)

const cosMetaPrefix = "x-cos-meta-"

// COSClient wraps the MinIO SDK pointed at Tencent COS, plus a signed PUT
// path for uploads carrying custom metadata headers.
type COSClient struct {
	client     *minio.Client
	signer     *signer.Signer
	httpClient *http.Client
	bucket     string
	region     string
	host       string
	scheme     string
}

// NewCOSClient constructs a COS client from config.
func NewCOSClient(cfg config.COSConfig) (*COSClient, error) {
	if strings.TrimSpace(cfg.Region) == "" {
		return nil, errors.New("cos region is required")
	}
	if strings.TrimSpace(cfg.SecretID) == "" {
		return nil, errors.New("cos secret id is required")
	}
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("cos secret key is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("cos bucket is required")
	}

	sig, err := signer.New(cfg.SecretID, cfg.SecretKey)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(COSEndpoint(cfg.Region), &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.SecretID, cfg.SecretKey, ""),
		Secure:       true,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupDNS,
	})
	if err != nil {
		return nil, err
	}

	return &COSClient{
		client:     client,
		signer:     sig,
		httpClient: http.DefaultClient,
		bucket:     cfg.Bucket,
		region:     cfg.Region,
		host:       BucketHost(cfg.Bucket, cfg.Region),
		scheme:     "https",
	}, nil
}

// COSEndpoint returns the regional S3-compatible endpoint.
func COSEndpoint(region string) string {
	return fmt.Sprintf("cos.%s.myqcloud.com", region)
}

// BucketHost returns the virtual-hosted bucket address.
func BucketHost(bucket, region string) string {
	return fmt.Sprintf("%s.cos.%s.myqcloud.com", bucket, region)
}

// PutObject uploads in-memory content without custom metadata.
func (c *COSClient) PutObject(ctx context.Context, key string, body []byte) error {
	_, err := c.client.PutObject(ctx, c.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: mimetype.Detect(body).String(),
	})
	return fromMinio(err)
}

// GetObject streams an object into w.
func (c *COSClient) GetObject(ctx context.Context, key string, w io.Writer) (int64, error) {
	obj, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return 0, fromMinio(err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return 0, fromMinio(err)
	}
	if _, err := io.Copy(w, obj); err != nil {
		return info.Size, fromMinio(err)
	}
	return info.Size, nil
}

// HeadObject returns size, modification time and custom metadata.
func (c *COSClient) HeadObject(ctx context.Context, key string) (ObjectInfo, error) {
	info, err := c.client.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, fromMinio(err)
	}
	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		LastModified: info.LastModified,
		ContentType:  info.ContentType,
		Metadata:     cosMetadata(info.Metadata),
	}, nil
}

// CopyObject performs a server-side copy within the bucket.
func (c *COSClient) CopyObject(ctx context.Context, srcKey, dstKey string) error {
	_, err := c.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: c.bucket, Object: dstKey},
		minio.CopySrcOptions{Bucket: c.bucket, Object: srcKey},
	)
	return fromMinio(err)
}

// DeleteObject removes an object. COS answers 204 for absent keys, so the
// key is probed first to surface NoSuchKey.
func (c *COSClient) DeleteObject(ctx context.Context, key string) error {
	if _, err := c.client.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{}); err != nil {
		return fromMinio(err)
	}
	return fromMinio(c.client.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}))
}

// ListObjects returns every object under prefix.
func (c *COSClient) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	for obj := range c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fromMinio(obj.Err)
		}
		objects = append(objects, ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}
	return objects, nil
}

// UploadWithMetadata PUTs src to key with one x-cos-meta-* header per
// metadata entry. The SDK upload path cannot carry these headers.
func (c *COSClient) UploadWithMetadata(ctx context.Context, src UploadSource, key string, meta map[string]string) (bool, error) {
	var (
		body        io.Reader
		size        int64
		contentType string
	)
	if src.IsFile() {
		f, err := os.Open(src.Path)
		if err != nil {
			return false, err
		}
		defer f.Close()

		stat, err := f.Stat()
		if err != nil {
			return false, err
		}
		mt, err := mimetype.DetectReader(f)
		if err != nil {
			return false, err
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return false, err
		}
		body, size, contentType = f, stat.Size(), mt.String()
	} else {
		body, size, contentType = bytes.NewReader(src.Data), int64(len(src.Data)), mimetype.Detect(src.Data).String()
	}

	path := "/" + strings.TrimPrefix(key, "/")
	headers := make(map[string]string, len(meta)+1)
	for k, v := range meta {
		headers[cosMetaPrefix+k] = v
	}
	headers["host"] = c.host
	authorization := c.signer.Sign(http.MethodPut, path, headers)

	target := url.URL{Scheme: c.scheme, Host: c.host, Path: path}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target.String(), body)
	if err != nil {
		return false, err
	}
	for k, v := range headers {
		if k == "host" {
			continue
		}
		req.Header.Set(k, v)
	}
	req.Host = c.host
	req.ContentLength = size
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Content-Length", strconv.FormatInt(size, 10))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK, nil
}

// Client exposes the underlying MinIO SDK client.
func (c *COSClient) Client() *minio.Client {
	return c.client
}

// Host returns the bucket's API host.
func (c *COSClient) Host() string {
	return c.host
}

// Bucket returns the configured bucket name.
func (c *COSClient) Bucket() string {
	return c.bucket
}

// Region returns the configured region.
func (c *COSClient) Region() string {
	return c.region
}

func cosMetadata(header http.Header) map[string]string {
	meta := make(map[string]string)
	for name, values := range header {
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, cosMetaPrefix) || len(values) == 0 {
			continue
		}
		meta[strings.TrimPrefix(lower, cosMetaPrefix)] = values[0]
	}
	return meta
}

var _ ObjectStore = (*COSClient)(nil)
