package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/wikistore/cosbackend/config"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const gcsHost = "storage.googleapis.com"

// GCSClient wraps the Google Cloud Storage SDK client and bucket name.
type GCSClient struct {
	client    *storage.Client
	bucket    string
	projectID string
}

// NewGCSClient constructs a GCS client from config.
func NewGCSClient(ctx context.Context, cfg config.GCSConfig) (*GCSClient, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("gcs bucket is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &GCSClient{
		client:    client,
		bucket:    cfg.Bucket,
		projectID: cfg.ProjectID,
	}, nil
}

// PutObject uploads in-memory content.
func (g *GCSClient) PutObject(ctx context.Context, key string, body []byte) error {
	return g.write(ctx, key, bytes.NewReader(body), mimetype.Detect(body).String(), nil)
}

// GetObject streams an object into w.
func (g *GCSClient) GetObject(ctx context.Context, key string, w io.Writer) (int64, error) {
	reader, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return 0, fromGCS(err)
	}
	defer reader.Close()

	size := reader.Attrs.Size
	if _, err := io.Copy(w, reader); err != nil {
		return size, fromGCS(err)
	}
	return size, nil
}

// HeadObject returns object attributes and custom metadata.
func (g *GCSClient) HeadObject(ctx context.Context, key string) (ObjectInfo, error) {
	attrs, err := g.client.Bucket(g.bucket).Object(key).Attrs(ctx)
	if err != nil {
		return ObjectInfo{}, fromGCS(err)
	}
	meta := make(map[string]string, len(attrs.Metadata))
	for k, v := range attrs.Metadata {
		meta[strings.ToLower(k)] = v
	}
	return ObjectInfo{
		Key:          attrs.Name,
		Size:         attrs.Size,
		LastModified: attrs.Updated,
		ContentType:  attrs.ContentType,
		Metadata:     meta,
	}, nil
}

// CopyObject performs a server-side copy within the bucket.
func (g *GCSClient) CopyObject(ctx context.Context, srcKey, dstKey string) error {
	bucket := g.client.Bucket(g.bucket)
	_, err := bucket.Object(dstKey).CopierFrom(bucket.Object(srcKey)).Run(ctx)
	return fromGCS(err)
}

// DeleteObject removes an object from the configured bucket.
func (g *GCSClient) DeleteObject(ctx context.Context, key string) error {
	return fromGCS(g.client.Bucket(g.bucket).Object(key).Delete(ctx))
}

// ListObjects returns every object under prefix.
func (g *GCSClient) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	var objects []ObjectInfo
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fromGCS(err)
		}
		objects = append(objects, ObjectInfo{
			Key:          attrs.Name,
			Size:         attrs.Size,
			LastModified: attrs.Updated,
			ContentType:  attrs.ContentType,
		})
	}
	return objects, nil
}

// UploadWithMetadata uploads src with metadata stored as object metadata.
func (g *GCSClient) UploadWithMetadata(ctx context.Context, src UploadSource, key string, meta map[string]string) (bool, error) {
	if !src.IsFile() {
		if err := g.write(ctx, key, bytes.NewReader(src.Data), mimetype.Detect(src.Data).String(), meta); err != nil {
			return false, err
		}
		return true, nil
	}

	f, err := os.Open(src.Path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return false, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return false, err
	}
	if err := g.write(ctx, key, f, mt.String(), meta); err != nil {
		return false, err
	}
	return true, nil
}

// write streams r to key. A failed read cancels the upload: closing the
// writer would commit the partial object with the full file's metadata.
func (g *GCSClient) write(ctx context.Context, key string, r io.Reader, contentType string, meta map[string]string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writer := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	if strings.TrimSpace(contentType) != "" {
		writer.ContentType = contentType
	}
	if len(meta) > 0 {
		writer.Metadata = meta
	}
	if _, err := io.Copy(writer, r); err != nil {
		cancel()
		_ = writer.Close()
		return fromGCS(err)
	}
	return fromGCS(writer.Close())
}

// Client exposes the underlying GCS SDK client.
func (g *GCSClient) Client() *storage.Client {
	return g.client
}

// Host returns the GCS API host.
func (g *GCSClient) Host() string {
	return gcsHost
}

// Bucket returns the configured bucket name.
func (g *GCSClient) Bucket() string {
	return g.bucket
}

// ProjectID returns the configured project ID.
func (g *GCSClient) ProjectID() string {
	return g.projectID
}

var _ ObjectStore = (*GCSClient)(nil)
