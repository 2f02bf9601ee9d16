package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
	// Metadata holds custom per-object fields with lower-cased keys.
	Metadata map[string]string
}

// UploadSource is the body of an upload: a file on disk or an in-memory buffer.
type UploadSource struct {
	Path string
	Data []byte
}

// FileSource returns an UploadSource streaming the file at path.
func FileSource(path string) UploadSource {
	return UploadSource{Path: path}
}

// BytesSource returns an UploadSource for an in-memory buffer.
func BytesSource(data []byte) UploadSource {
	return UploadSource{Data: data}
}

// IsFile reports whether the source is a filesystem path.
func (s UploadSource) IsFile() bool {
	return s.Path != ""
}

// ObjectStore defines the object operations the file backend relies on.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body []byte) error
	// GetObject streams the object into w and returns the content length
	// reported by the provider.
	GetObject(ctx context.Context, key string, w io.Writer) (int64, error)
	HeadObject(ctx context.Context, key string) (ObjectInfo, error)
	CopyObject(ctx context.Context, srcKey, dstKey string) error
	DeleteObject(ctx context.Context, key string) error
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// UploadWithMetadata uploads src to key with custom metadata attached.
	// It returns false when the provider answered with anything but 200.
	UploadWithMetadata(ctx context.Context, src UploadSource, key string, meta map[string]string) (bool, error)
	// Host returns the API host the bucket is served from.
	Host() string
	Bucket() string
}
