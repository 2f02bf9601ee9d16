package backend

import (
	"context"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wikistore/cosbackend/internal/storage"
)

type fakeObject struct {
	data  []byte
	meta  map[string]string
	mtime time.Time
}

// fakeStore is an in-memory ObjectStore that records calls.
type fakeStore struct {
	mu       sync.Mutex
	objects  map[string]fakeObject
	calls    []string
	prefixes []string

	// failOn maps an operation name to the error it returns.
	failOn map[string]error
	// uploadStatusOK is the result of UploadWithMetadata.
	uploadStatusOK bool
	// lengthSkew is added to the reported content length per key.
	lengthSkew map[string]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:        make(map[string]fakeObject),
		failOn:         make(map[string]error),
		uploadStatusOK: true,
		lengthSkew:     make(map[string]int64),
	}
}

var fakeMTime = time.Date(2024, 3, 9, 16, 5, 7, 0, time.UTC)

func noSuchKey() error {
	return &storage.ServiceError{Code: storage.CodeNoSuchKey, Message: "The specified key does not exist.", StatusCode: 404}
}

func (f *fakeStore) record(op string) error {
	f.calls = append(f.calls, op)
	return f.failOn[op]
}

func (f *fakeStore) put(key string, data []byte, meta map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = fakeObject{data: data, meta: meta, mtime: fakeMTime}
}

func (f *fakeStore) called(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeStore) PutObject(_ context.Context, key string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("put"); err != nil {
		return err
	}
	f.objects[key] = fakeObject{data: append([]byte(nil), body...), meta: map[string]string{}, mtime: fakeMTime}
	return nil
}

func (f *fakeStore) GetObject(_ context.Context, key string, w io.Writer) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("get"); err != nil {
		return 0, err
	}
	obj, ok := f.objects[key]
	if !ok {
		return 0, noSuchKey()
	}
	if _, err := w.Write(obj.data); err != nil {
		return 0, err
	}
	return int64(len(obj.data)) + f.lengthSkew[key], nil
}

func (f *fakeStore) HeadObject(_ context.Context, key string) (storage.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("head"); err != nil {
		return storage.ObjectInfo{}, err
	}
	obj, ok := f.objects[key]
	if !ok {
		return storage.ObjectInfo{}, noSuchKey()
	}
	meta := make(map[string]string, len(obj.meta))
	for k, v := range obj.meta {
		meta[k] = v
	}
	return storage.ObjectInfo{Key: key, Size: int64(len(obj.data)), LastModified: obj.mtime, Metadata: meta}, nil
}

func (f *fakeStore) CopyObject(_ context.Context, srcKey, dstKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("copy"); err != nil {
		return err
	}
	obj, ok := f.objects[srcKey]
	if !ok {
		return noSuchKey()
	}
	f.objects[dstKey] = obj
	return nil
}

func (f *fakeStore) DeleteObject(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("delete"); err != nil {
		return err
	}
	if _, ok := f.objects[key]; !ok {
		return noSuchKey()
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) ListObjects(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("list"); err != nil {
		return nil, err
	}
	f.prefixes = append(f.prefixes, prefix)
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	objects := make([]storage.ObjectInfo, 0, len(keys))
	for _, k := range keys {
		objects = append(objects, storage.ObjectInfo{Key: k, Size: int64(len(f.objects[k].data))})
	}
	return objects, nil
}

func (f *fakeStore) UploadWithMetadata(_ context.Context, src storage.UploadSource, key string, meta map[string]string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("upload"); err != nil {
		return false, err
	}
	if !f.uploadStatusOK {
		return false, nil
	}
	data := src.Data
	if src.IsFile() {
		b, err := os.ReadFile(src.Path)
		if err != nil {
			return false, err
		}
		data = b
	}
	f.objects[key] = fakeObject{data: data, meta: meta, mtime: fakeMTime}
	return true, nil
}

func (f *fakeStore) Host() string {
	return "example-1250000000.cos.ap-guangzhou.myqcloud.com"
}

func (f *fakeStore) Bucket() string {
	return "example-1250000000"
}

// fakeScheduler records scheduled purge URLs.
type fakeScheduler struct {
	mu   sync.Mutex
	urls [][]string
	err  error
}

func (s *fakeScheduler) Schedule(_ context.Context, urls []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls = append(s.urls, urls)
	return s.err
}

func newTestBackend(store *fakeStore, scheduler PurgeScheduler, opts Options) *Backend {
	return New(store, scheduler, zerolog.Nop(), opts)
}
