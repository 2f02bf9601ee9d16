// Package backend maps the wiki's abstract file-backend operations onto a
// flat object store, emulating directories with key prefixes.
package backend

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wikistore/cosbackend/internal/storage"
	"github.com/wikistore/cosbackend/types"
)

// sha1Base36Len is the padded length of a base-36 SHA-1 digest.
const sha1Base36Len = 31

// FileBackend is the capability set the host file repository depends on.
type FileBackend interface {
	IsPathUsable(storagePath string) bool
	Create(ctx context.Context, params types.OpParams) types.Status
	Store(ctx context.Context, params types.OpParams) types.Status
	Copy(ctx context.Context, params types.OpParams) types.Status
	Delete(ctx context.Context, params types.OpParams) types.Status
	Stat(ctx context.Context, src string) (types.FileStat, bool)
	FileExists(ctx context.Context, src string) bool
	FetchLocalCopies(ctx context.Context, srcs []string) []types.LocalCopy
	DirectoryExists(ctx context.Context, container, dir string) (bool, error)
	// ListFiles returns the keys under dir relative to the container, with
	// the container's key prefix stripped.
	ListFiles(ctx context.Context, container, dir string) ([]string, error)
	ListDirectories(ctx context.Context, container, dir string, topOnly bool) ([]string, error)
	DirectoriesAreVirtual() bool
}

// PurgeScheduler hands URLs to the deferred CDN purge runner.
type PurgeScheduler interface {
	Schedule(ctx context.Context, urls []string) error
}

// Options configures a Backend.
type Options struct {
	// Name is the backend name in mwstore:// paths. Paths naming another
	// backend are rejected. Empty accepts any name.
	Name string
	// DomainID is prefixed to container names, as the host does.
	DomainID string
	// Viewpoint is the public base URL. Defaults to https://{store host}.
	Viewpoint string
	// UseCDN schedules a CDN purge after each successful delete.
	UseCDN bool
	// TmpDir receives local copies. Empty means os.TempDir.
	TmpDir string
}

// Backend implements FileBackend on top of an ObjectStore.
type Backend struct {
	store     storage.ObjectStore
	purger    PurgeScheduler
	log       zerolog.Logger
	name      string
	domainID  string
	endpoint  string
	viewpoint string
	useCDN    bool
	tmpDir    string
}

// New constructs a Backend. purger may be nil when CDN purge is disabled.
func New(store storage.ObjectStore, purger PurgeScheduler, log zerolog.Logger, opts Options) *Backend {
	endpoint := "https://" + store.Host()
	viewpoint := strings.TrimRight(opts.Viewpoint, "/")
	if viewpoint == "" {
		viewpoint = endpoint
	}
	return &Backend{
		store:     store,
		purger:    purger,
		log:       log.With().Str("component", "backend").Logger(),
		name:      opts.Name,
		domainID:  opts.DomainID,
		endpoint:  endpoint,
		viewpoint: viewpoint,
		useCDN:    opts.UseCDN && purger != nil,
		tmpDir:    opts.TmpDir,
	}
}

// IsPathUsable always succeeds: the object store creates prefixes on write.
func (b *Backend) IsPathUsable(string) bool {
	return true
}

// Create writes in-memory content to params.Dst.
func (b *Backend) Create(ctx context.Context, params types.OpParams) types.Status {
	params.Normalize()
	key, err := b.RemoteStoragePath(params.Dst)
	if err != nil {
		return types.Fatal(types.StatusInvalid, err.Error())
	}
	if err := b.store.PutObject(ctx, key, params.Content); err != nil {
		return types.Fatal(types.StatusRemote, storage.ErrorMessage(err))
	}
	return types.Good()
}

// Store uploads the local file params.Src to params.Dst with sha1 and size
// metadata attached.
func (b *Backend) Store(ctx context.Context, params types.OpParams) types.Status {
	params.Normalize()
	key, err := b.RemoteStoragePath(params.Dst)
	if err != nil {
		return types.Fatal(types.StatusInvalid, err.Error())
	}
	// Not atomic with the upload below; concurrent writers may race.
	if !params.Overwrite && b.FileExists(ctx, params.Dst) {
		return types.Fatal(types.StatusExists, "The target path already exists")
	}

	sum, size, err := fileSHA1Base36(params.Src)
	if err != nil {
		return types.Fatal(types.StatusLocal, fmt.Sprintf("Failed to read %s: %v", params.Src, err))
	}
	meta := map[string]string{
		"sha1": sum,
		"size": strconv.FormatInt(size, 10),
	}

	ok, err := b.store.UploadWithMetadata(ctx, storage.FileSource(params.Src), key, meta)
	if err != nil {
		return types.Fatal(types.StatusRemote, storage.ErrorMessage(err))
	}
	if !ok {
		return types.Fatal(types.StatusUpload, "Failed to upload "+params.Src)
	}
	return types.Good()
}

// Copy performs a server-side copy from params.Src to params.Dst.
func (b *Backend) Copy(ctx context.Context, params types.OpParams) types.Status {
	params.Normalize()
	srcKey, err := b.RemoteStoragePath(params.Src)
	if err != nil {
		return types.Fatal(types.StatusInvalid, err.Error())
	}
	dstKey, err := b.RemoteStoragePath(params.Dst)
	if err != nil {
		return types.Fatal(types.StatusInvalid, err.Error())
	}
	if err := b.store.CopyObject(ctx, srcKey, dstKey); err != nil {
		if params.IgnoreMissingSource {
			return types.Good()
		}
		return types.Fatal(types.StatusRemote, storage.ErrorMessage(err))
	}
	return types.Good()
}

// Delete removes params.Src and, with CDN enabled, schedules a purge of its
// public URL. The purge never affects the returned status.
func (b *Backend) Delete(ctx context.Context, params types.OpParams) types.Status {
	params.Normalize()
	key, err := b.RemoteStoragePath(params.Src)
	if err != nil {
		return types.Fatal(types.StatusInvalid, err.Error())
	}
	if err := b.store.DeleteObject(ctx, key); err != nil {
		if storage.IsNoSuchKey(err) && params.IgnoreMissingSource {
			return types.Good()
		}
		return types.Fatal(types.StatusRemote, storage.ErrorMessage(err))
	}

	if b.useCDN {
		url := b.viewpoint + "/" + key
		if err := b.purger.Schedule(context.WithoutCancel(ctx), []string{url}); err != nil {
			b.log.Warn().Err(err).Str("url", url).Msg("failed to schedule cdn purge")
		}
	}
	return types.Good()
}

// Stat returns size, mtime and custom metadata of src. The bool is false
// when the object cannot be stat'ed for any reason.
func (b *Backend) Stat(ctx context.Context, src string) (types.FileStat, bool) {
	key, err := b.RemoteStoragePath(src)
	if err != nil {
		return types.FileStat{}, false
	}

	start := time.Now()
	info, err := b.store.HeadObject(ctx, key)
	if err != nil {
		b.log.Debug().Err(err).Str("key", key).Msg("stat failed")
		return types.FileStat{}, false
	}
	b.log.Debug().Str("key", key).Dur("duration", time.Since(start)).Msg("stat done")

	stat := types.FileStat{
		Size:     info.Size,
		MTime:    info.LastModified.UTC().Format(types.TimestampFormat),
		Metadata: make(map[string]string, len(info.Metadata)),
	}
	for k, v := range info.Metadata {
		stat.Metadata[k] = v
	}
	if raw, ok := info.Metadata["size"]; ok {
		if size, err := strconv.ParseInt(raw, 10, 64); err == nil {
			stat.Size = size
		}
	}
	stat.SHA1 = info.Metadata["sha1"]
	return stat, true
}

// FileExists reports whether src can be stat'ed.
func (b *Backend) FileExists(ctx context.Context, src string) bool {
	_, ok := b.Stat(ctx, src)
	return ok
}

// DirectoriesAreVirtual is always true: directories exist only as key prefixes.
func (b *Backend) DirectoriesAreVirtual() bool {
	return true
}

// ResolveStoragePath splits storagePath into the host's full container
// identifier and the path relative to it.
func (b *Backend) ResolveStoragePath(storagePath string) (container, rel string, err error) {
	backendName, container, rel, err := SplitStoragePath(storagePath)
	if err != nil {
		return "", "", err
	}
	if b.name != "" && backendName != b.name {
		return "", "", fmt.Errorf("%w: backend %q is not %q", ErrInvalidStoragePath, backendName, b.name)
	}
	if b.domainID != "" {
		container = b.domainID + "-" + container
	}
	return container, rel, nil
}

// RemoteStoragePath converts an abstract storage path to a bucket key.
func (b *Backend) RemoteStoragePath(storagePath string) (string, error) {
	container, rel, err := b.ResolveStoragePath(storagePath)
	if err != nil {
		return "", err
	}
	return ObjectKey(container, rel)
}

// PublicURL returns the externally visible URL of storagePath.
func (b *Backend) PublicURL(storagePath string) (string, error) {
	key, err := b.RemoteStoragePath(storagePath)
	if err != nil {
		return "", err
	}
	return b.viewpoint + "/" + key, nil
}

// Endpoint returns the API endpoint URL.
func (b *Backend) Endpoint() string {
	return b.endpoint
}

// Viewpoint returns the public base URL.
func (b *Backend) Viewpoint() string {
	return b.viewpoint
}

// ThumbURL returns the public base URL of the thumb container.
func (b *Backend) ThumbURL() string {
	return b.viewpoint + "/thumb"
}

// fileSHA1Base36 returns the SHA-1 of a file in the host's base-36 form,
// along with its size.
func fileSHA1Base36(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha1.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return sha1Base36(h.Sum(nil)), size, nil
}

func sha1Base36(sum []byte) string {
	s := new(big.Int).SetBytes(sum).Text(36)
	if len(s) < sha1Base36Len {
		s = strings.Repeat("0", sha1Base36Len-len(s)) + s
	}
	return s
}

var _ FileBackend = (*Backend)(nil)
