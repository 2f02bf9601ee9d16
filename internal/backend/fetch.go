package backend

import (
	"context"
	"os"
	"path"
	"strings"

	"github.com/wikistore/cosbackend/types"
)

// FetchLocalCopies downloads each source into its own temporary file.
// Sources are processed in order and independently: a failed or truncated
// download only marks that entry unavailable.
func (b *Backend) FetchLocalCopies(ctx context.Context, srcs []string) []types.LocalCopy {
	copies := make([]types.LocalCopy, 0, len(srcs))
	for _, src := range srcs {
		copies = append(copies, b.fetchLocalCopy(ctx, src))
	}
	return copies
}

func (b *Backend) fetchLocalCopy(ctx context.Context, src string) types.LocalCopy {
	unavailable := types.LocalCopy{Source: src}

	key, err := b.RemoteStoragePath(src)
	if err != nil {
		b.log.Debug().Err(err).Str("src", src).Msg("cannot resolve local copy source")
		return unavailable
	}

	tmp, err := os.CreateTemp(b.tmpDir, "localcopy_*"+extensionSuffix(src))
	if err != nil {
		b.log.Warn().Err(err).Str("src", src).Msg("cannot create temporary file")
		return unavailable
	}
	discard := func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}

	contentLength, err := b.store.GetObject(ctx, key, tmp)
	if err != nil {
		b.log.Debug().Err(err).Str("key", key).Msg("download failed")
		discard()
		return unavailable
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return unavailable
	}

	// Double check that the disk is not full or broken.
	info, err := os.Stat(tmp.Name())
	if err != nil || info.Size() != contentLength {
		var got int64
		if info != nil {
			got = info.Size()
		}
		b.log.Debug().Str("src", src).Int64("got", got).Int64("want", contentLength).Msg("local copy size mismatch")
		_ = os.Remove(tmp.Name())
		return unavailable
	}

	return types.LocalCopy{Source: src, Path: tmp.Name(), Size: info.Size()}
}

// extensionSuffix returns ".ext" for the lower-cased extension of p, or "".
func extensionSuffix(p string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(path.Base(p)), "."))
	if ext == "" {
		return ""
	}
	return "." + ext
}
