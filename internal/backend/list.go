package backend

import (
	"context"
	"strings"
)

// DirectoryExists reports whether at least one object lives under dir.
func (b *Backend) DirectoryExists(ctx context.Context, container, dir string) (bool, error) {
	prefix, err := dirPrefix(container, dir)
	if err != nil {
		return false, err
	}
	objects, err := b.store.ListObjects(ctx, prefix)
	if err != nil {
		return false, err
	}
	return len(objects) > 0, nil
}

// ListFiles returns the keys of every object under dir, relative to the
// container.
func (b *Backend) ListFiles(ctx context.Context, container, dir string) ([]string, error) {
	name, err := ContainerName(container)
	if err != nil {
		return nil, err
	}
	prefix, err := dirPrefix(container, dir)
	if err != nil {
		return nil, err
	}
	objects, err := b.store.ListObjects(ctx, prefix)
	if err != nil {
		return nil, err
	}

	root := keyPrefix(name)
	files := make([]string, 0, len(objects))
	for _, obj := range objects {
		files = append(files, strings.TrimPrefix(obj.Key, root))
	}
	return files, nil
}

// ListDirectories derives virtual directories from the file listing of dir.
// With topOnly set, only entries containing exactly one separator
// contribute, so "g/h/" is skipped while "e/" yields "e".
func (b *Backend) ListDirectories(ctx context.Context, container, dir string, topOnly bool) ([]string, error) {
	files, err := b.ListFiles(ctx, container, dir)
	if err != nil {
		return nil, err
	}
	return directoriesFromKeys(files, topOnly), nil
}

func directoriesFromKeys(files []string, topOnly bool) []string {
	dirs := []string{}
	seen := make(map[string]struct{})
	add := func(d string) {
		if _, ok := seen[d]; ok {
			return
		}
		seen[d] = struct{}{}
		dirs = append(dirs, d)
	}

	for _, file := range files {
		pos := strings.LastIndex(file, "/")
		if pos < 0 {
			continue
		}
		if topOnly && strings.Count(file, "/") != 1 {
			continue
		}
		add(file[:pos])
	}
	return dirs
}

// dirPrefix is the listing prefix of dir: its object key plus a trailing
// slash, so "a" does not match "ab.txt".
func dirPrefix(container, dir string) (string, error) {
	dir = strings.Trim(dir, "/")
	prefix, err := ObjectKey(container, dir)
	if err != nil {
		return "", err
	}
	if dir != "" {
		prefix += "/"
	}
	return prefix, nil
}
