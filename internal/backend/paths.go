package backend

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
)

// StoragePathScheme prefixes every abstract storage path.
const StoragePathScheme = "mwstore://"

// PublicContainer is stored at the bucket root without a key prefix.
const PublicContainer = "public"

var (
	// ErrInvalidStoragePath is returned for paths outside the mwstore:// convention.
	ErrInvalidStoragePath = errors.New("invalid storage path")
	// ErrContainerName is returned when no short name can be extracted from a container.
	ErrContainerName = errors.New("failed to find container name")
)

var containerNamePattern = regexp.MustCompile(`^(?:\w*-)*(\w*)`)

// SplitStoragePath splits "mwstore://{backend}/{container}/{relative}".
// The relative part may be empty.
func SplitStoragePath(storagePath string) (backendName, container, rel string, err error) {
	if !strings.HasPrefix(storagePath, StoragePathScheme) {
		return "", "", "", fmt.Errorf("%w: %q", ErrInvalidStoragePath, storagePath)
	}
	parts := strings.SplitN(strings.TrimPrefix(storagePath, StoragePathScheme), "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("%w: %q", ErrInvalidStoragePath, storagePath)
	}
	if len(parts) == 3 {
		rel = parts[2]
		if rel != "" && (path.Clean(rel) != strings.TrimSuffix(rel, "/") || strings.HasPrefix(rel, "/")) {
			return "", "", "", fmt.Errorf("%w: %q", ErrInvalidStoragePath, storagePath)
		}
	}
	return parts[0], parts[1], rel, nil
}

// ContainerName returns the trailing word after the last dash-delimited
// group of a container identifier: "wiki-local-thumb" yields "thumb".
func ContainerName(container string) (string, error) {
	m := containerNamePattern.FindStringSubmatch(container)
	if m == nil || m[1] == "" {
		return "", fmt.Errorf("%w in %q", ErrContainerName, container)
	}
	return m[1], nil
}

// ObjectKey maps a container and a path relative to it onto a bucket key.
func ObjectKey(container, rel string) (string, error) {
	name, err := ContainerName(container)
	if err != nil {
		return "", err
	}
	return keyPrefix(name) + rel, nil
}

func keyPrefix(name string) string {
	if name == PublicContainer {
		return ""
	}
	return name + "/"
}
