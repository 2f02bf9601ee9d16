package types

import "os"

// TimestampFormat is the host's 14-digit UTC timestamp layout.
const TimestampFormat = "20060102150405"

// FileStat describes a stored object.
type FileStat struct {
	Size     int64             `json:"size"`
	MTime    string            `json:"mtime"` // TimestampFormat
	SHA1     string            `json:"sha1,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// LocalCopy is the result of fetching one object to a temporary file.
// Path is empty when the copy is unavailable.
type LocalCopy struct {
	Source string `json:"source"`
	Path   string `json:"path,omitempty"`
	Size   int64  `json:"size"`
}

// Available reports whether the local copy was fetched intact.
func (c LocalCopy) Available() bool {
	return c.Path != ""
}

// Remove deletes the temporary file, if any.
func (c LocalCopy) Remove() error {
	if c.Path == "" {
		return nil
	}
	return os.Remove(c.Path)
}
