package types

// StatusKind classifies a failed backend operation.
type StatusKind string

const (
	StatusOK StatusKind = ""
	// StatusRemote means the object store rejected the request.
	StatusRemote StatusKind = "remote"
	// StatusExists means the destination exists and overwrite was not requested.
	StatusExists StatusKind = "exists"
	// StatusUpload means the signed upload returned a non-200 response.
	StatusUpload StatusKind = "upload"
	// StatusLocal means a local file could not be read.
	StatusLocal StatusKind = "local"
	// StatusInvalid means the storage path could not be resolved.
	StatusInvalid StatusKind = "invalid"
)

// Status is the result of a write-type backend operation.
type Status struct {
	Kind    StatusKind `json:"kind,omitempty"`
	Message string     `json:"message,omitempty"`
}

// Good returns a successful status.
func Good() Status {
	return Status{}
}

// Fatal returns a failed status carrying a human-readable message.
func Fatal(kind StatusKind, message string) Status {
	return Status{Kind: kind, Message: message}
}

// OK reports whether the operation succeeded.
func (s Status) OK() bool {
	return s.Kind == StatusOK
}

// OpParams is the parameter bag passed to backend operations.
type OpParams struct {
	Src     string
	Dst     string
	Content []byte

	IgnoreMissingSource bool
	Overwrite           bool
	OverwriteSame       bool
	Headers             map[string]string
}

// Normalize defines every optional field so callers never see nil.
func (p *OpParams) Normalize() {
	if p.Headers == nil {
		p.Headers = map[string]string{}
	}
}
