package storage

import (
	"errors"
	"fmt"
	"net/http"

	gcs "cloud.google.com/go/storage"
	"github.com/minio/minio-go/v7"
	"google.golang.org/api/googleapi"
)

// CodeNoSuchKey is the provider code for a missing object.
const CodeNoSuchKey = "NoSuchKey"

// ServiceError is a request rejected by the object store.
type ServiceError struct {
	Code       string
	Message    string
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// IsNoSuchKey reports whether err is a missing-object error.
func IsNoSuchKey(err error) bool {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Code == CodeNoSuchKey
	}
	return false
}

// ErrorMessage returns the provider message of err, falling back to err.Error().
func ErrorMessage(err error) string {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.Message != "" {
		return svcErr.Message
	}
	return err.Error()
}

func fromMinio(err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	if resp.Code == "" && resp.StatusCode == 0 {
		return &ServiceError{Message: err.Error(), Err: err}
	}
	code := resp.Code
	if code == "" && resp.StatusCode == http.StatusNotFound {
		code = CodeNoSuchKey
	}
	message := resp.Message
	if message == "" {
		message = err.Error()
	}
	return &ServiceError{
		Code:       code,
		Message:    message,
		StatusCode: resp.StatusCode,
		Err:        err,
	}
}

func fromGCS(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return &ServiceError{
			Code:       CodeNoSuchKey,
			Message:    "The specified key does not exist.",
			StatusCode: http.StatusNotFound,
			Err:        err,
		}
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		code := http.StatusText(apiErr.Code)
		if apiErr.Code == http.StatusNotFound {
			code = CodeNoSuchKey
		}
		return &ServiceError{
			Code:       code,
			Message:    apiErr.Message,
			StatusCode: apiErr.Code,
			Err:        err,
		}
	}
	return &ServiceError{Message: err.Error(), Err: err}
}
