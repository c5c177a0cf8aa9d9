package runtime

import (
	"errors"
	"fmt"

	"github.com/kemeter/ring/internal/types"
)

// Kind classifies a reconciliation failure.
type Kind string

const (
	KindImageNotFound          Kind = "ImageNotFound"
	KindImagePullFailed        Kind = "ImagePullFailed"
	KindInstanceCreationFailed Kind = "InstanceCreationFailed"
	KindNetworkCreationFailed  Kind = "NetworkCreationFailed"
	KindConfigNotFound         Kind = "ConfigNotFound"
	KindConfigKeyNotFound      Kind = "ConfigKeyNotFound"
	KindFileSystemError        Kind = "FileSystemError"
	KindOther                  Kind = "Other"
)

// Error is a classified runtime failure. It wraps the underlying cause so
// callers can still use errors.Is / errors.As on it.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WrapError classifies an underlying error.
func WrapError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Classify extracts the Kind from an error chain; unclassified errors are
// KindOther.
func Classify(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindOther
}

// StatusFor maps a failure kind to the deployment status it forces.
func StatusFor(kind Kind) string {
	switch kind {
	case KindImageNotFound, KindImagePullFailed:
		return types.StatusImagePullBackOff
	case KindInstanceCreationFailed:
		return types.StatusCreateContainerError
	case KindNetworkCreationFailed:
		return types.StatusNetworkError
	case KindConfigNotFound, KindConfigKeyNotFound:
		return types.StatusConfigError
	case KindFileSystemError:
		return types.StatusFileSystemError
	default:
		return types.StatusError
	}
}

// ReasonFor maps a failure kind to the stable event reason recorded with it.
func ReasonFor(kind Kind) string {
	switch kind {
	case KindImageNotFound, KindImagePullFailed:
		return types.ReasonImagePullBackOff
	case KindInstanceCreationFailed:
		return types.ReasonInstanceCreationFailed
	case KindNetworkCreationFailed:
		return types.ReasonNetworkCreationFailed
	case KindConfigNotFound, KindConfigKeyNotFound:
		return types.ReasonConfigError
	case KindFileSystemError:
		return types.ReasonFileSystemError
	default:
		return types.ReasonRuntimeError
	}
}
