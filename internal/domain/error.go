package domain

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable class of a pipeline failure.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindInvalidType       Kind = "invalid_type"
	KindUnsupportedFormat Kind = "unsupported_format"
	KindTooLarge          Kind = "too_large"
	KindPermissionDenied  Kind = "permission_denied"
	KindInvalidArgument   Kind = "invalid_argument"

	KindModelLoad     Kind = "model_load"
	KindTranscription Kind = "transcription"

	KindServerUnavailable Kind = "server_unavailable"
	KindTimeout           Kind = "timeout"
	KindConnection        Kind = "connection"

	KindServerError   Kind = "server_error"
	KindModelNotFound Kind = "model_not_found"
	KindModelCrashed  Kind = "model_crashed"
	KindBackend       Kind = "backend_error"

	KindAllChunksFailed Kind = "all_chunks_failed"

	KindJobNotFound Kind = "job_not_found"
	KindInternal    Kind = "internal"
)

// Category groups kinds the way callers present remediation advice.
type Category string

const (
	CategoryInputValidation Category = "input_validation"
	CategoryConnectivity    Category = "connectivity"
	CategoryBackend         Category = "backend"
	CategoryTotalFailure    Category = "total_failure"
	CategoryInternal        Category = "internal"
)

// Error carries a kind next to the human message. The message is what
// surfaces verbatim as a job's error string.
type Error struct {
	Kind    Kind
	Message string
	// Status is the HTTP status reported by a backend, when there was one.
	Status int
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors by kind, so errors.Is(err, ErrTimeout) holds
// for any timeout regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Errorf builds an Error of the given kind.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around a cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidType       = &Error{Kind: KindInvalidType}
	ErrUnsupportedFormat = &Error{Kind: KindUnsupportedFormat}
	ErrTooLarge          = &Error{Kind: KindTooLarge}
	ErrPermissionDenied  = &Error{Kind: KindPermissionDenied}
	ErrInvalidArgument   = &Error{Kind: KindInvalidArgument}
	ErrModelLoad         = &Error{Kind: KindModelLoad}
	ErrTranscription     = &Error{Kind: KindTranscription}
	ErrServerUnavailable = &Error{Kind: KindServerUnavailable}
	ErrTimeout           = &Error{Kind: KindTimeout}
	ErrConnection        = &Error{Kind: KindConnection}
	ErrServerError       = &Error{Kind: KindServerError}
	ErrModelNotFound     = &Error{Kind: KindModelNotFound}
	ErrModelCrashed      = &Error{Kind: KindModelCrashed}
	ErrBackend           = &Error{Kind: KindBackend}
	ErrAllChunksFailed   = &Error{Kind: KindAllChunksFailed}
	ErrJobNotFound       = &Error{Kind: KindJobNotFound}
)

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// CategoryOf maps a kind to its category.
func CategoryOf(k Kind) Category {
	switch k {
	case KindNotFound, KindInvalidType, KindUnsupportedFormat, KindTooLarge,
		KindPermissionDenied, KindInvalidArgument, KindJobNotFound:
		return CategoryInputValidation
	case KindServerUnavailable, KindTimeout, KindConnection:
		return CategoryConnectivity
	case KindServerError, KindModelNotFound, KindModelCrashed, KindBackend,
		KindModelLoad, KindTranscription:
		return CategoryBackend
	case KindAllChunksFailed:
		return CategoryTotalFailure
	default:
		return CategoryInternal
	}
}
