package upload

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrConfiguration         = errors.New("configuration error")
	ErrCredentialUnavailable = errors.New("credential unavailable")
	ErrTransferFailed        = errors.New("transfer failed")
	ErrOracleUnavailable     = errors.New("oracle unavailable")
	ErrNoRequest             = errors.New("no upload selected")
	ErrUploadInProgress      = errors.New("upload already in progress")
	ErrCancelled             = errors.New("upload cancelled")
	ErrPollCancelled         = errors.New("poll cancelled")
)

// Error is a classified upload failure. Message is safe to show to users; Cause is for logs.
type Error struct {
	Kind       error
	Message    string
	StatusCode int
	Cause      error
}

func newError(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// NewConfigurationError reports a missing or invalid endpoint or setting.
func NewConfigurationError(message string, cause error) *Error {
	return newError(ErrConfiguration, message, cause)
}

// NewCredentialError reports that no usable write credential was issued.
func NewCredentialError(message string, cause error) *Error {
	return newError(ErrCredentialUnavailable, message, cause)
}

// NewTransferError reports a failed object PUT. statusCode is 0 for transport failures.
func NewTransferError(statusCode int, cause error) *Error {
	msg := "Upload failed: storage could not be reached"
	if statusCode != 0 {
		msg = fmt.Sprintf("S3 upload failed with status: %d", statusCode)
	}
	return &Error{Kind: ErrTransferFailed, Message: msg, StatusCode: statusCode, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches the error kind so callers can test errors.Is(err, ErrTransferFailed).
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

// UserMessage returns the text to display for err.
func UserMessage(err error) string {
	var uerr *Error
	if errors.As(err, &uerr) && uerr.Message != "" {
		return uerr.Message
	}
	if err == nil {
		return ""
	}
	return "Upload error!"
}
