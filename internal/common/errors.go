package common

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound            = errors.New("resource not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidState        = errors.New("invalid state transition")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrDatabase            = errors.New("database error")
	ErrValidation          = errors.New("validation failed")
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrExtractionFailed    = errors.New("extraction failed")
	ErrQueueClosed         = errors.New("queue is shutting down")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ToStatus maps an application error onto a gRPC status. Only the AppError
// message reaches the client; causes stay in the server log.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	msg := "internal error"
	var appErr *AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, msg)
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return status.Error(codes.InvalidArgument, msg)
	case errors.Is(err, ErrInvalidState):
		return status.Error(codes.FailedPrecondition, msg)
	case errors.Is(err, ErrUnauthorized):
		return status.Error(codes.Unauthenticated, msg)
	case errors.Is(err, ErrQueueClosed):
		return status.Error(codes.Unavailable, msg)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	default:
		return status.Error(codes.Internal, msg)
	}
}
