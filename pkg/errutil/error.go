package errutil

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

type Detail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// BaseError is the error type returned by every service. Reason is a stable
// machine-readable identifier; two BaseErrors with the same non-empty Reason
// match under errors.Is.
type BaseError struct {
	Code    CoreStatus `json:"code"`
	Reason  string     `json:"reason,omitempty"`
	Message string     `json:"message"`
	Details []Detail   `json:"details,omitempty"`
	Err     error      `json:"-"`
}

func (e BaseError) Status() CoreStatus {
	return e.Code
}

func (e BaseError) URL() string {
	values := url.Values{}

	values.Set("error_code", string(e.Code))
	values.Set("error_message", e.Message)

	for _, d := range e.Details {
		values.Set("details["+strings.TrimSpace(d.Field)+"]", d.Message)
	}

	return values.Encode()
}

func (e BaseError) JSON() interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"code":    e.Code,
			"reason":  e.Reason,
			"message": e.Message,
			"details": e.Details,
		},
	}
}

func (e BaseError) Unwrap() error {
	return e.Err
}

func (e BaseError) Is(target error) bool {
	var t BaseError
	if !errors.As(target, &t) {
		return false
	}
	if t.Reason == "" {
		return t.Code == e.Code && t.Message == e.Message
	}
	return t.Reason == e.Reason
}

func (e BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.messageWithErr())
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e BaseError) messageWithErr() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

type Option func(*BaseError)

func WithDetails(details ...Detail) Option {
	return func(be *BaseError) { be.Details = details }
}

func WithErr(err error) Option {
	return func(be *BaseError) { be.Err = err }
}

func WithReason(reason string) Option {
	return func(be *BaseError) { be.Reason = reason }
}

func New(code CoreStatus, message string, opts ...Option) error {
	be := BaseError{Code: code, Message: message}
	for _, opt := range opts {
		opt(&be)
	}
	return be
}

func newWithErr(code CoreStatus, msg string, err error, options ...Option) error {
	if err != nil {
		options = append([]Option{WithErr(err)}, options...)
	}
	return New(code, msg, options...)
}

// Wrap returns a copy of a sentinel BaseError carrying err as its cause.
func Wrap(sentinel error, err error) error {
	var be BaseError
	if !errors.As(sentinel, &be) {
		return fmt.Errorf("%w: %v", sentinel, err)
	}
	be.Err = err
	return be
}

// WithMessage returns a copy of a sentinel BaseError with a more specific message.
func WithMessage(sentinel error, msg string) error {
	var be BaseError
	if !errors.As(sentinel, &be) {
		return fmt.Errorf("%w: %s", sentinel, msg)
	}
	be.Message = msg
	return be
}

// From converts any error into a BaseError, defaulting to an internal error.
func From(err error) BaseError {
	var be BaseError
	if errors.As(err, &be) {
		return be
	}
	return BaseError{Code: StatusInternal, Message: "internal server error", Err: err}
}

func NotFound(msg string, err error, options ...Option) error {
	return newWithErr(StatusNotFound, msg, err, options...)
}

func UnprocessableEntity(msg string, err error, options ...Option) error {
	return newWithErr(StatusUnprocessableEntity, msg, err, options...)
}

func UnsupportedMediaType(msg string, err error, options ...Option) error {
	return newWithErr(StatusUnsupportedMediaType, msg, err, options...)
}

func Conflict(msg string, err error, options ...Option) error {
	return newWithErr(StatusConflict, msg, err, options...)
}

func BadRequest(msg string, err error, options ...Option) error {
	return newWithErr(StatusBadRequest, msg, err, options...)
}

func ValidationFailed(msg string, err error, options ...Option) error {
	return newWithErr(StatusValidationFailed, msg, err, options...)
}

func Internal(msg string, err error, options ...Option) error {
	return newWithErr(StatusInternal, msg, err, options...)
}

func Timeout(msg string, err error, options ...Option) error {
	return newWithErr(StatusTimeout, msg, err, options...)
}

func Unauthorized(msg string, err error, options ...Option) error {
	return newWithErr(StatusUnauthorized, msg, err, options...)
}

func Forbidden(msg string, err error, options ...Option) error {
	return newWithErr(StatusForbidden, msg, err, options...)
}

func TooManyRequest(msg string, err error, options ...Option) error {
	return newWithErr(StatusTooManyRequests, msg, err, options...)
}

func ServiceUnavailable(msg string, err error, options ...Option) error {
	return newWithErr(StatusServiceUnavailable, msg, err, options...)
}
