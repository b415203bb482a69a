package errs

import (
	stderrors "errors"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// CodeError is the wire-facing error shape: a stable numeric code, a short
// message, and an optional free-form detail. It marshals directly into
// sync:error frames and REST error bodies.
type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

// WithDetail returns a copy carrying extra detail; the receiver is shared
// between goroutines and must stay immutable.
func (e *CodeError) WithDetail(detail string) *CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: d}
}

// Wrap attaches a stack to the predefined error.
func (e *CodeError) Wrap() error {
	return errors.WithStack(e)
}

// WrapMsg clones the error with detail and attaches a stack.
func (e *CodeError) WrapMsg(detail string) error {
	return errors.WithStack(e.WithDetail(detail))
}

// Is makes errors.Is match on code rather than pointer identity.
func (e *CodeError) Is(target error) bool {
	var ce *CodeError
	if !stderrors.As(target, &ce) {
		return false
	}
	return e.Code == ce.Code
}

// AsCodeError unwraps err down to a *CodeError; a non-coded error maps to
// ErrInternal so callers always have a wire shape to emit.
func AsCodeError(err error) *CodeError {
	if err == nil {
		return nil
	}
	var ce *CodeError
	if stderrors.As(err, &ce) {
		return ce
	}
	return ErrInternal.WithDetail(err.Error())
}

func Wrap(err error) error {
	return errors.WithStack(err)
}

func WrapMsg(err error, msg string) error {
	return errors.Wrap(err, msg)
}

func New(msg string) error {
	return errors.New(msg)
}
