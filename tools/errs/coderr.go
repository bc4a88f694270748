package errs

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// CodeError carries a stable numeric code alongside a message so callers can
// branch on failure class without string matching. Detail is free-form and
// appended as the error travels up.
type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) WithDetail(detail string) *CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: d}
}

// Wrap attaches a callsite stack to the code error.
func (e *CodeError) Wrap() error {
	return errors.WithStack(e)
}

// WrapMsg clones the code error with extra detail and a stack.
func (e *CodeError) WrapMsg(msg string) error {
	return errors.WithStack(e.WithDetail(msg))
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

// Is matches any CodeError with the same code, so errors.Is works across
// WithDetail/WrapMsg clones.
func (e *CodeError) Is(target error) bool {
	var ce *CodeError
	if !errors.As(target, &ce) {
		return false
	}
	return e.Code == ce.Code
}

// Wrap adds a stack to an arbitrary error (nil-safe).
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(err)
}

// WrapMsg annotates and adds a stack (nil-safe).
func WrapMsg(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}
