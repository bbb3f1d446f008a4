package errors

import (
	stderrors "errors"
	"fmt"
)

// fundamental is an error with a message and a stack, but no cause.
type fundamental struct {
	msg string
	*stack
}

func (f *fundamental) Error() string { return f.msg }

type withStack struct {
	error
	*stack
}

func (w *withStack) Unwrap() error { return w.error }

type withMessage struct {
	cause error
	msg   string
}

func (w *withMessage) Error() string { return w.msg + ": " + w.cause.Error() }
func (w *withMessage) Unwrap() error { return w.cause }

// New returns an error with the supplied message and a stack captured
// at the call site.
func New(message string) error {
	return &fundamental{
		msg:   message,
		stack: callers(),
	}
}

// Errorf formats an error with a captured stack.
func Errorf(format string, args ...interface{}) error {
	return &fundamental{
		msg:   fmt.Sprintf(format, args...),
		stack: callers(),
	}
}

// ErrorfAndReport formats an error, reports it, and returns it.
func ErrorfAndReport(format string, args ...interface{}) error {
	err := Errorf(format, args...)
	report(err)
	return err
}

// WithStack annotates err with a stack at the call site. Returns nil if
// err is nil.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	return &withStack{
		err,
		callers(),
	}
}

// WithStackAndReport annotates err with a stack and reports it.
func WithStackAndReport(err error) error {
	if err == nil {
		return nil
	}
	err = WithStack(err)
	report(err)
	return err
}

// Wrap returns an error annotating err with a stack and the supplied
// message. Returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &withStack{
		&withMessage{cause: err, msg: message},
		callers(),
	}
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &withStack{
		&withMessage{cause: err, msg: fmt.Sprintf(format, args...)},
		callers(),
	}
}

// WrapAndReport wraps err and forwards it to the registered reporters.
func WrapAndReport(err error, message string) error {
	if err == nil {
		return nil
	}
	err = Wrap(err, message)
	report(err)
	return err
}

// WrapfAndReport is WrapAndReport with a format string.
func WrapfAndReport(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	err = Wrapf(err, format, args...)
	report(err)
	return err
}

// Report forwards err to the registered reporters as-is.
func Report(err error) {
	report(err)
}

func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target interface{}) bool { return stderrors.As(err, target) }

func Unwrap(err error) error { return stderrors.Unwrap(err) }
