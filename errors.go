package xmsscore

import "fmt"

// Error is the common interface satisfied by every error the core returns.
type Error interface {
	error
	Locked() bool // Is this error because something (like a file) was locked?
	Inner() error // Returns the wrapped error, if any
}

type errorImpl struct {
	msg    string
	locked bool
	inner  error
}

func (err *errorImpl) Locked() bool { return err.locked }
func (err *errorImpl) Inner() error { return err.inner }

func (err *errorImpl) Error() string {
	if err.inner != nil {
		return fmt.Sprintf("%s: %s", err.msg, err.inner.Error())
	}
	return err.msg
}

// Formats a new Error
func errorf(format string, a ...interface{}) *errorImpl {
	return &errorImpl{msg: fmt.Sprintf(format, a...)}
}

// Formats a new Error that wraps another
func wrapErrorf(err error, format string, a ...interface{}) *errorImpl {
	return &errorImpl{msg: fmt.Sprintf(format, a...), inner: err}
}

// ArgumentError reports a caller-side precondition violation: wrong buffer
// sizes, an index out of range, an unsupported parameter. Always raised
// before any hash primitive is invoked.
func newArgumentError(format string, a ...interface{}) Error {
	return errorf("argument error: "+format, a...)
}

// HashError wraps a failure returned by the hash primitive, tagged with the
// name of the keyed construction that called it (F, PRF, H or H_msg).
func newHashError(primitive string, err error) Error {
	return wrapErrorf(err, "hash error in %s", primitive)
}

// InvariantError signals an internal bug: a treeHash stack that didn't
// collapse to one element, a double publish in the parallel tree builder,
// a root mismatch between the storing and non-storing code paths. These are
// fatal and are never expected to occur with correct inputs.
func newInvariantError(format string, a ...interface{}) Error {
	return errorf("invariant violated: "+format, a...)
}
