package stfl

import (
	"fmt"
)

// Kind classifies the errors returned by this package.
type Kind uint8

const (
	KindOther Kind = iota

	// A serialized key (or state file) has the wrong length or violates
	// the index/capacity ordering.
	KindMalformedKey

	// The key has no unused one-time signatures left.
	KindCapacityExhausted

	// A sub-key reservation exceeds the master's remaining range.
	KindInsufficientCapacity

	// A key was used with a Scheme it does not belong to, or an operation
	// was invoked on the wrong flavour of key (eg. raising the capacity
	// of a sub-key).
	KindInvalidKey

	// The underlying signature engine failed.  Treated as fatal to the
	// call; never retried.
	KindEngine

	// Operation on a key whose secret material has been zeroed.
	KindUseAfterRelease

	// Malformed verification input.  A signature that is simply invalid
	// is reported as a false result, not as an error.
	KindVerification

	// A key state file is locked by another process.
	KindLocked

	// Filesystem failure in the key state container.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindMalformedKey:
		return "malformed key"
	case KindCapacityExhausted:
		return "capacity exhausted"
	case KindInsufficientCapacity:
		return "insufficient capacity"
	case KindInvalidKey:
		return "invalid key"
	case KindEngine:
		return "engine failure"
	case KindUseAfterRelease:
		return "use after release"
	case KindVerification:
		return "malformed verification input"
	case KindLocked:
		return "locked"
	case KindIO:
		return "io failure"
	default:
		return "error"
	}
}

type Error interface {
	error
	Kind() Kind   // Classification of this error
	Inner() error // Returns the wrapped error, if any
}

type errorImpl struct {
	kind  Kind
	msg   string
	inner error
}

func (err *errorImpl) Kind() Kind   { return err.kind }
func (err *errorImpl) Inner() error { return err.inner }

func (err *errorImpl) Error() string {
	if err.inner != nil {
		return fmt.Sprintf("%s: %s", err.msg, err.inner.Error())
	}
	return err.msg
}

// Formats a new Error
func errorf(kind Kind, format string, a ...interface{}) *errorImpl {
	return &errorImpl{kind: kind, msg: fmt.Sprintf(format, a...)}
}

// Formats a new Error that wraps another
func wrapErrorf(kind Kind, err error, format string, a ...interface{}) *errorImpl {
	return &errorImpl{kind: kind, msg: fmt.Sprintf(format, a...), inner: err}
}
