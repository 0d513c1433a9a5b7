package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a failure so callers can decide whether it is fatal to
// the run or only to a single repository.
type Kind int

const (
	KindUnknown Kind = iota
	MissingCredential
	UpstreamListFailed
	CommandFailed
	WebhookInstallFailed
	DestinationCreateFailed
	ConfigurationInvalid
)

var kindNames = map[Kind]string{
	KindUnknown:             "unknown",
	MissingCredential:       "missing credential",
	UpstreamListFailed:      "upstream list failed",
	CommandFailed:           "command failed",
	WebhookInstallFailed:    "webhook install failed",
	DestinationCreateFailed: "destination create failed",
	ConfigurationInvalid:    "configuration invalid",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// OperationError represents an error that occurred during a mirror operation
type OperationError struct {
	Op   string // The operation being performed
	Kind Kind   // Classification of the failure
	Err  error  // The underlying error
}

// Error implements the error interface
func (e *OperationError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *OperationError) Unwrap() error {
	return e.Err
}

// ErrorKind reports the classification of the error
func (e *OperationError) ErrorKind() Kind {
	return e.Kind
}

// New creates a new OperationError with no particular kind
func New(op string, err error) *OperationError {
	return &OperationError{
		Op:  op,
		Err: err,
	}
}

// E creates a new OperationError of the given kind
func E(kind Kind, op string, err error) *OperationError {
	return &OperationError{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// Errorf creates a new OperationError of the given kind with a formatted message
func Errorf(kind Kind, op string, format string, args ...interface{}) *OperationError {
	return E(kind, op, fmt.Errorf(format, args...))
}

// Is implements error matching for OperationError. A target with
// KindUnknown matches on Op alone.
func (e *OperationError) Is(target error) bool {
	t, ok := target.(*OperationError)
	if !ok {
		return false
	}
	if t.Kind != KindUnknown && t.Kind != e.Kind {
		return false
	}
	return e.Op == t.Op
}

type kinded interface {
	ErrorKind() Kind
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	for err != nil {
		if k, ok := err.(kinded); ok && k.ErrorKind() != KindUnknown {
			return k.ErrorKind()
		}
		err = stderrors.Unwrap(err)
	}
	return KindUnknown
}

// IsKind reports whether any error in err's chain is of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// As is errors.As, re-exported so callers importing this package do not
// need the standard library package under another name.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Is is errors.Is.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// CommandError is returned when an external git command exits non-zero
type CommandError struct {
	Description string
	Stderr      string
	Err         error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s failed with error\n\t%s", e.Description, e.Stderr)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ErrorKind implements kinded
func (e *CommandError) ErrorKind() Kind {
	return CommandFailed
}
