package libsocket

import "errors"

// Kind classifies launch failures.
type Kind int

const (
	// KindInput is a malformed option value or missing application.
	KindInput Kind = iota + 1
	// KindResolve is an endpoint that could not be resolved.
	KindResolve
	// KindResource is a failed socket, setsockopt, bind, listen or exec.
	KindResource
	// KindFilesystem is a failure creating directories, lock files or
	// removing stale sockets.
	KindFilesystem
	// KindContention means another instance holds the socket's lock.
	KindContention
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "invalid input"
	case KindResolve:
		return "resolution error"
	case KindResource:
		return "resource error"
	case KindFilesystem:
		return "filesystem error"
	case KindContention:
		return "contention"
	}
	return "unknown error"
}

// Error is the error returned by every launch phase.
type Error struct {
	Kind Kind
	// Label is the endpoint the error relates to, if any.
	Label string
	Op    string
	Err   error
}

func (e *Error) Error() string {
	s := e.Op + ": " + e.Err.Error()
	if e.Label != "" {
		s = "listener " + e.Label + ": " + s
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

func newError(k Kind, label, op string, err error) error {
	return &Error{Kind: k, Label: label, Op: op, Err: err}
}
