package fibsterm

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies the category of a failure
type Kind int

const (
	KindUnknown                Kind = iota
	KindIO                          // Socket or terminal I/O failure
	KindAddressResolution           // Hostname could not be resolved to an IPv4 address
	KindMalformedConfiguration      // Configuration value could not be used
	KindChannelDisconnected         // A channel's peer goroutine went away
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "I/O error"
	case KindAddressResolution:
		return "address resolution error"
	case KindMalformedConfiguration:
		return "malformed configuration"
	case KindChannelDisconnected:
		return "channel disconnected"
	default:
		return "unknown error"
	}
}

// Error is the single error type returned by fibsterm components. Source names
// the goroutine or channel that failed ("reader", "relay", "bytes", ...).
type Error struct {
	Kind   Kind
	Source string
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Source, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

// Unwrap exposes the wrapped cause to errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// Cause lets errors.Cause from github.com/pkg/errors walk through an Error
func (e *Error) Cause() error {
	return e.Err
}

// IOError wraps a socket or terminal failure
func IOError(source string, err error) error {
	return &Error{Kind: KindIO, Source: source, Err: errors.WithStack(err)}
}

// ResolutionError reports a failed hostname lookup, carrying the resolver's reason
func ResolutionError(host, reason string) error {
	return &Error{Kind: KindAddressResolution, Source: "resolver", Err: errors.Errorf("%s: %s", host, reason)}
}

// ConfigError reports a configuration value that cannot be used
func ConfigError(err error) error {
	return &Error{Kind: KindMalformedConfiguration, Source: "config", Err: err}
}

// DisconnectedError reports that the producing side of a channel has gone away
func DisconnectedError(source string) error {
	return &Error{Kind: KindChannelDisconnected, Source: source, Err: errors.New("peer exited")}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given Kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
