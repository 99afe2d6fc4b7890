// Package transport carries framed bytes to the endpoint a route names.
// The client consumes only the Transport interface; the UDP sidecar
// implementation in this package is the one the reference deployment
// uses.
package transport

import (
	"errors"

	"github.com/gdp-net/gdp-go/pkg/routes"
)

// Write failures are classified into three kinds. Implementations wrap
// one of these sentinels so callers can classify with errors.Is.
var (
	// ErrTimeout: the transport's own deadline elapsed.
	ErrTimeout = errors.New("transport timeout")

	// ErrTransient: delivery failed but a later attempt (or an
	// alternate route) may succeed.
	ErrTransient = errors.New("transient transport failure")

	// ErrPermanent: delivery failed and retrying the same frame on the
	// same route cannot help.
	ErrPermanent = errors.New("permanent transport failure")
)

// Transport accepts one encoded frame for one route and reports the
// delivery outcome. A nil error with a nil reply means accepted for
// delivery with nothing further known; a non-nil reply is a raw outcome
// frame the far side returned within the transport's own deadline
// window. Write blocks the caller; its latency is bounded by the
// implementation's deadlines. Implementations must be safe for
// concurrent Write calls.
type Transport interface {
	Write(route routes.Route, frame []byte) (reply []byte, err error)
	MTU() int
	Close() error
}
