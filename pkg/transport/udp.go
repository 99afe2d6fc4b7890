package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/gdp-net/gdp-go/pkg/routes"
)

const (
	// DefaultLibPort is the local port the client binds, matching the
	// reference deployment's library port.
	DefaultLibPort = 27182

	// DefaultSidecarPort is where a forwarding sidecar listens.
	DefaultSidecarPort = 5006

	DefaultWriteTimeout = 2 * time.Second
)

// UDPTransport delivers frames as single datagrams to the sidecar
// address each route names. With a nonzero replyWait it also reads one
// datagram back within that window and hands it to the caller as a raw
// outcome frame.
type UDPTransport struct {
	conn         *net.UDPConn
	mtu          int
	writeTimeout time.Duration
	replyWait    time.Duration

	mu       sync.Mutex
	detached bool
	txBytes  uint64
	rxBytes  uint64
}

// NewUDP binds localAddr and returns a ready transport. A replyWait of
// zero makes Write fire-and-forget.
func NewUDP(localAddr string, mtu int, writeTimeout, replyWait time.Duration) (*UDPTransport, error) {
	addr, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve local address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", localAddr, err)
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &UDPTransport{
		conn:         conn,
		mtu:          mtu,
		writeTimeout: writeTimeout,
		replyWait:    replyWait,
	}, nil
}

func (u *UDPTransport) MTU() int {
	return u.mtu
}

func (u *UDPTransport) LocalAddr() net.Addr {
	return u.conn.LocalAddr()
}

func (u *UDPTransport) Write(route routes.Route, frame []byte) ([]byte, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.detached {
		return nil, fmt.Errorf("%w: transport closed", ErrPermanent)
	}
	if u.mtu > 0 && len(frame) > u.mtu {
		return nil, fmt.Errorf("%w: frame of %d bytes exceeds mtu %d", ErrPermanent, len(frame), u.mtu)
	}

	target, err := net.ResolveUDPAddr("udp", string(route.Endpoint))
	if err != nil {
		return nil, fmt.Errorf("%w: bad endpoint %q: %v", ErrPermanent, route.Endpoint, err)
	}

	if err := u.conn.SetWriteDeadline(time.Now().Add(u.writeTimeout)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermanent, err)
	}
	n, err := u.conn.WriteToUDP(frame, target)
	if err != nil {
		return nil, classify(err)
	}
	u.txBytes += uint64(n)

	if u.replyWait <= 0 {
		return nil, nil
	}

	if err := u.conn.SetReadDeadline(time.Now().Add(u.replyWait)); err != nil {
		return nil, nil
	}
	buf := make([]byte, u.mtu)
	n, _, err = u.conn.ReadFromUDP(buf)
	if err != nil {
		// No reply inside the window still counts as accepted for
		// delivery; the wire gave no outcome either way.
		return nil, nil
	}
	u.rxBytes += uint64(n)
	return buf[:n], nil
}

func (u *UDPTransport) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.detached {
		return nil
	}
	u.detached = true
	return u.conn.Close()
}

// TxBytes returns the number of payload bytes written since creation.
func (u *UDPTransport) TxBytes() uint64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.txBytes
}

// RxBytes returns the number of reply bytes read since creation.
func (u *UDPTransport) RxBytes() uint64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.rxBytes
}

func classify(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, os.ErrDeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH),
		errors.Is(err, syscall.ENOBUFS):
		return fmt.Errorf("%w: %v", ErrTransient, err)
	case errors.Is(err, syscall.EMSGSIZE),
		errors.Is(err, net.ErrClosed):
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	default:
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
}
