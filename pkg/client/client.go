// Package client implements the synchronous send path: resolve a name
// to a route, frame the payload, hand it to the transport, and report
// the outcome as a single status code. The Client is the only object
// exposed across the boundary and is safe for concurrent Send calls.
package client

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/gdp-net/gdp-go/internal/config"
	"github.com/gdp-net/gdp-go/internal/log"
	"github.com/gdp-net/gdp-go/pkg/cryptography"
	"github.com/gdp-net/gdp-go/pkg/name"
	"github.com/gdp-net/gdp-go/pkg/packet"
	"github.com/gdp-net/gdp-go/pkg/routes"
	"github.com/gdp-net/gdp-go/pkg/status"
	"github.com/gdp-net/gdp-go/pkg/transport"
)

var ErrNilTransport = errors.New("client requires a transport")

// Options tune a Client. Zero values fall back to package defaults.
type Options struct {
	// Source is this client's own name, stamped as src and last hop
	// on egress frames.
	Source name.Name

	TTL        byte
	MTU        int
	StaleAfter time.Duration
	Backoff    time.Duration

	// Secret enables frame sealing when non-empty; both sides of the
	// transport must share it.
	Secret []byte
}

// Client owns one route table and one transport handle. Create once at
// process start, share freely, close at shutdown; never close while a
// Send is in flight.
type Client struct {
	table  *routes.Table
	tr     transport.Transport
	codec  *packet.Codec
	sealer *cryptography.Sealer
	src    name.Name
	ttl    byte
	logger zerolog.Logger

	errMu   sync.RWMutex
	lastErr error
}

func New(tr transport.Transport, opts Options) (*Client, error) {
	if tr == nil {
		return nil, ErrNilTransport
	}

	mtu := opts.MTU
	if mtu <= 0 {
		mtu = tr.MTU()
	}
	ttl := opts.TTL
	if ttl == 0 {
		ttl = packet.DefaultTTL
	}

	c := &Client{
		table:  routes.NewTable(opts.StaleAfter, opts.Backoff),
		tr:     tr,
		codec:  packet.NewCodec(mtu),
		src:    opts.Source,
		ttl:    ttl,
		logger: log.Component("client"),
	}

	if len(opts.Secret) > 0 {
		sealer, err := cryptography.NewSealer(opts.Secret)
		if err != nil {
			return nil, fmt.Errorf("configure frame sealing: %w", err)
		}
		c.sealer = sealer
	}
	return c, nil
}

// FromConfig builds a Client from a loaded configuration file.
func FromConfig(cfg *config.Config, tr transport.Transport) (*Client, error) {
	opts := Options{
		TTL:        byte(cfg.DefaultTTL),
		MTU:        cfg.MTU,
		StaleAfter: time.Duration(cfg.StaleSeconds) * time.Second,
		Backoff:    time.Duration(cfg.BackoffMillis) * time.Millisecond,
	}
	if cfg.SourceName != "" {
		src, err := name.FromHex(cfg.SourceName)
		if err != nil {
			return nil, fmt.Errorf("parse source_name: %w", err)
		}
		opts.Source = src
	}
	if cfg.SecretHex != "" {
		secret, err := hex.DecodeString(cfg.SecretHex)
		if err != nil {
			return nil, fmt.Errorf("parse secret: %w", err)
		}
		opts.Secret = secret
	}
	return New(tr, opts)
}

// MaxPayload is the largest payload Send accepts. Sealing overhead, when
// configured, comes out of the codec's budget.
func (c *Client) MaxPayload() int {
	max := c.codec.MaxPayload()
	if c.sealer != nil {
		max -= c.sealer.Overhead()
	}
	return max
}

// Routes exposes the table for control-plane population and tests.
func (c *Client) Routes() *routes.Table {
	return c.table
}

// LastError reports the error behind the most recent failed Send, or nil
// after a success. It is an optional side channel; the status code is
// the contract.
func (c *Client) LastError() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()
	return c.lastErr
}

func (c *Client) Close() error {
	return c.tr.Close()
}

// Send delivers one payload toward the endpoint dst names and returns a
// status code. Exactly one transport attempt is made; callers own
// retries. Every path through Send ends in a status value, never a
// panic.
func (c *Client) Send(dst name.Name, payload []byte) status.Status {
	outcome, err := c.send(dst, payload)

	c.errMu.Lock()
	c.lastErr = err
	c.errMu.Unlock()

	st := status.Map(outcome)
	if err != nil {
		c.logger.Debug().
			Str("dst", dst.Short()).
			Int("payload", len(payload)).
			Stringer("status", st).
			Err(err).
			Msg("send failed")
	}
	return st
}

func (c *Client) send(dst name.Name, payload []byte) (outcome status.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = status.OutcomeInternal
			err = fmt.Errorf("panic in send path: %v", r)
		}
	}()

	// Caller-input checks come first and have zero side effects.
	if len(payload) > c.MaxPayload() {
		return status.OutcomePayloadTooLarge,
			fmt.Errorf("%w: %d > %d", packet.ErrPayloadTooLarge, len(payload), c.MaxPayload())
	}
	if dst.IsZero() {
		return status.OutcomeInvalidDestination, packet.ErrInvalidDestination
	}

	now := time.Now()
	candidates := c.table.Lookup(dst, now)
	if len(candidates) == 0 {
		return status.OutcomeNoRoute, fmt.Errorf("no route to %s", dst.Short())
	}
	best := candidates[0]

	frame := &packet.Frame{
		TTL:     c.ttl,
		Action:  packet.ActionForward,
		Seq:     c.codec.NextSeq(),
		Src:     c.src,
		Dst:     dst,
		LastHop: c.src,
		Payload: payload,
	}
	raw, err := c.codec.Encode(frame)
	if err != nil {
		switch {
		case errors.Is(err, packet.ErrPayloadTooLarge), errors.Is(err, packet.ErrFrameTooLarge):
			return status.OutcomePayloadTooLarge, err
		case errors.Is(err, packet.ErrInvalidDestination):
			return status.OutcomeInvalidDestination, err
		default:
			return status.OutcomeInternal, err
		}
	}

	if c.sealer != nil {
		if raw, err = c.sealer.Seal(raw); err != nil {
			return status.OutcomeInternal, fmt.Errorf("seal frame: %w", err)
		}
	}

	reply, err := c.tr.Write(best, raw)
	if err != nil {
		switch {
		case errors.Is(err, transport.ErrTimeout):
			c.table.Demote(dst, best.Endpoint, now)
			return status.OutcomeTimeout, err
		case errors.Is(err, transport.ErrPermanent):
			return status.OutcomePermanent, err
		default:
			// Transient and unclassified failures both leave the
			// route suspect.
			c.table.Demote(dst, best.Endpoint, now)
			return status.OutcomeTransient, err
		}
	}

	if reply == nil {
		return status.OutcomeAccepted, nil
	}
	return c.interpretReply(frame.Seq, reply)
}

func (c *Client) interpretReply(seq uint32, reply []byte) (status.Outcome, error) {
	if c.sealer != nil {
		opened, err := c.sealer.Open(reply)
		if err != nil {
			return status.OutcomeInternal, fmt.Errorf("open reply: %w", err)
		}
		reply = opened
	}

	out, err := c.codec.DecodeOutcome(reply)
	if err != nil {
		return status.OutcomeInternal, fmt.Errorf("decode reply: %w", err)
	}
	if out.Seq != seq {
		// An outcome for some other packet says nothing about this
		// one; the write itself was accepted.
		c.logger.Debug().Uint32("got", out.Seq).Uint32("want", seq).Msg("uncorrelated outcome")
		return status.OutcomeAccepted, nil
	}
	if out.Accepted {
		return status.OutcomeAccepted, nil
	}
	return status.OutcomePermanent,
		fmt.Errorf("%w: nack code %d: %s", transport.ErrPermanent, out.Code, out.Reason)
}

// RouteUpdate is one control-plane advertisement binding a name to an
// endpoint.
type RouteUpdate struct {
	Name     []byte `msgpack:"name"`
	Endpoint string `msgpack:"endpoint"`
	Metric   uint16 `msgpack:"metric"`
}

// HandleRouteUpdate ingests a msgpack batch of route advertisements.
func (c *Client) HandleRouteUpdate(data []byte) error {
	var updates []RouteUpdate
	if err := msgpack.Unmarshal(data, &updates); err != nil {
		return fmt.Errorf("decode route update: %w", err)
	}
	return c.applyUpdates(updates)
}

// HandleControlFrame ingests a RibReply frame whose detail block carries
// route advertisements. Sealed frames are opened first when sealing is
// configured.
func (c *Client) HandleControlFrame(raw []byte) error {
	if c.sealer != nil {
		opened, err := c.sealer.Open(raw)
		if err != nil {
			return fmt.Errorf("open control frame: %w", err)
		}
		raw = opened
	}

	f, err := c.codec.Decode(raw)
	if err != nil {
		return fmt.Errorf("decode control frame: %w", err)
	}
	if f.Action != packet.ActionRibReply {
		return fmt.Errorf("unexpected control action %#02x", f.Action)
	}
	if len(f.Detail) == 0 {
		return errors.New("control frame carries no route updates")
	}

	var updates []RouteUpdate
	if err := msgpack.Unmarshal(f.Detail, &updates); err != nil {
		return fmt.Errorf("decode control frame detail: %w", err)
	}
	return c.applyUpdates(updates)
}

func (c *Client) applyUpdates(updates []RouteUpdate) error {
	now := time.Now()
	for _, u := range updates {
		n, err := name.FromBytes(u.Name)
		if err != nil {
			return fmt.Errorf("route update name: %w", err)
		}
		if n.IsZero() {
			return fmt.Errorf("route update for reserved zero name")
		}
		c.table.Upsert(n, routes.Route{
			Endpoint: routes.Endpoint(u.Endpoint),
			Metric:   u.Metric,
			LastSeen: now,
		})
		c.logger.Debug().
			Str("dst", n.Short()).
			Str("endpoint", u.Endpoint).
			Uint16("metric", u.Metric).
			Msg("route refreshed")
	}
	return nil
}
