package publish

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vk/stagegraph/internal/ctxlog"
	"github.com/vk/stagegraph/internal/diagram"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// EventGraphUpdate is the event every snapshot is emitted under.
const EventGraphUpdate = "graph:update"

// DefaultConnectTimeout bounds Dial when Options.ConnectTimeout is zero.
const DefaultConnectTimeout = 15 * time.Second

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("publisher closed")

// Options configures a socket.io connection.
type Options struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// Publisher emits model snapshots. It is safe for concurrent use.
type Publisher struct {
	logger  *slog.Logger
	session uuid.UUID
	seq     atomic.Uint64

	mu     sync.Mutex
	emit   func(event string, args ...any)
	close  func()
	closed bool
}

func newPublisher(logger *slog.Logger, emit func(string, ...any), closeFn func()) *Publisher {
	session := uuid.New()
	return &Publisher{
		logger:  logger.With("publisher", session.String()),
		session: session,
		emit:    emit,
		close:   closeFn,
	}
}

// Dial connects to a socket.io server and waits for the connection to be
// acknowledged.
func Dial(ctx context.Context, opts Options) (*Publisher, error) {
	logger := ctxlog.FromContext(ctx).With("component", "publish", "url", opts.URL)

	parsed, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("publish URL %q needs a scheme and a host", opts.URL)
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	sopts := socket.DefaultOptions()
	if parsed.Path != "" {
		sopts.SetPath(parsed.Path)
	}
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sopts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sopts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host), sopts)
	io := manager.Socket(opts.Namespace, sopts)

	connected := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Publisher connected.", "sid", io.Id())
		connected <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		connected <- connectError(errs)
	})
	io.Connect()

	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}

	return newPublisher(logger,
		func(event string, args ...any) { io.Emit(event, args...) },
		func() { io.Disconnect() },
	), nil
}

// Publish emits a snapshot of m.
func (p *Publisher) Publish(m *diagram.Model) error {
	snap := NewSnapshot(m)
	snap.Sequence = p.seq.Add(1)

	// The socket.io encoder handles plain maps and slices most reliably.
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	payload["session"] = p.session.String()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.emit(EventGraphUpdate, payload)
	p.logger.Debug("Snapshot published.", "sequence", snap.Sequence, "nodes", len(snap.Nodes), "edges", len(snap.Edges))
	return nil
}

// Close disconnects. It is safe to call more than once.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.close != nil {
		p.close()
	}
	p.logger.Info("Publisher disconnected.")
	return nil
}

// connectError turns the arguments of a connect_error event into an error.
func connectError(args []any) error {
	if len(args) == 0 {
		return errors.New("connect_error without details")
	}
	if err, ok := args[0].(error); ok && err != nil {
		return err
	}
	return fmt.Errorf("connect_error: %v", args[0])
}
