package publish

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/glgrid/internal/ctxlog"
)

// DefaultEvent is the event reports are emitted as.
const DefaultEvent = "pipeline_report"

// Publisher delivers reports.
type Publisher interface {
	Publish(ctx context.Context, r *Report) error
	Close() error
}

// Options configure a socket.io connection.
type Options struct {
	URL                string
	Namespace          string
	Event              string
	InsecureSkipVerify bool
	// ConnectTimeout bounds Dial. Zero means 15s.
	ConnectTimeout time.Duration
}

// Client is a Publisher backed by one socket.io connection.
type Client struct {
	io    *socket.Socket
	event string
	url   string
}

// Dial connects to the server and waits for the connection to be
// acknowledged.
func Dial(ctx context.Context, o Options) (*Client, error) {
	logger := ctxlog.FromContext(ctx).With("publisher", "socketio", "url", o.URL)
	logger.Info("Connecting report publisher...")

	parsedURL, err := url.Parse(o.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("publish URL %q must be absolute", o.URL)
	}
	timeout := o.ConnectTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	event := o.Event
	if event == "" {
		event = DefaultEvent
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if o.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(o.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Report publisher connected", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err, _ := errs[0].(error)
		if err == nil {
			err = fmt.Errorf("%v", errs[0])
		}
		logger.Debug("Report publisher failed to connect", "error", err)
		connectChan <- err
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &Client{io: io, event: event, url: o.URL}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}
}

// Publish emits the report. Delivery is not acknowledged.
func (c *Client) Publish(ctx context.Context, r *Report) error {
	logger := ctxlog.FromContext(ctx)
	payload, err := r.Payload()
	if err != nil {
		return err
	}
	logger.Debug("Emitting report.", "event", c.event, "pipeline", r.Pipeline, "passes", len(r.Passes))
	c.io.Emit(c.event, payload)
	return nil
}

// Close disconnects the socket.
func (c *Client) Close() error {
	c.io.Disconnect()
	return nil
}
