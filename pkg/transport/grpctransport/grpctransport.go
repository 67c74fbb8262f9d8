// Package grpctransport is the reference transport.Client over gRPC. A
// Client serves one (cluster, scheme) pair and holds one lazily dialed
// grpc.ClientConn per target host, so repeated calls to the same
// endpoint reuse its connection.
package grpctransport

import (
	"context"
	"crypto/tls"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/proto"

	"github.com/cuemby/wayfinder/pkg/log"
	"github.com/cuemby/wayfinder/pkg/transport"
)

// Cluster property keys this transport understands.
const (
	PropCallTimeoutMs = "grpc.callTimeoutMs"
	PropTLS           = "grpc.tls"
)

const defaultCallTimeout = 10 * time.Second

// Client is a transport.Client backed by a per-target grpc.ClientConn
// cache.
type Client struct {
	id          string
	callTimeout time.Duration
	creds       credentials.TransportCredentials

	mu     sync.Mutex
	conns  map[string]*grpc.ClientConn // keyed by target host:port
	closed bool
}

var _ transport.Client = (*Client)(nil)

// New builds a Client from a cluster's opaque properties. TLS is off
// unless the cluster says otherwise.
func New(clusterProperties map[string]string) (*Client, error) {
	creds := insecure.NewCredentials()
	if clusterProperties[PropTLS] == "true" {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	callTimeout := defaultCallTimeout
	if v, ok := clusterProperties[PropCallTimeoutMs]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			callTimeout = time.Duration(n) * time.Millisecond
		}
	}

	return &Client{
		id:          uuid.NewString(),
		callTimeout: callTimeout,
		creds:       creds,
		conns:       make(map[string]*grpc.ClientConn),
	}, nil
}

// Factory is a transport.Factory producing gRPC Clients.
var Factory = transport.FactoryFunc(func(clusterProperties map[string]string) (transport.Client, error) {
	return New(clusterProperties)
})

// Register installs Factory into r under "grpc".
func Register(r *transport.Registry) {
	r.Register("grpc", Factory)
}

// Invoke performs a unary call of method against target, with the
// client's per-call timeout applied on top of ctx's deadline.
func (c *Client) Invoke(ctx context.Context, target, method string, req, resp proto.Message) error {
	conn, err := c.connFor(target)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	return conn.Invoke(ctx, method, req, resp)
}

// connFor returns the cached connection for target, dialing on first
// use. gRPC connects lazily, so this never blocks on the network.
func (c *Client) connFor(target string) (*grpc.ClientConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("grpc transport client is shut down")
	}
	if conn, ok := c.conns[target]; ok {
		return conn, nil
	}

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(c.creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", target, err)
	}
	c.conns[target] = conn
	return conn, nil
}

// Shutdown closes every cached connection from a separate goroutine and
// reports the first close error, if any, through callback.
func (c *Client) Shutdown(callback func(error)) {
	c.mu.Lock()
	c.closed = true
	conns := c.conns
	c.conns = nil
	c.mu.Unlock()

	go func() {
		var firstErr error
		for target, conn := range conns {
			if err := conn.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("failed to close connection to %s: %w", target, err)
			}
		}
		log.Logger.Debug().Str("client", c.id).Int("connections", len(conns)).Msg("grpc transport client shut down")
		callback(firstErr)
	}()
}
