// Package httptransport is the reference transport.Client over net/http.
// One Client serves a whole (cluster, scheme) pair: it holds a single
// shared http.Client whose connection pool is tuned from the cluster's
// opaque properties, and requests to any endpoint of the cluster flow
// through it.
package httptransport

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/cuemby/wayfinder/pkg/log"
	"github.com/cuemby/wayfinder/pkg/transport"
)

// Cluster property keys this transport understands. Absent or malformed
// values fall back to defaults.
const (
	PropRequestTimeoutMs  = "http.requestTimeoutMs"
	PropMaxIdleConns      = "http.maxIdleConns"
	PropIdleConnTimeoutMs = "http.idleConnTimeoutMs"
)

const (
	defaultRequestTimeout  = 10 * time.Second
	defaultMaxIdleConns    = 32
	defaultIdleConnTimeout = 90 * time.Second
)

// Client is a transport.Client backed by one pooled http.Client. The id
// distinguishes generations of the same (cluster, scheme) client in
// logs across scheme flips.
type Client struct {
	id             string
	httpClient     *http.Client
	requestTimeout time.Duration
}

var _ transport.Client = (*Client)(nil)

// New builds a Client from a cluster's opaque properties.
func New(clusterProperties map[string]string) (*Client, error) {
	requestTimeout := durationProp(clusterProperties, PropRequestTimeoutMs, defaultRequestTimeout)
	idleTimeout := durationProp(clusterProperties, PropIdleConnTimeoutMs, defaultIdleConnTimeout)
	maxIdle := intProp(clusterProperties, PropMaxIdleConns, defaultMaxIdleConns)

	return &Client{
		id: uuid.NewString(),
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        maxIdle,
				MaxIdleConnsPerHost: maxIdle,
				IdleConnTimeout:     idleTimeout,
			},
		},
		requestTimeout: requestTimeout,
	}, nil
}

// Factory is a transport.Factory producing http Clients. Register it
// under both "http" and "https"; the scheme rides in each request URL.
var Factory = transport.FactoryFunc(func(clusterProperties map[string]string) (transport.Client, error) {
	return New(clusterProperties)
})

// Register installs Factory into r for the given schemes.
func Register(r *transport.Registry, schemes ...string) {
	if len(schemes) == 0 {
		schemes = []string{"http", "https"}
	}
	for _, scheme := range schemes {
		r.Register(scheme, Factory)
	}
}

// Do dispatches req with the client's per-request timeout applied on top
// of whatever deadline ctx already carries.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	return c.httpClient.Do(req.WithContext(ctx))
}

// Shutdown releases the connection pool. In-flight requests complete on
// their own connections; only idle ones are torn down, so Shutdown
// reports success immediately from a separate goroutine.
func (c *Client) Shutdown(callback func(error)) {
	go func() {
		c.httpClient.CloseIdleConnections()
		log.Logger.Debug().Str("client", c.id).Msg("http transport client shut down")
		callback(nil)
	}()
}

func durationProp(props map[string]string, key string, fallback time.Duration) time.Duration {
	if v, ok := props[key]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Millisecond
		}
	}
	return fallback
}

func intProp(props map[string]string, key string, fallback int) int {
	if v, ok := props[key]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
