// Package upstream provides the shared HTTP plumbing for external API clients:
// a tuned transport with DNS caching, a metered JSON client and APIError.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/dnscache"

	papertrail "github.com/eugener/papertrail/internal"
	"github.com/eugener/papertrail/internal/circuitbreaker"
	"github.com/eugener/papertrail/internal/telemetry"
)

// maxBodySize caps how much of a successful response is buffered.
const maxBodySize = 16 << 20

// NewTransport returns a tuned *http.Transport with connection pooling and
// optional DNS caching. Set forceHTTP2 to true for remote HTTPS APIs, false
// for local HTTP/1.1 servers (e.g. a self-hosted LLM).
func NewTransport(resolver *dnscache.Resolver, forceHTTP2 bool) *http.Transport {
	t := &http.Transport{
		MaxIdleConnsPerHost: 100,
		MaxConnsPerHost:     200,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   forceHTTP2,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	if resolver != nil {
		t.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ips, err := resolver.LookupHost(ctx, host)
			if err != nil {
				return nil, err
			}
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(ips[0], port))
		}
	}
	return t
}

// Client sends requests to one upstream service and records their duration
// and failures.
type Client struct {
	service string
	http    *http.Client
	metrics *telemetry.Metrics      // nil = no metrics
	breaker *circuitbreaker.Breaker // nil = no circuit breaking
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBreaker fails calls fast while b is open.
func WithBreaker(b *circuitbreaker.Breaker) ClientOption {
	return func(c *Client) { c.breaker = b }
}

// NewClient creates a Client for service. A nil httpClient uses a default
// client with the given timeout.
func NewClient(service string, httpClient *http.Client, timeout time.Duration, metrics *telemetry.Metrics, opts ...ClientOption) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	c := &Client{service: service, http: httpClient, metrics: metrics}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Service returns the upstream service name.
func (c *Client) Service() string { return c.service }

// Do sends req and returns the response body of a 2xx response.
// Non-2xx responses are returned as *APIError. op labels the metrics.
// While the breaker is open Do fails with circuitbreaker.ErrOpen without
// contacting the service.
func (c *Client) Do(req *http.Request, op string) ([]byte, error) {
	if c.breaker == nil {
		return c.do(req, op)
	}
	if !c.breaker.Allow() {
		c.recordError("circuit_open")
		return nil, fmt.Errorf("%s: %w: %w", c.service, papertrail.ErrUpstream, circuitbreaker.ErrOpen)
	}
	body, err := c.do(req, op)
	c.breaker.Record(err)
	return body, err
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.recordError("transport")
		return nil, fmt.Errorf("%s: do request: %w: %w", c.service, papertrail.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.UpstreamDuration.WithLabelValues(c.service, op).Observe(time.Since(start).Seconds())
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.recordError(strconv.Itoa(resp.StatusCode))
		return nil, ParseAPIError(c.service, resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		c.recordError("read")
		return nil, fmt.Errorf("%s: read response: %w", c.service, err)
	}
	return body, nil
}

func (c *Client) recordError(status string) {
	if c.metrics != nil {
		c.metrics.UpstreamErrors.WithLabelValues(c.service, status).Inc()
	}
}
