package executor

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/studiowebux/todoload/internal/types"
)

const (
	// HTTP client configuration timeouts
	TCPDialTimeout        = 5 * time.Second
	TCPKeepAliveInterval  = 30 * time.Second
	TLSHandshakeTimeout   = 5 * time.Second
	IdleConnTimeout       = 90 * time.Second
	ExpectContinueTimeout = 1 * time.Second

	// DefaultRequestTimeout applies when Options.RequestTimeout is zero
	DefaultRequestTimeout = 10 * time.Second
)

// Doer issues a request and reports its outcome. Implementations never
// return a nil Result.
type Doer interface {
	Do(ctx context.Context, req *types.Request) *types.Result
}

// DoerFunc adapts a function to the Doer interface
type DoerFunc func(ctx context.Context, req *types.Request) *types.Result

// Do calls f(ctx, req)
func (f DoerFunc) Do(ctx context.Context, req *types.Request) *types.Result {
	return f(ctx, req)
}

// Options configures the shared HTTP client
type Options struct {
	MaxConns       int // Sized to the number of virtual users
	RequestTimeout time.Duration
	TLS            *types.TLSConfig
}

// Client executes requests over a pooled *http.Client
type Client struct {
	httpClient *http.Client
}

// NewClient creates a client with connection pooling and timeouts
func NewClient(opts Options) (*Client, error) {
	httpClient, err := buildHTTPClient(opts)
	if err != nil {
		return nil, err
	}
	return &Client{httpClient: httpClient}, nil
}

// NewClientFrom wraps an existing *http.Client, e.g. one returned by httptest
func NewClientFrom(httpClient *http.Client) *Client {
	return &Client{httpClient: httpClient}
}

// Do executes req. Transport failures are reported in Result.Error with
// Status 0; the response status is never interpreted here.
func (c *Client) Do(ctx context.Context, req *types.Request) *types.Result {
	startTime := time.Now()
	result := &types.Result{
		Step:        req.Step,
		Method:      req.Method,
		URL:         req.URL,
		RequestSize: len(req.Body),
		Timestamp:   startTime,
	}

	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		result.Error = fmt.Sprintf("failed to create request: %v", err)
		return result
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Connection failed, timeout, or cancelled
		result.Duration = time.Since(startTime)
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	result.Status = resp.StatusCode
	result.StatusText = resp.Status

	bodyBytes, err := io.ReadAll(resp.Body)
	result.Duration = time.Since(startTime)
	if err != nil {
		result.Error = fmt.Sprintf("failed to read response body: %v", err)
		return result
	}

	result.Body = string(bodyBytes)
	result.ResponseSize = len(bodyBytes)
	return result
}

// CloseIdleConnections releases pooled connections
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// buildHTTPClient creates an HTTP client tuned for load generation
func buildHTTPClient(opts Options) (*http.Client, error) {
	maxConns := opts.MaxConns
	if maxConns <= 0 {
		maxConns = 1
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:        maxConns,
		MaxIdleConnsPerHost: maxConns,
		MaxConnsPerHost:     maxConns * 2, // active + idle
		IdleConnTimeout:     IdleConnTimeout,
		ForceAttemptHTTP2:   true,

		DialContext: (&net.Dialer{
			Timeout:   TCPDialTimeout,
			KeepAlive: TCPKeepAliveInterval,
		}).DialContext,

		TLSHandshakeTimeout:   TLSHandshakeTimeout,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: ExpectContinueTimeout,
	}

	if !opts.TLS.IsZero() {
		tlsCfg, err := buildTLSConfig(opts.TLS)
		if err != nil {
			return nil, err
		}
		transport.TLSClientConfig = tlsCfg
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}, nil
}

func buildTLSConfig(cfg *types.TLSConfig) (*tls.Config, error) {
	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	// Client certificate (mTLS)
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	if cfg.CAFile != "" {
		caCert, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		tlsCfg.RootCAs = caCertPool
	}

	return tlsCfg, nil
}
