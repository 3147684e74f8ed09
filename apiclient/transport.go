package apiclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
)

// TransportRequest is the fully resolved input to one transport attempt.
type TransportRequest struct {
	// Method is the upper-cased HTTP method.
	Method string

	// URL is the absolute request URL without query parameters.
	URL string

	// Headers are merged client defaults and per-call headers.
	Headers map[string]string

	// Params are encoded into the query string.
	Params map[string]string

	// Body is serialized to JSON unless it is already a []byte or string.
	Body any

	// Timeout bounds this single attempt. The retry loop issues a fresh
	// TransportRequest per attempt, so the timeout never spans attempts.
	Timeout time.Duration
}

// Transport performs the actual network call. The pipeline treats it as
// opaque and swappable: production uses HTTPTransport, tests typically use
// a TransportFunc. An error return is a transport-level failure
// (connection refused, timeout, DNS); a non-2xx status must be returned as
// a Response, not an error.
type Transport interface {
	Do(ctx context.Context, req *TransportRequest) (*Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req *TransportRequest) (*Response, error)

// Do implements Transport.
func (f TransportFunc) Do(ctx context.Context, req *TransportRequest) (*Response, error) {
	return f(ctx, req)
}

// HTTPTransportConfig holds the connection-level settings of the
// production transport. Use DefaultHTTPTransportConfig and override
// fields as needed.
type HTTPTransportConfig struct {
	// MaxIdleConns caps idle keep-alive connections across all hosts.
	// Default: 100
	MaxIdleConns int

	// MaxIdleConnsPerHost caps idle connections per host. Default: 20
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long an idle connection stays pooled.
	// Default: 90s
	IdleConnTimeout time.Duration

	// TLSHandshakeTimeout bounds the TLS handshake. Default: 10s
	TLSHandshakeTimeout time.Duration
}

// DefaultHTTPTransportConfig returns balanced connection-pool settings.
func DefaultHTTPTransportConfig() HTTPTransportConfig {
	return HTTPTransportConfig{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// HTTPTransport is the production Transport over net/http.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport creates an HTTPTransport from cfg, applying defaults
// for zero fields.
func NewHTTPTransport(cfg HTTPTransportConfig) *HTTPTransport {
	def := DefaultHTTPTransportConfig()
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = def.MaxIdleConns
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = def.MaxIdleConnsPerHost
	}
	if cfg.IdleConnTimeout <= 0 {
		cfg.IdleConnTimeout = def.IdleConnTimeout
	}
	if cfg.TLSHandshakeTimeout <= 0 {
		cfg.TLSHandshakeTimeout = def.TLSHandshakeTimeout
	}

	return &HTTPTransport{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        cfg.MaxIdleConns,
				MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
				IdleConnTimeout:     cfg.IdleConnTimeout,
				TLSHandshakeTimeout: cfg.TLSHandshakeTimeout,
			},
		},
	}
}

// Do implements Transport.
func (t *HTTPTransport) Do(ctx context.Context, req *TransportRequest) (*Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	fullURL := req.URL
	if len(req.Params) > 0 {
		values := make(url.Values, len(req.Params))
		for k, v := range req.Params {
			values.Set(k, v)
		}
		fullURL += "?" + values.Encode()
	}

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		return nil, err
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	headers := make(map[string]string, len(httpResp.Header))
	for k := range httpResp.Header {
		headers[k] = httpResp.Header.Get(k)
	}

	return &Response{
		Status:  httpResp.StatusCode,
		Body:    respBody,
		Headers: headers,
		Elapsed: elapsed,
		URL:     fullURL,
	}, nil
}

// Close releases pooled connections.
func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return bytes.NewReader(b), "", nil
	case string:
		return bytes.NewReader([]byte(b)), "", nil
	case io.Reader:
		return b, "", nil
	default:
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(raw), "application/json", nil
	}
}
