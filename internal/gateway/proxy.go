// Package gateway connects the word cloud to the external embedding service.
//
// NewProxy mounts the service under a path prefix so browsers reach it
// through the same origin as the word cloud. Client is a typed Go client for
// the same service. Neither retries: upstream failures reach the caller as
// they happened.
package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/thruflo/wordcloud/internal/logging"
)

// ProxyOption configures the handler returned by NewProxy.
type ProxyOption func(*proxyConfig)

type proxyConfig struct {
	logger    *logging.Logger
	transport http.RoundTripper
}

// WithProxyLogger sets the logger used for upstream failures.
func WithProxyLogger(l *logging.Logger) ProxyOption {
	return func(c *proxyConfig) {
		c.logger = l
	}
}

// WithTransport sets the round tripper used to reach the upstream.
func WithTransport(rt http.RoundTripper) ProxyOption {
	return func(c *proxyConfig) {
		c.transport = rt
	}
}

// NewProxy returns a handler that forwards every request under prefix to
// upstreamURL with the prefix removed. The Host header is rewritten to the
// upstream's host. Responses are relayed unchanged; a transport failure
// yields 502 with the error text.
func NewProxy(upstreamURL, prefix string, opts ...ProxyOption) (http.Handler, error) {
	target, err := url.Parse(upstreamURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid upstream URL %q: scheme and host are required", upstreamURL)
	}
	if !strings.HasPrefix(prefix, "/") {
		return nil, fmt.Errorf("invalid proxy prefix %q: must start with /", prefix)
	}
	prefix = strings.TrimSuffix(prefix, "/")

	cfg := &proxyConfig{logger: logging.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(target)
			r.Out.URL.Path, r.Out.URL.RawPath = joinPath(target, stripPrefix(r.In.URL, prefix))
			r.SetXForwarded()
		},
		Transport: cfg.transport,
		ErrorHandler: func(w http.ResponseWriter, req *http.Request, err error) {
			cfg.logger.Warn("Upstream request failed", "method", req.Method, "path", req.URL.Path, "error", err)
			http.Error(w, fmt.Sprintf("upstream unavailable: %v", err), http.StatusBadGateway)
		},
	}

	return proxy, nil
}

// stripPrefix returns the path of u below prefix, always starting with "/".
func stripPrefix(u *url.URL, prefix string) *url.URL {
	out := *u
	out.Path = strings.TrimPrefix(u.Path, prefix)
	if out.Path == "" || out.Path[0] != '/' {
		out.Path = "/" + out.Path
	}
	if u.RawPath != "" {
		out.RawPath = strings.TrimPrefix(u.RawPath, prefix)
		if out.RawPath == "" || out.RawPath[0] != '/' {
			out.RawPath = "/" + out.RawPath
		}
	}
	return &out
}

// joinPath appends the request path to the upstream base path.
func joinPath(target, rel *url.URL) (path, rawPath string) {
	base := strings.TrimSuffix(target.Path, "/")
	path = base + rel.Path
	if rel.RawPath != "" {
		rawPath = strings.TrimSuffix(target.EscapedPath(), "/") + rel.RawPath
	}
	return path, rawPath
}
