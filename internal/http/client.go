// Package http builds the proxy-aware HTTP clients used to reach the
// work-tracking service.
package http

import (
	"crypto/tls"
	nethttp "net/http"
	"os"
	"strings"

	"golang.org/x/net/http2"

	"github.com/rescale/witdl/internal/config"
)

// CreateOptimizedClient creates an HTTP client for API calls and attachment
// streams with proxy support.
//
// Key features:
//   - Proxy support (uses ConfigureHTTPClient as base)
//   - HTTP/2 support with runtime toggle (DISABLE_HTTP2 env var)
//   - HTTP/2 disabled when a proxy is active (FORCE_HTTP2=true overrides)
//   - No overall client timeout; each request carries its own context
//
// If cfg is nil, a client without proxy configuration is returned.
func CreateOptimizedClient(cfg *config.Config, warmupURL string) (*nethttp.Client, error) {
	var baseClient *nethttp.Client

	if cfg != nil {
		var err error
		baseClient, err = ConfigureHTTPClient(cfg, warmupURL)
		if err != nil {
			return nil, err
		}
	} else {
		baseClient = &nethttp.Client{Transport: &nethttp.Transport{Proxy: nethttp.ProxyFromEnvironment}}
	}

	tr, ok := baseClient.Transport.(*nethttp.Transport)
	if !ok {
		// NTLM wraps the transport in ntlmssp.Negotiator; leave it alone.
		baseClient.Timeout = 0
		return baseClient, nil
	}

	// Attachments are often already compressed (zip, png); do not ask for gzip.
	tr.DisableCompression = true
	tr.ForceAttemptHTTP2 = true
	_ = http2.ConfigureTransport(tr)

	if os.Getenv("DISABLE_HTTP2") == "true" {
		disableHTTP2(tr)
	}

	// Proxies often have issues with HTTP/2 multiplexing.
	if proxyActive(cfg) && os.Getenv("FORCE_HTTP2") != "true" {
		disableHTTP2(tr)
	}

	baseClient.Transport = tr
	baseClient.Timeout = 0
	return baseClient, nil
}

func disableHTTP2(tr *nethttp.Transport) {
	tr.ForceAttemptHTTP2 = false
	tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
}

func proxyActive(cfg *config.Config) bool {
	envProxy := os.Getenv("HTTP_PROXY") != "" || os.Getenv("HTTPS_PROXY") != "" ||
		os.Getenv("http_proxy") != "" || os.Getenv("https_proxy") != ""
	if cfg == nil {
		return envProxy
	}
	switch strings.ToLower(cfg.ProxyMode) {
	case "no-proxy", "":
		return false
	case "system":
		return envProxy
	default:
		return true
	}
}
