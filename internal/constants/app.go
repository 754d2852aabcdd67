package constants

import (
	"time"
)

// Work-tracking REST API
const (
	// DefaultAPIVersion - api-version query parameter sent with every request
	DefaultAPIVersion = "7.1"

	// AnonymousIdentityID - identity the service reports for unauthenticated callers
	AnonymousIdentityID = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
)

// Retry configuration (transport level only)
const (
	// DefaultMaxRetries - retries for 5xx, 429 and connection errors
	DefaultMaxRetries = 5

	// RetryWaitMin - minimum wait between transport retries
	RetryWaitMin = 1 * time.Second

	// RetryWaitMax - maximum wait between transport retries
	RetryWaitMax = 30 * time.Second
)

// HTTP Client Timeouts
const (
	// DefaultRequestTimeout - timeout for metadata requests (connection data, query, work item)
	DefaultRequestTimeout = 60 * time.Second

	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (60 seconds)
	HTTPTLSHandshakeTimeout = 60 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (30 seconds)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second

	// ProxyWarmupTimeout - timeout for the proxy warmup request
	ProxyWarmupTimeout = 15 * time.Second
)

// File output
const (
	// DirPermissions - mode for created output directories
	DirPermissions = 0755

	// FilePermissions - mode for written attachment files
	FilePermissions = 0644

	// DiskSpaceSafetyMargin - headroom required over an attachment's reported size
	DiskSpaceSafetyMargin = 1.05
)

// Progress output
const (
	// ProgressRefreshRate - mpb redraw interval
	ProgressRefreshRate = 300 * time.Millisecond

	// ProgressBarWidth - mpb bar width in columns
	ProgressBarWidth = 100
)
