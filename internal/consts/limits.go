package consts

import "time"

// Expression limits
const (
	// MaxExpressionLength is the default maximum expression size in bytes
	MaxExpressionLength = 4096
	// MaxRequestBodyBytes caps HTTP request bodies
	MaxRequestBodyBytes = 16 * 1024
	// MaxWebSocketMessage caps a single websocket frame
	MaxWebSocketMessage = 8 * 1024
)

// Server defaults
const (
	// DefaultServerAddr is the listen address for `exprcalc serve`
	DefaultServerAddr = "127.0.0.1:8937"
	// DefaultRateLimit is the per-client request rate (requests per second)
	DefaultRateLimit = 20.0
	// DefaultRateBurst is the per-client burst size
	DefaultRateBurst = 40
	// LimiterIdleTTL is how long an idle client limiter is kept
	LimiterIdleTTL = 10 * time.Minute
)

// History defaults
const (
	// DefaultHistoryLimit is the number of entries listed by default
	DefaultHistoryLimit = 20
	// MaxHistoryLimit bounds history queries
	MaxHistoryLimit = 1000
)

// Suite execution
const (
	// DefaultSuiteWorkers is the number of cases evaluated in parallel
	DefaultSuiteWorkers = 4
	// DefaultTolerance is the relative tolerance for comparing results
	DefaultTolerance = 1e-9
)

// Timeouts for various operations
const (
	// Timeout5Seconds is a 5 second timeout
	Timeout5Seconds = 5 * time.Second
	// Timeout10Seconds is a 10 second timeout
	Timeout10Seconds = 10 * time.Second
	// Timeout60Seconds is a 60 second timeout (1 minute)
	Timeout60Seconds = 60 * time.Second
)
