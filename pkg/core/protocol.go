package core

// RateLimitConfig describes the exchange's published rate limits so callers
// can size their own limiters.
type RateLimitConfig struct {
	// PublicRequestsPerSecond is the limit for unauthenticated endpoints.
	PublicRequestsPerSecond int `json:"public_requests_per_second"`
	// PrivateRequestsPerSecond is the limit for signed endpoints.
	PrivateRequestsPerSecond int `json:"private_requests_per_second"`
	// Burst allows temporary exceeding of the steady-state limits.
	Burst int `json:"burst"`
}

// Protocol defines the exchange-specific behavior behind the client: building
// a Request for an operation, signing it, and interpreting the response.
// Implementations must be stateless and safe for concurrent use.
type Protocol interface {
	// Name returns the exchange identifier.
	Name() string

	// BaseURL returns the API base URL. Sandbox mode returns the test
	// environment URL.
	BaseURL(sandbox bool) string

	// BuildRequest validates the operation parameters and constructs the
	// Request. Validation failures return a ValidationError naming the
	// offending field; no I/O happens here.
	BuildRequest(op Operation, params Params) (*Request, error)

	// SignRequest attaches the authentication headers for the request.
	// The body must be the exact serialized bytes that will be transmitted.
	SignRequest(req *Request, creds Credentials, timestamp string, body []byte) error

	// ParseResponse interprets the HTTP response for the operation. Non-2xx
	// statuses yield an APIError; success yields the operation's typed result.
	ParseResponse(op Operation, statusCode int, body []byte) (any, error)

	// SupportedOperations returns the list of operations this protocol supports.
	SupportedOperations() []Operation

	// RateLimits returns the exchange's published rate limit configuration.
	RateLimits() RateLimitConfig
}
