package core

// Params carries operation parameters between the typed client methods and
// the protocol's request builders. Keys use the exchange's external field
// names.
type Params map[string]any

// Request describes one HTTP call to the exchange: the method, the path
// relative to the base URL (no leading slash), and an optional JSON body.
// A Request is built fresh per operation and exists only for the duration of
// a single send.
type Request struct {
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	Body        any               `json:"body,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequireAuth bool              `json:"require_auth"`
}

// NewRequest creates a Request with the given method and relative path.
func NewRequest(method, path string) *Request {
	return &Request{
		Method:  method,
		Path:    path,
		Headers: make(map[string]string),
	}
}

// SetBody sets the request body and returns the request for chaining.
// The body is serialized to JSON exactly once at send time; the same bytes
// are used for signing and transmission.
func (r *Request) SetBody(body any) *Request {
	r.Body = body
	return r
}

// SetHeader sets a request header and returns the request for chaining.
func (r *Request) SetHeader(key, value string) *Request {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[key] = value
	return r
}

// SetRequireAuth marks whether the request must be signed.
func (r *Request) SetRequireAuth(require bool) *Request {
	r.RequireAuth = require
	return r
}
