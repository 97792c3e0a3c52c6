package utils

// contextKey is a type used for context keys to avoid conflicts with other packages' context keys.
type contextKey struct {
	name string
}

// Returns string representation of the context key.
func (c *contextKey) String() string {
	return c.name
}

var TraceIdKey = &contextKey{"traceId"}
var SanitizedPayloadKey = &contextKey{"sanitizedPayload"}

// SessionKey holds the request's session.Session in the gin context.
var SessionKey = &contextKey{"session"}
