package api

// Header names.
const (
	requestIDHeader = "X-Request-ID"
)

// Cache-Control header values.
const (
	CacheOneHour = "public, max-age=3600"
)
