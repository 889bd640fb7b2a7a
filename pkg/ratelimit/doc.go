// Package ratelimit provides rate limiting for outbound requests.
//
// Two implementations are available behind the Limiter interface: a token
// bucket for request-per-window limits against the search API, and a fixed
// interval pacer that enforces a minimum delay between consecutive
// requests, which is how the fetcher spaces out downloads.
package ratelimit
