// Package adspower is a client for the local AdsPower management API.
//
// The package is built around two core concepts:
//
// 1. Client: a rate-limited, retrying HTTP client. Every call to the API,
// from any goroutine, passes through one shared throttle that enforces a
// global minimum spacing between requests. Transient failures (timeouts,
// connection errors, HTTP error statuses) are retried with exponential
// backoff and jitter; once the retry budget is exhausted the call degrades
// to a sentinel failure response instead of returning an error, so callers
// handle "no success" uniformly regardless of cause. Only context
// cancellation surfaces as an error.
//
// 2. Directory: a TTL cache over the full profile list, translating opaque
// profile ids to display names. The cache is refreshed wholesale; entries
// that disappear from the remote list are deliberately kept.
//
// These two are the only places in the monitor where timers or limits
// exist. The polling loops elsewhere carry none of their own and are paced
// entirely by the Client's throttle.
package adspower
