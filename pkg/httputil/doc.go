// Package httputil provides the HTTP plumbing for remote enrichment
// services.
//
//   - [Retry]: exponential backoff for errors marked [RetryableError]
//   - [Client]: JSON POST with status classification and retry
//
// # Error classification
//
// [Client.PostJSON] maps responses onto the codes in pkg/errors:
//
//   - transport failures: NETWORK_ERROR, retried
//   - 429: a RateLimitedError honoring Retry-After, retried
//   - 5xx: NETWORK_ERROR, retried
//   - other 4xx: INVALID_INPUT, returned at once
//   - undecodable body: INVALID_FORMAT
//
// Responses are not cached here; callers put a pkg/cache in front.
package httputil
