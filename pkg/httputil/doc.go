// Package httputil provides shared HTTP plumbing for registry metadata
// and artifact downloads: a client constructor with a sane timeout, and
// retry with exponential backoff for transient failures.
//
// Only errors wrapped in [RetryableError] are retried. Permanent
// failures (such as a 404 for a coordinate that does not exist) must be
// returned unwrapped so they surface immediately.
package httputil
