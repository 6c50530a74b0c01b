// Package httpclient provides the single shared HTTP client used across
// the engine (downloader, auth chain, manifest fetches) and the
// ECDSA-P256 proof-of-possession signer the Auth Chain's Xbox Live calls
// require.
package httpclient

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const UserAgent = "corelaunch/1.0 (+https://github.com/riftlabs/corelaunch)"

// New builds a retrying HTTP client configured the way every outbound
// call in this engine wants it: bounded retries under retryablehttp's
// default policy (transport errors, 429 and 5xx responses), a shared
// idle-connection pool, and the engine's user agent.
// retryMax/waitMin/waitMax let callers tune the auth chain's stricter
// "5 attempts, 250ms fixed backoff, connect/timeout only" policy without
// duplicating the transport setup.
func New(retryMax int, waitMin, waitMax time.Duration) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = retryMax
	c.RetryWaitMin = waitMin
	c.RetryWaitMax = waitMax
	c.Logger = nil
	c.HTTPClient.Transport = &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	c.HTTPClient.Timeout = 0 // no per-request timeout; large downloads run unbounded
	c.CheckRetry = retryablehttp.DefaultRetryPolicy
	return c
}

// Default returns a client with generous retry defaults suited to
// downloads and manifest fetches (3 retries after the first attempt,
// 1s-10s backoff).
func Default() *retryablehttp.Client {
	return New(3, 1*time.Second, 10*time.Second)
}

// AuthPolicy returns a client configured to the Auth Chain's stricter
// retry contract: exactly 5 attempts total (4 retries after the first),
// fixed 250ms spacing, retrying only on transport connect/timeout
// errors, never on HTTP status codes. CheckRetry is overridden
// accordingly by the auth package, which also needs to distinguish
// connect/timeout from other transport failures.
func AuthPolicy() *retryablehttp.Client {
	c := New(4, 250*time.Millisecond, 250*time.Millisecond)
	c.Backoff = func(min, _ time.Duration, _ int, _ *http.Response) time.Duration { return min }
	return c
}
