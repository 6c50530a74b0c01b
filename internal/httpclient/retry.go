package httpclient

import (
	"context"
	"net"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
)

// ConnectOrTimeoutOnly is the CheckRetry policy the Auth Chain's signed
// calls use: retry only when the transport error is a connection
// refusal or a timeout. Any other error, and any non-2xx HTTP status, is
// returned immediately without retry — auth failures must surface, not
// be masked by a retry loop.
func ConnectOrTimeoutOnly(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err == nil {
		return false, nil
	}
	var netErr net.Error
	if isNetError(err, &netErr) {
		if netErr.Timeout() {
			return true, nil
		}
	}
	if isConnectionRefused(err) {
		return true, nil
	}
	return false, nil
}

func isNetError(err error, target *net.Error) bool {
	for err != nil {
		if ne, ok := err.(net.Error); ok {
			*target = ne
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func isConnectionRefused(err error) bool {
	for err != nil {
		if opErr, ok := err.(*net.OpError); ok {
			return opErr.Op == "dial"
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

var _ retryablehttp.CheckRetry = ConnectOrTimeoutOnly
