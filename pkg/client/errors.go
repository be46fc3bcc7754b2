package client

import (
	"net/http"

	"github.com/Sternrassler/semp-client/pkg/semp"
)

// classifyError maps an HTTP outcome onto a semp error kind. Timeouts are
// reported separately from every other transport failure; any non-200
// status, authentication failures included, is a transport failure.
func classifyError(resp *http.Response, err error) semp.Kind {
	if err != nil {
		if semp.IsTimeout(err) {
			return semp.KindTimeout
		}
		return semp.KindTransport
	}

	switch {
	case resp == nil:
		return ""
	case resp.StatusCode == http.StatusOK:
		return ""
	case resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode == http.StatusGatewayTimeout:
		return semp.KindTimeout
	default:
		return semp.KindTransport
	}
}

// shouldRetry determines if an operation failing with kind may be retried by
// a caller-level retry policy.
func shouldRetry(kind semp.Kind) bool {
	switch kind {
	case semp.KindTimeout, semp.KindTransport:
		return true
	default:
		// Protocol and parse errors repeat deterministically.
		return false
	}
}
