// Package httpx builds the outbound HTTP client used for webhook
// delivery.
package httpx

import (
	"net"
	"net/http"
	"time"
)

// New returns a client tuned for small-payload webhook posts. Notices fan
// out from a single sweep goroutine, so the connection pool stays small
// and idle connections are dropped quickly.
func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     60 * time.Second,
		},
	}
}
