package predict

import (
	"net"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single call to a prediction service
const DefaultTimeout = 10 * time.Second

// newServiceHTTPClient creates an HTTP client for the prediction services.
// They answer small JSON documents, so every phase has a short deadline.
func newServiceHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: timeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		MaxConnsPerHost:       10,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
