// Package httpx holds the shared client for outbound API calls.
package httpx

import (
	"net/http"
	"time"
)

const defaultExternalHTTPTimeout = 120 * time.Second

var externalHTTPClient = &http.Client{
	Timeout: defaultExternalHTTPTimeout,
}

// ConfigureExternalHTTPClient sets the shared client timeout. Non-positive
// values restore the default.
func ConfigureExternalHTTPClient(timeoutSeconds int) time.Duration {
	timeout := defaultExternalHTTPTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	externalHTTPClient.Timeout = timeout
	return timeout
}

// ExternalHTTPClient returns the client shared by the model providers and the
// Slack notifier, so ExternalHTTPTimeoutSeconds bounds every outbound call.
func ExternalHTTPClient() *http.Client {
	return externalHTTPClient
}
