// Package httpclient builds the single tuned HTTP client shared by the LLM
// gateway, the search provider, and the default scraper.
package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// NewHighThroughput returns an HTTP client tuned for high parallelism without
// client-side throttling. If sslVerify is false, certificate verification is
// disabled (useful against self-signed local SearxNG/browser instances).
func NewHighThroughput(sslVerify bool) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          0,
		MaxIdleConnsPerHost:   1024,
		MaxConnsPerHost:       0,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if !sslVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}
