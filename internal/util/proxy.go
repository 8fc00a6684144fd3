// Package util holds small HTTP plumbing shared by the labeling provider
// clients.
package util

import (
	"net/http"
	"net/url"
	"strings"
)

// NewTransport builds the transport for collaborator calls, routing through
// the configured proxies. Hosts matching an entry in noProxy (comma
// separated suffixes) connect directly. With no explicit proxies the
// standard proxy environment variables apply.
func NewTransport(httpProxy, httpsProxy, noProxy string) *http.Transport {
	return &http.Transport{Proxy: proxyFunc(httpProxy, httpsProxy, noProxy)}
}

func proxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	var skip []string
	for _, s := range strings.Split(noProxy, ",") {
		if s = strings.TrimSpace(s); s != "" {
			skip = append(skip, s)
		}
	}

	return func(req *http.Request) (*url.URL, error) {
		host := req.URL.Hostname()
		for _, s := range skip {
			if strings.HasSuffix(host, s) {
				return nil, nil
			}
		}
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}
