package server

import (
	"net"
	"net/http"
	"time"

	"github.com/nilch/nilch-api/internal/config"
)

// Shared HTTP transport tunings，复用长连接并集中配置超时。
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   100,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ForceAttemptHTTP2:     true,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// NewUpstreamClient 返回共享 http.Client，Brave 与 infobox 的外部请求都复用它。
func NewUpstreamClient(cfg *config.Config) *http.Client {
	timeout := 10 * time.Second
	if cfg != nil && cfg.Upstream.Timeout.DurationValue() > 0 {
		timeout = cfg.Upstream.Timeout.DurationValue()
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: defaultTransport.Clone(),
	}
}
