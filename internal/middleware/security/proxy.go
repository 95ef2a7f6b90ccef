package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// DefaultTrustedProxies are the networks trusted to set forwarding headers
// when none are configured.
var DefaultTrustedProxies = []string{
	"127.0.0.0/8",    // localhost
	"::1/128",        // localhost
	"10.0.0.0/8",     // private networks
	"172.16.0.0/12",  // private networks
	"192.168.0.0/16", // private networks
}

// ProxyResolver reads X-Forwarded-* headers only from trusted peers.
type ProxyResolver struct {
	trusted []*net.IPNet
}

// NewProxyResolver parses CIDRs; an empty list trusts no one.
func NewProxyResolver(cidrs []string) (*ProxyResolver, error) {
	p := &ProxyResolver{}
	for _, c := range cidrs {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		_, network, err := net.ParseCIDR(c)
		if err != nil {
			return nil, fmt.Errorf("parse trusted proxy CIDR %s: %w", c, err)
		}
		p.trusted = append(p.trusted, network)
	}
	return p, nil
}

func (p *ProxyResolver) isTrusted(ip net.IP) bool {
	if p == nil {
		return false
	}
	for _, network := range p.trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func (p *ProxyResolver) fromTrustedPeer(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && p.isTrusted(ip)
}

// ClientIP extracts the real client IP, honouring forwarded headers from trusted proxies.
func (p *ProxyResolver) ClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	if !p.fromTrustedPeer(r) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

// Scheme returns "https" or "http" for the request as the client sent it.
func (p *ProxyResolver) Scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if p.fromTrustedPeer(r) {
		proto, _, _ := strings.Cut(r.Header.Get("X-Forwarded-Proto"), ",")
		if strings.EqualFold(strings.TrimSpace(proto), "https") {
			return "https"
		}
	}
	return "http"
}
