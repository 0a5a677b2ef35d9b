package security

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
)

// scanPatterns are path fragments that only scanners ask for. None of them
// can match a dashboard route.
var scanPatterns = []string{
	"../", "..\\", ".env", ".git", ".ssh",
	"wp-admin", "wp-login", "phpmyadmin", ".php",
	"etc/passwd", "cmd.exe",
}

// Detector extracts client IPs behind trusted proxies and turns away
// obvious vulnerability scans.
type Detector struct {
	trustedProxies []*net.IPNet
	blocked        atomic.Int64
}

// NewDetector creates a detector trusting loopback and private networks
// to set forwarding headers.
func NewDetector() *Detector {
	return &Detector{
		trustedProxies: []*net.IPNet{
			parseCIDR("127.0.0.0/8"),
			parseCIDR("10.0.0.0/8"),
			parseCIDR("172.16.0.0/12"),
			parseCIDR("192.168.0.0/16"),
			parseCIDR("::1/128"),
		},
	}
}

func parseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// ExtractClientIP returns the caller's address. Forwarding headers are
// honoured only when the direct peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsed := net.ParseIP(directIP)
	if parsed == nil || !d.isTrustedProxy(parsed) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

// IsScan reports whether the request path looks like a vulnerability scan.
func (d *Detector) IsScan(r *http.Request) bool {
	path := strings.ToLower(r.URL.Path)
	for _, pattern := range scanPatterns {
		if strings.Contains(path, pattern) {
			return true
		}
	}
	return false
}

// Blocked returns how many scan requests have been rejected.
func (d *Detector) Blocked() int64 {
	return d.blocked.Load()
}

// Middleware answers scan requests with 404 before they reach the router.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d.IsScan(r) {
			d.blocked.Add(1)
			slog.WarnContext(r.Context(), "Blocked suspicious request",
				"component", "security",
				"path", r.URL.Path,
				"client_ip", d.ExtractClientIP(r))
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
