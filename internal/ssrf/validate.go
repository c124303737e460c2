// Package ssrf validates URLs the core is about to hand to the scraper,
// since those URLs originate from attacker-influenced input (LLM output,
// search results) and must not be usable to reach internal services.
package ssrf

import (
	"net"
	"net/url"
	"strings"
)

const maxURLLength = 2048

var deniedPorts = map[string]bool{
	"22":    true,
	"23":    true,
	"25":    true,
	"3306":  true,
	"5432":  true,
	"6379":  true,
	"11211": true,
	"27017": true,
}

var deniedTLDs = []string{".local", ".internal", ".lan", ".localhost"}

// Validate reports whether rawURL is safe to fetch per spec §4.3.
func Validate(rawURL string) bool {
	if len(rawURL) == 0 || len(rawURL) > maxURLLength {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}
	host := u.Hostname()
	if host == "" {
		return false
	}
	if isDeniedHost(host) {
		return false
	}
	if port := u.Port(); port != "" && deniedPorts[port] {
		return false
	}
	if ip := net.ParseIP(host); ip != nil {
		if isUnsafeIP(ip) {
			return false
		}
	}
	return true
}

func isDeniedHost(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	h = strings.Trim(h, "[]")
	switch h {
	case "localhost", "localhost.localdomain", "::1", "0.0.0.0":
		return true
	}
	for _, tld := range deniedTLDs {
		if strings.HasSuffix(h, tld) {
			return true
		}
	}
	return false
}

func isUnsafeIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsMulticast() || ip.IsUnspecified() {
		return true
	}
	// IPv4-mapped reserved/benchmarking/documentation ranges not covered by
	// the stdlib helpers above.
	reserved := []string{
		"100.64.0.0/10",  // carrier-grade NAT
		"192.0.0.0/24",   // IETF protocol assignments
		"192.0.2.0/24",   // TEST-NET-1
		"198.18.0.0/15",  // benchmarking
		"198.51.100.0/24", // TEST-NET-2
		"203.0.113.0/24", // TEST-NET-3
		"240.0.0.0/4",    // reserved
	}
	for _, cidr := range reserved {
		_, block, err := net.ParseCIDR(cidr)
		if err == nil && block.Contains(ip) {
			return true
		}
	}
	return false
}
