package skills

import (
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	webCacheTTL        = 15 * time.Minute
	webCacheMaxEntries = 100
	webUserAgent       = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_7_2) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

func newWebCache(ttl time.Duration) *expirable.LRU[string, string] {
	if ttl <= 0 {
		ttl = webCacheTTL
	}
	return expirable.NewLRU[string, string](webCacheMaxEntries, nil, ttl)
}

func cacheKey(parts ...string) string {
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, ":")
}

var blockedHostnames = map[string]bool{
	"localhost":                true,
	"metadata.google.internal": true,
}

func isBlockedHostname(hostname string) bool {
	hostname = strings.ToLower(hostname)
	if blockedHostnames[hostname] {
		return true
	}
	return strings.HasSuffix(hostname, ".localhost") ||
		strings.HasSuffix(hostname, ".local") ||
		strings.HasSuffix(hostname, ".internal")
}

var cgnat = netip.MustParsePrefix("100.64.0.0/10")

func isPrivateAddr(s string) bool {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	return addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		(addr.Is4() && (addr.As4()[0] == 0 || cgnat.Contains(addr)))
}

// checkSSRF rejects URLs that target private or internal hosts, including
// public names that resolve to private addresses.
func checkSSRF(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	hostname := parsed.Hostname()
	if hostname == "" {
		return fmt.Errorf("missing hostname")
	}
	if isBlockedHostname(hostname) {
		return fmt.Errorf("blocked hostname: %s", hostname)
	}
	if _, err := netip.ParseAddr(hostname); err == nil {
		if isPrivateAddr(hostname) {
			return fmt.Errorf("private address not allowed: %s", hostname)
		}
		return nil
	}

	addrs, err := net.LookupHost(hostname)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", hostname, err)
	}
	for _, a := range addrs {
		if isPrivateAddr(a) {
			return fmt.Errorf("hostname %s resolves to private address %s", hostname, a)
		}
	}
	return nil
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
