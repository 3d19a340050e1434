package robots

import "strings"

// Blocklist holds hosts that are never previewed. A pattern names one host
// ("example.com") or a whole domain with its subdomains ("*.example.com" or
// ".example.com"). Matching ignores case and a trailing root dot.
type Blocklist struct {
	hosts   map[string]struct{}
	domains map[string]struct{}
}

// NewBlocklist parses patterns. It returns nil when no pattern is usable; a
// nil Blocklist blocks nothing.
func NewBlocklist(patterns []string) *Blocklist {
	b := &Blocklist{
		hosts:   make(map[string]struct{}),
		domains: make(map[string]struct{}),
	}
	for _, raw := range patterns {
		pattern := strings.ToLower(strings.TrimSpace(raw))
		if domain, ok := cutWildcard(pattern); ok {
			if domain = normalizeHost(domain); domain != "" {
				b.domains[domain] = struct{}{}
			}
			continue
		}
		if pattern = normalizeHost(pattern); pattern != "" {
			b.hosts[pattern] = struct{}{}
		}
	}
	if len(b.hosts) == 0 && len(b.domains) == 0 {
		return nil
	}
	return b
}

// IsBlocked reports whether host is listed itself or sits under a listed
// domain.
func (b *Blocklist) IsBlocked(host string) bool {
	if b == nil {
		return false
	}
	host = normalizeHost(host)
	if host == "" {
		return false
	}
	if _, ok := b.hosts[host]; ok {
		return true
	}
	// Walk up one label at a time: a.b.example.com, b.example.com, ...
	for name := host; name != ""; _, name, _ = strings.Cut(name, ".") {
		if _, ok := b.domains[name]; ok {
			return true
		}
	}
	return false
}

func cutWildcard(pattern string) (string, bool) {
	if domain, ok := strings.CutPrefix(pattern, "*."); ok {
		return domain, true
	}
	return strings.CutPrefix(pattern, ".")
}

func normalizeHost(s string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), ".")
}
