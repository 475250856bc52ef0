// Package tenancy maps request host names to tenant subdomain labels.
// Every function takes the host explicitly; nothing reads process state.
package tenancy

import (
	"net"
	"strings"
)

const (
	// DevSuffix is the development pseudo-TLD, e.g. acme.localhost:5173.
	DevSuffix = "localhost"
	// WWWLabel is treated as the root domain.
	WWWLabel = "www"
)

// normalizeHost lower-cases, strips any port and a trailing dot.
// The second return is true when the host is an IP literal.
func normalizeHost(host string) (string, bool) {
	h := strings.ToLower(strings.TrimSpace(host))
	if h == "" {
		return "", false
	}

	switch {
	case strings.HasPrefix(h, "["):
		// [::1]:8080
		if end := strings.Index(h, "]"); end > 0 {
			return h[1:end], true
		}
		return strings.Trim(h, "[]"), true
	case strings.Count(h, ":") == 1:
		h = h[:strings.Index(h, ":")]
	case strings.Count(h, ":") > 1:
		// bare IPv6
		return h, true
	}

	h = strings.TrimSuffix(h, ".")
	return h, net.ParseIP(h) != nil
}

// ExtractSubdomainLabel returns the tenant label carried by host, or "".
//
//	acme.example.com   -> acme
//	example.com        -> ""
//	acme.localhost:3000 -> acme
//	localhost, 127.0.0.1 -> ""
func ExtractSubdomainLabel(host string) string {
	h, isIP := normalizeHost(host)
	if h == "" || isIP {
		return ""
	}

	labels := strings.Split(h, ".")
	if labels[len(labels)-1] == DevSuffix {
		if len(labels) >= 2 {
			return labels[0]
		}
		return ""
	}

	if len(labels) >= 3 {
		return labels[0]
	}
	return ""
}

// IsRootDomain is true for the platform host: no label, or www.
func IsRootDomain(host string) bool {
	label := ExtractSubdomainLabel(host)
	return label == "" || label == WWWLabel
}

// ResolveTenantIdentifier returns the tenant label, false on the root domain.
func ResolveTenantIdentifier(host string) (string, bool) {
	if IsRootDomain(host) {
		return "", false
	}
	return ExtractSubdomainLabel(host), true
}

// ExtractBaseDomain returns the registrable part of host: the last two labels,
// "localhost" for development hosts and the address itself for IP literals.
func ExtractBaseDomain(host string) string {
	h, isIP := normalizeHost(host)
	if h == "" || isIP {
		return h
	}

	labels := strings.Split(h, ".")
	if labels[len(labels)-1] == DevSuffix {
		return DevSuffix
	}
	if len(labels) >= 2 {
		return strings.Join(labels[len(labels)-2:], ".")
	}
	return h
}

// NormalizeLabel trims and lower-cases a subdomain label for lookups.
func NormalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
