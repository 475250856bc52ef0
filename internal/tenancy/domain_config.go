package tenancy

import "strings"

const EnvProduction = "production"

// DomainConfig builds tenant-facing URLs.
type DomainConfig struct {
	Environment string
	BaseDomain  string
	Scheme      string
}

func (c DomainConfig) base() string {
	if c.BaseDomain != "" {
		return strings.ToLower(c.BaseDomain)
	}
	return DevSuffix
}

// SubdomainHost is label.basedomain.
func (c DomainConfig) SubdomainHost(label string) string {
	return NormalizeLabel(label) + "." + c.base()
}

// SubdomainURL is the bare host in development and an absolute URL in production.
func (c DomainConfig) SubdomainURL(label string) string {
	if c.Environment != EnvProduction {
		return c.SubdomainHost(label)
	}
	scheme := c.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + c.SubdomainHost(label)
}

// LoginURL points at the tenant's login page.
func (c DomainConfig) LoginURL(label string) string {
	if c.Environment != EnvProduction {
		return c.SubdomainHost(label)
	}
	return c.SubdomainURL(label) + "/login"
}
