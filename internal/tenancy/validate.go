package tenancy

import (
	"fmt"
	"regexp"

	"github.com/tejasnaveen/Shakti/internal/domain"
)

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{1,61}[a-z0-9])?$`)

var reservedSubdomains = map[string]struct{}{}

func init() {
	for _, s := range []string{
		"www", "admin", "superadmin", "api", "app", "mail", "smtp", "ftp", "webmail",
		"cpanel", "whm", "blog", "forum", "shop", "store", "dashboard", "portal",
		"support", "help", "docs", "status", "dev", "staging", "test", "demo",
		"sandbox", "localhost", "ns1", "ns2", "dns", "cdn", "assets", "static",
		"media", "files", "images",
	} {
		reservedSubdomains[s] = struct{}{}
	}
}

// IsReserved reports whether label is held back for platform use.
func IsReserved(label string) bool {
	_, ok := reservedSubdomains[NormalizeLabel(label)]
	return ok
}

// ValidateSubdomain checks an already normalized label. Errors wrap domain.ErrInvalidInput.
func ValidateSubdomain(label string) error {
	if label == "" {
		return fmt.Errorf("%w: subdomain is required", domain.ErrInvalidInput)
	}
	if !subdomainPattern.MatchString(label) {
		return fmt.Errorf("%w: subdomain %q is not a valid lowercase DNS label", domain.ErrInvalidInput, label)
	}
	if IsReserved(label) {
		return fmt.Errorf("%w: subdomain %q is reserved", domain.ErrInvalidInput, label)
	}
	return nil
}
