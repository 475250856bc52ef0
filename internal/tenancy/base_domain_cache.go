package tenancy

import "sync"

// BaseDomainCache memoizes the platform base domain. A configured value always wins;
// otherwise the first observed host decides until Invalidate is called.
type BaseDomainCache struct {
	configured string

	mu    sync.RWMutex
	value string
	set   bool
}

func NewBaseDomainCache(configured string) *BaseDomainCache {
	return &BaseDomainCache{configured: configured}
}

// Get returns the cached base domain, deriving it from host on a miss.
func (c *BaseDomainCache) Get(host string) string {
	if c.configured != "" {
		return c.configured
	}

	c.mu.RLock()
	if c.set {
		v := c.value
		c.mu.RUnlock()
		return v
	}
	c.mu.RUnlock()

	v := ExtractBaseDomain(host)
	if v == "" {
		return ""
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.set {
		c.value = v
		c.set = true
	}
	return c.value
}

// Invalidate drops the memoized value; the next Get re-derives it.
func (c *BaseDomainCache) Invalidate() {
	c.mu.Lock()
	c.value = ""
	c.set = false
	c.mu.Unlock()
}
