package discovery

import (
	"context"

	"github.com/depdiscover/internal/classfile"
	"github.com/depdiscover/internal/classpath"
)

// ClassSupplier locates exactly one class by name in ordered entries.
// classpath.Finder implements it.
type ClassSupplier interface {
	FindOne(ctx context.Context, entries []classpath.Entry, name string) (*classfile.ClassDescriptor, bool, error)
}

// cacheKey identifies a lookup by classpath identity; names are labels only.
type cacheKey struct {
	classpath *classpath.Classpath
	name      string
}

// CacheStats counts descriptor cache traffic.
type CacheStats struct {
	Hits   int
	Misses int
}

// DescriptorCache memoizes class lookups for one run, negative results
// included. It is not safe for concurrent use.
type DescriptorCache struct {
	supplier ClassSupplier
	entries  map[cacheKey]*classfile.ClassDescriptor
	stats    CacheStats
}

// NewDescriptorCache creates an empty cache over supplier.
func NewDescriptorCache(supplier ClassSupplier) *DescriptorCache {
	return &DescriptorCache{
		supplier: supplier,
		entries:  make(map[cacheKey]*classfile.ClassDescriptor),
	}
}

// Load returns the class named name from cp. Array names are never looked
// up and always miss. A returned error is an I/O failure and is fatal.
func (c *DescriptorCache) Load(ctx context.Context, cp *classpath.Classpath, name string) (*classfile.ClassDescriptor, bool, error) {
	if cp == nil || classfile.IsArray(name) {
		return nil, false, nil
	}
	key := cacheKey{classpath: cp, name: name}
	if cd, ok := c.entries[key]; ok {
		c.stats.Hits++
		return cd, cd != nil, nil
	}
	c.stats.Misses++

	cd, ok, err := c.supplier.FindOne(ctx, cp.Usable(), name)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		cd = nil
	}
	c.entries[key] = cd
	return cd, ok, nil
}

// Put records a class already parsed from cp, such as an entry point.
func (c *DescriptorCache) Put(cp *classpath.Classpath, cd *classfile.ClassDescriptor) {
	key := cacheKey{classpath: cp, name: cd.Name}
	if _, ok := c.entries[key]; !ok {
		c.entries[key] = cd
	}
}

// Stats returns the hit and miss counters.
func (c *DescriptorCache) Stats() CacheStats {
	return c.stats
}
