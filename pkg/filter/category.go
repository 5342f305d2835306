package filter

import (
	"strings"
	"sync"
)

// Category groups a dependency by where it most likely comes from.
type Category int

const (
	// CategoryUnknown indicates the category is unknown.
	CategoryUnknown Category = iota
	// CategoryJDK indicates platform classes (java/, javax/, sun/, jdk/...).
	CategoryJDK
	// CategoryFramework indicates well known third-party libraries.
	CategoryFramework
	// CategoryApplication indicates everything else.
	CategoryApplication
	// CategoryOwned indicates packages configured as the project's own.
	CategoryOwned
)

// String returns the string representation of the category.
func (c Category) String() string {
	switch c {
	case CategoryJDK:
		return "jdk"
	case CategoryFramework:
		return "framework"
	case CategoryApplication:
		return "application"
	case CategoryOwned:
		return "owned"
	default:
		return "unknown"
	}
}

// Categories lists the categories in report order.
var Categories = []Category{CategoryJDK, CategoryFramework, CategoryApplication, CategoryOwned}

// Classifier assigns categories to internal class names.
// It is safe for concurrent use.
type Classifier struct {
	mu sync.RWMutex

	jdkPrefixes       []string
	frameworkPrefixes []string
	ownedPrefixes     []string

	cache     map[string]Category
	cacheSize int
}

// NewClassifier creates a Classifier with the default prefixes.
func NewClassifier() *Classifier {
	return &Classifier{
		jdkPrefixes: []string{
			"java/",
			"javax/",
			"jdk/",
			"sun/",
			"com/sun/",
			"org/w3c/dom/",
			"org/xml/sax/",
			"org/ietf/jgss/",
		},
		frameworkPrefixes: []string{
			"org/springframework/",
			"io/netty/",
			"com/google/common/",
			"com/google/gson/",
			"org/slf4j/",
			"ch/qos/logback/",
			"org/apache/logging/",
			"org/apache/commons/",
			"com/fasterxml/jackson/",
			"net/bytebuddy/",
			"io/opentelemetry/",
			"kotlin/",
			"scala/",
		},
		cache:     make(map[string]Category),
		cacheSize: 10000,
	}
}

// Classify returns the category of a class. Dotted names are accepted.
func (c *Classifier) Classify(name string) Category {
	if name == "" {
		return CategoryUnknown
	}
	name = toInternal(name)

	c.mu.RLock()
	if cat, ok := c.cache[name]; ok {
		c.mu.RUnlock()
		return cat
	}
	c.mu.RUnlock()

	cat := c.classifyUncached(name)

	c.mu.Lock()
	if len(c.cache) < c.cacheSize {
		c.cache[name] = cat
	}
	c.mu.Unlock()

	return cat
}

func (c *Classifier) classifyUncached(name string) Category {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// Owned prefixes win so a project can claim e.g. com/sun/mything/.
	if hasAnyPrefix(name, c.ownedPrefixes) {
		return CategoryOwned
	}
	if hasAnyPrefix(name, c.jdkPrefixes) {
		return CategoryJDK
	}
	if hasAnyPrefix(name, c.frameworkPrefixes) {
		return CategoryFramework
	}
	return CategoryApplication
}

// AddOwnedPrefix marks a package prefix as the project's own.
func (c *Classifier) AddOwnedPrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix = toInternal(strings.TrimSuffix(prefix, Wildcard))
	for _, p := range c.ownedPrefixes {
		if p == prefix {
			return
		}
	}
	c.ownedPrefixes = append(c.ownedPrefixes, prefix)
	c.cache = make(map[string]Category)
}

// AddFrameworkPrefix adds a third-party package prefix.
func (c *Classifier) AddFrameworkPrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.frameworkPrefixes = append(c.frameworkPrefixes, toInternal(prefix))
	c.cache = make(map[string]Category)
}

// Count tallies names per category.
func (c *Classifier) Count(names []string) map[Category]int {
	out := make(map[Category]int)
	for _, n := range names {
		out[c.Classify(n)]++
	}
	return out
}

func hasAnyPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
