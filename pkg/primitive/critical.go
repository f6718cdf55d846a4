package primitive

import (
	"sort"
	"sync"

	"code.hybscloud.com/atomix"
)

// CriticalSection is a named mutex shared by every region in the process.
// At most one worker is inside a section with a given name at any time; the
// order in which waiting workers get in is unspecified.
type CriticalSection struct {
	name    string
	mu      sync.Mutex
	entries atomix.Int64
}

// Name returns the section name, empty for the unnamed section
func (c *CriticalSection) Name() string {
	return c.name
}

// Enter blocks until the caller holds the section
func (c *CriticalSection) Enter() {
	c.mu.Lock()
	c.entries.Add(1)
}

// Exit releases the section
func (c *CriticalSection) Exit() {
	c.mu.Unlock()
}

// Do runs fn inside the section
func (c *CriticalSection) Do(fn func()) {
	c.Enter()
	defer c.Exit()
	fn()
}

// Entries returns how many times the section was entered
func (c *CriticalSection) Entries() int64 {
	return c.entries.Load()
}

// criticalRegistry maps names to their process-wide sections.
// Sections are created on first use and never removed.
type criticalRegistry struct {
	sections map[string]*CriticalSection
	mu       sync.RWMutex
}

func newCriticalRegistry() *criticalRegistry {
	return &criticalRegistry{
		sections: make(map[string]*CriticalSection),
	}
}

func (r *criticalRegistry) get(name string) *CriticalSection {
	r.mu.RLock()
	section, exists := r.sections[name]
	r.mu.RUnlock()
	if exists {
		return section
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// another worker may have created it between the two locks
	if section, exists := r.sections[name]; exists {
		return section
	}
	section = &CriticalSection{name: name}
	r.sections[name] = section
	return section
}

func (r *criticalRegistry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sections))
	for name := range r.sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Global registry
var (
	defaultRegistry     *criticalRegistry
	defaultRegistryOnce sync.Once
)

// getDefaultRegistry safely gets the global registry
func getDefaultRegistry() *criticalRegistry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = newCriticalRegistry()
	})
	return defaultRegistry
}

// Critical returns the process-wide critical section called name.
// The empty name is the unnamed section.
func Critical(name string) *CriticalSection {
	return getDefaultRegistry().get(name)
}

// CriticalNames lists the names of every section created so far
func CriticalNames() []string {
	return getDefaultRegistry().names()
}
