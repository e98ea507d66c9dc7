// backend/src/suppliers/registry.go
package suppliers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/username/bankfolio/backend/src/logger"
)

// RegistryEntry holds the matchable variants of one canonical supplier.
// Aliases keep their display form; patterns are stored pre-normalized.
type RegistryEntry struct {
	Aliases  []string `json:"aliases"`
	Patterns []string `json:"patterns"`
}

// Registry is the durable mapping of canonical supplier key to its aliases
// and match patterns. Every mutation rewrites the whole store file, sorted by
// key. A missing or corrupt store falls back to a built-in default vocabulary
// and never aborts startup.
type Registry struct {
	path    string
	mu      sync.RWMutex
	entries map[string]RegistryEntry
}

// NewRegistry creates a registry backed by the JSON document at path.
// Call Load before first use.
func NewRegistry(path string) *Registry {
	return &Registry{
		path:    path,
		entries: make(map[string]RegistryEntry),
	}
}

// Load reads the store from disk. A missing file or malformed content is
// logged and replaced by the built-in defaults; the process keeps running.
func (r *Registry) Load() {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.L.Info("Supplier registry store not found, seeding built-in defaults", "path", r.path)
		} else {
			logger.L.Error("Failed to read supplier registry store, falling back to defaults", "path", r.path, "error", err)
		}
		r.entries = defaultEntries()
		return
	}

	entries := make(map[string]RegistryEntry)
	if err := json.Unmarshal(data, &entries); err != nil {
		logger.L.Error("Supplier registry store is corrupt, falling back to defaults", "path", r.path, "error", err)
		r.entries = defaultEntries()
		return
	}

	r.entries = entries
	logger.L.Info("Supplier registry loaded", "path", r.path, "suppliers", len(entries))
}

// Add inserts a new supplier under key. displayName becomes the first alias.
// Returns false with a status message when the key already exists. The store
// is persisted on success.
func (r *Registry) Add(key, displayName string, aliases, patterns []string) (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if key == "" {
		return false, "supplier key cannot be empty"
	}
	if _, exists := r.entries[key]; exists {
		return false, fmt.Sprintf("supplier %q already exists", key)
	}

	entry := RegistryEntry{
		Aliases:  uniqueNonEmpty(append([]string{displayName}, aliases...)),
		Patterns: uniqueNonEmpty(patterns),
	}
	r.entries[key] = entry
	r.persistLocked()
	logger.L.Info("Supplier added to registry", "key", key, "aliases", len(entry.Aliases), "patterns", len(entry.Patterns))
	return true, fmt.Sprintf("supplier %q added", key)
}

// Remove deletes the entry for key, persisting on success.
// Returns false when the key is unknown.
func (r *Registry) Remove(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[key]; !exists {
		return false
	}
	delete(r.entries, key)
	r.persistLocked()
	logger.L.Info("Supplier removed from registry", "key", key)
	return true
}

// All returns a read-only snapshot of the current mapping.
func (r *Registry) All() map[string]RegistryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[string]RegistryEntry, len(r.entries))
	for key, entry := range r.entries {
		snapshot[key] = RegistryEntry{
			Aliases:  append([]string(nil), entry.Aliases...),
			Patterns: append([]string(nil), entry.Patterns...),
		}
	}
	return snapshot
}

// Keys returns all canonical keys in sorted order. Matching iterates in this
// order, which makes the first-match-wins tie-break deterministic.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.entries))
	for key := range r.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the entry for key, if present.
func (r *Registry) Get(key string) (RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[key]
	if !ok {
		return RegistryEntry{}, false
	}
	return RegistryEntry{
		Aliases:  append([]string(nil), entry.Aliases...),
		Patterns: append([]string(nil), entry.Patterns...),
	}, true
}

// persistLocked rewrites the whole store, sorted by key. json.Marshal emits
// map keys in sorted order, which keeps the on-disk document stable. A write
// failure is logged; the in-memory state stays authoritative until the next
// successful write.
func (r *Registry) persistLocked() {
	data, err := json.MarshalIndent(r.entries, "", "  ")
	if err != nil {
		logger.L.Error("Failed to marshal supplier registry", "error", err)
		return
	}

	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.L.Error("Failed to create supplier registry directory", "dir", dir, "error", err)
			return
		}
	}

	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		logger.L.Error("Failed to write supplier registry store, in-memory state remains authoritative", "path", r.path, "error", err)
	}
}

// defaultEntries is the minimal built-in vocabulary used when the store is
// missing or unreadable.
func defaultEntries() map[string]RegistryEntry {
	return map[string]RegistryEntry{
		"edenred": {
			Aliases:  []string{"Edenred", "Eden Red", "Edenred Belgium"},
			Patterns: []string{"edenred"},
		},
		"engie": {
			Aliases:  []string{"Engie", "Engie Electrabel"},
			Patterns: []string{"engie", "electrabel"},
		},
		"kbc": {
			Aliases:  []string{"KBC", "KBC Bank"},
			Patterns: []string{"kbc"},
		},
		"proximus": {
			Aliases:  []string{"Proximus"},
			Patterns: []string{"proximus"},
		},
		"telenet": {
			Aliases:  []string{"Telenet"},
			Patterns: []string{"telenet"},
		},
	}
}

func uniqueNonEmpty(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
