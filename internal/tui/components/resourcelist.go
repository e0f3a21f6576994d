package components

import (
	"github.com/esinfra/converge/internal/model"
)

// ResourceEntry represents a single resource for rendering.
type ResourceEntry struct {
	ID     string
	Result model.ResourceResult
}

// ResourceList renders the manifest's resources with their current status.
type ResourceList struct {
	entries []ResourceEntry
}

// NewResourceList constructs a resource list component in manifest order.
func NewResourceList(order []string, results map[string]model.ResourceResult) ResourceList {
	entries := make([]ResourceEntry, 0, len(order))
	for _, id := range order {
		entries = append(entries, ResourceEntry{ID: id, Result: results[id]})
	}
	return ResourceList{entries: entries}
}

// Entries returns the ordered resource entries.
func (r ResourceList) Entries() []ResourceEntry {
	clone := make([]ResourceEntry, len(r.entries))
	copy(clone, r.entries)
	return clone
}
