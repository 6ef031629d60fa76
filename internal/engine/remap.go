package engine

import (
	"github.com/google/uuid"

	"keepup/internal/domain"
)

// RemappedItem pairs a snapshot item with its freshly allocated identifier
// and resolved parent.
type RemappedItem struct {
	Source   domain.TemplateItem
	NewID    string
	ParentID *string
}

// RemapIdentifiers allocates a fresh unique identifier for every snapshot
// item and rewrites parent pointers consistently, preserving tree shape.
//
// Two passes: the first builds the old-to-new mapping, the second resolves
// parents against it. A child may precede its parent in the input, so
// parents cannot be resolved on the fly. A parent pointer that does not
// name another item in the same batch resolves to nil (the item becomes
// top-level), and items without an old identifier still get a fresh one.
func RemapIdentifiers(items []domain.TemplateItem) []RemappedItem {
	mapping := make(map[string]string, len(items))
	out := make([]RemappedItem, len(items))
	for i, it := range items {
		id := uuid.NewString()
		if it.ID != "" {
			// Duplicate old identifiers each still get their own new one;
			// the mapping keeps the first allocation so children resolve
			// deterministically.
			if _, seen := mapping[it.ID]; !seen {
				mapping[it.ID] = id
			}
		}
		out[i] = RemappedItem{Source: it, NewID: id}
	}
	for i, it := range items {
		if it.ParentID == nil {
			continue
		}
		if newParent, ok := mapping[*it.ParentID]; ok {
			out[i].ParentID = &newParent
		}
	}
	return out
}
