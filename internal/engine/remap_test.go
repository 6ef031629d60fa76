package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keepup/internal/domain"
	"keepup/internal/engine"
)

func strPtr(s string) *string { return &s }

func TestRemapIdentifiersPreservesTreeShape(t *testing.T) {
	items := []domain.TemplateItem{
		{ID: "a", ParentID: nil},
		{ID: "b", ParentID: strPtr("a")},
		{ID: "c", ParentID: strPtr("zzz")},
	}
	out := engine.RemapIdentifiers(items)
	require.Len(t, out, 3)

	assert.Nil(t, out[0].ParentID, "root stays a root")
	require.NotNil(t, out[1].ParentID, "b keeps its parent")
	assert.Equal(t, out[0].NewID, *out[1].ParentID, "b's parent is a's new identifier")
	assert.Nil(t, out[2].ParentID, "unresolvable parent becomes top-level")
}

func TestRemapIdentifiersChildBeforeParent(t *testing.T) {
	items := []domain.TemplateItem{
		{ID: "child", ParentID: strPtr("parent")},
		{ID: "parent"},
	}
	out := engine.RemapIdentifiers(items)
	require.Len(t, out, 2)
	require.NotNil(t, out[0].ParentID)
	assert.Equal(t, out[1].NewID, *out[0].ParentID)
}

func TestRemapIdentifiersUniqueness(t *testing.T) {
	items := []domain.TemplateItem{
		{ID: "a"},
		{ID: "a"}, // duplicate old identifier
		{},        // missing old identifier
		{ID: "b", ParentID: strPtr("a")},
	}
	out := engine.RemapIdentifiers(items)
	require.Len(t, out, 4)

	seen := map[string]bool{}
	for _, r := range out {
		require.NotEmpty(t, r.NewID)
		assert.False(t, seen[r.NewID], "identifier %s allocated twice", r.NewID)
		seen[r.NewID] = true
	}
	// Every non-nil parent resolves to exactly one record in the batch.
	for _, r := range out {
		if r.ParentID == nil {
			continue
		}
		assert.True(t, seen[*r.ParentID], "parent %s must be in the output batch", *r.ParentID)
	}
}

func TestRemapIdentifiersEmptyBatch(t *testing.T) {
	assert.Empty(t, engine.RemapIdentifiers(nil))
}
